package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type emiPlanPayload struct {
	Bank         string          `json:"bank" validate:"required,max=100"`
	TenureMonths int             `json:"tenure_months" validate:"required,min=1,max=60"`
	AnnualRate   decimal.Decimal `json:"annual_rate"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	Active       *bool           `json:"active"`
}

func (p *emiPlanPayload) check() error {
	if p.AnnualRate.IsNegative() || p.AnnualRate.GreaterThan(decimal.NewFromInt(100)) {
		return echo.NewHTTPError(http.StatusBadRequest, "annual_rate must be between 0 and 100")
	}
	if p.MinAmount.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "min_amount must not be negative")
	}
	return nil
}

func registerEmiRoutes() {
	webserver.AdminGET("/emi-plans", listEmiPlans)
	webserver.AdminPOST("/emi-plans", createEmiPlan)
	webserver.AdminPUT("/emi-plans/:id", updateEmiPlan)
	webserver.AdminDELETE("/emi-plans/:id", deleteEmiPlan)
}

// listEmiPlans returns every plan, inactive ones included.
func listEmiPlans(c echo.Context) error {
	var plans []domain.EmiPlan
	if err := GetDB(c).Order("bank ASC, tenure_months ASC").Find(&plans).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, plans)
}

func createEmiPlan(c echo.Context) error {
	var payload emiPlanPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if err := payload.check(); err != nil {
		return handleError(c, err)
	}
	plan := domain.EmiPlan{
		Bank:         strings.TrimSpace(payload.Bank),
		TenureMonths: payload.TenureMonths,
		AnnualRate:   payload.AnnualRate,
		MinAmount:    payload.MinAmount,
		Active:       true,
	}
	db := GetDB(c)
	if err := db.Create(&plan).Error; err != nil {
		return handleError(c, err)
	}
	if payload.Active != nil && !*payload.Active {
		if err := db.Model(&plan).Update("active", false).Error; err != nil {
			return handleError(c, err)
		}
		plan.Active = false
	}
	audit(c, "emi.create", fmt.Sprintf("created EMI plan %s %dm", plan.Bank, plan.TenureMonths))
	return created(c, plan)
}

func loadEmiPlan(c echo.Context) (*domain.EmiPlan, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var plan domain.EmiPlan
	if err := GetDB(c).First(&plan, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, echo.NewHTTPError(http.StatusNotFound, "EMI plan not found")
		}
		return nil, err
	}
	return &plan, nil
}

func updateEmiPlan(c echo.Context) error {
	plan, err := loadEmiPlan(c)
	if err != nil {
		return handleError(c, err)
	}
	var payload emiPlanPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if err := payload.check(); err != nil {
		return handleError(c, err)
	}
	plan.Bank = strings.TrimSpace(payload.Bank)
	plan.TenureMonths = payload.TenureMonths
	plan.AnnualRate = payload.AnnualRate
	plan.MinAmount = payload.MinAmount
	if payload.Active != nil {
		plan.Active = *payload.Active
	}
	err = GetDB(c).Model(plan).Updates(map[string]interface{}{
		"bank":          plan.Bank,
		"tenure_months": plan.TenureMonths,
		"annual_rate":   plan.AnnualRate,
		"min_amount":    plan.MinAmount,
		"active":        plan.Active,
	}).Error
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "emi.update", fmt.Sprintf("updated EMI plan %d", plan.ID))
	return ok(c, plan)
}

func deleteEmiPlan(c echo.Context) error {
	plan, err := loadEmiPlan(c)
	if err != nil {
		return handleError(c, err)
	}
	if err := GetDB(c).Delete(plan).Error; err != nil {
		return handleError(c, err)
	}
	audit(c, "emi.delete", fmt.Sprintf("deleted EMI plan %s %dm", plan.Bank, plan.TenureMonths))
	return c.NoContent(http.StatusNoContent)
}
