package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

const generatedCodeLength = 8

var errCouponNotFound = echo.NewHTTPError(http.StatusNotFound, "coupon not found")

// couponPayload takes validity dates as loose strings, e.g. "2024-06-01" or
// "01/06/2024 10:00".
type couponPayload struct {
	Code          string          `json:"code" validate:"omitempty,alphanum,max=40"`
	Description   string          `json:"description" validate:"max=255"`
	Type          string          `json:"type" validate:"required,oneof=PERCENTAGE FIXED FREE_SHIPPING"`
	Value         decimal.Decimal `json:"value"`
	MaxDiscount   decimal.Decimal `json:"max_discount"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
	UsageLimit    int             `json:"usage_limit" validate:"min=0"`
	ValidFrom     string          `json:"valid_from"`
	ValidTo       string          `json:"valid_to"`
	Active        *bool           `json:"active"`
}

func (p *couponPayload) apply(cp *domain.Coupon) error {
	switch {
	case p.Value.IsNegative() || p.MaxDiscount.IsNegative() || p.MinOrderValue.IsNegative():
		return echo.NewHTTPError(http.StatusBadRequest, "amounts must not be negative")
	case p.Type == domain.CouponPercentage && (!p.Value.IsPositive() || p.Value.GreaterThan(decimal.NewFromInt(100))):
		return echo.NewHTTPError(http.StatusBadRequest, "percentage must be between 0 and 100")
	case p.Type == domain.CouponFixed && !p.Value.IsPositive():
		return echo.NewHTTPError(http.StatusBadRequest, "value must be positive")
	}
	var from, to *time.Time
	var err error
	if s := strings.TrimSpace(p.ValidFrom); s != "" {
		if from, err = parseDate(s, "valid_from"); err != nil {
			return err
		}
	}
	if s := strings.TrimSpace(p.ValidTo); s != "" {
		if to, err = parseDate(s, "valid_to"); err != nil {
			return err
		}
	}
	if from != nil && to != nil && !to.After(*from) {
		return echo.NewHTTPError(http.StatusBadRequest, "valid_to must be after valid_from")
	}

	cp.Description = strings.TrimSpace(p.Description)
	cp.Type = p.Type
	cp.Value = p.Value
	cp.MaxDiscount = p.MaxDiscount
	cp.MinOrderValue = p.MinOrderValue
	cp.UsageLimit = p.UsageLimit
	cp.ValidFrom = from
	cp.ValidTo = to
	if p.Active != nil {
		cp.Active = *p.Active
	}
	return nil
}

func registerCouponRoutes() {
	webserver.AdminGET("/coupons", listCoupons)
	webserver.AdminGET("/coupons/:id", getCoupon)
	webserver.AdminPOST("/coupons", createCoupon)
	webserver.AdminPUT("/coupons/:id", updateCoupon)
	webserver.AdminDELETE("/coupons/:id", deleteCoupon)
}

func listCoupons(c echo.Context) error {
	page, pageSize := parsePagination(c)
	query := GetDB(c).Model(&domain.Coupon{})
	if q := checkout.NormalizeCode(c.QueryParam("q")); q != "" {
		query = query.Where("code LIKE ?", q+"%")
	}
	switch c.QueryParam("active") {
	case "true":
		query = query.Where("active = ?", true)
	case "false":
		query = query.Where("active = ?", false)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	var rows []domain.Coupon
	err := query.Order(sortClause(c, map[string]string{
		"code":       "code",
		"used_count": "used_count",
		"valid_to":   "valid_to",
	}, "id")).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func loadCoupon(c echo.Context) (*domain.Coupon, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	var cp domain.Coupon
	if err := GetDB(c).First(&cp, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errCouponNotFound
		}
		return nil, err
	}
	return &cp, nil
}

func getCoupon(c echo.Context) error {
	cp, err := loadCoupon(c)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, cp)
}

// createCoupon generates a random code when none is given.
func createCoupon(c echo.Context) error {
	var payload couponPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	cp := domain.Coupon{Code: checkout.NormalizeCode(payload.Code), Active: true}
	if cp.Code == "" {
		cp.Code = random.String(generatedCodeLength, random.Uppercase, random.Numeric)
	}
	if err := payload.apply(&cp); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	if err := db.Create(&cp).Error; err != nil {
		return handleError(c, err)
	}
	// Create lets the column default win over a false value
	if payload.Active != nil && !*payload.Active {
		if err := db.Model(&cp).Update("active", false).Error; err != nil {
			return handleError(c, err)
		}
		cp.Active = false
	}
	audit(c, "coupon.create", fmt.Sprintf("created coupon %s", cp.Code))
	return created(c, cp)
}

// updateCoupon replaces the rules of a coupon. The code and usage counters
// are kept.
func updateCoupon(c echo.Context) error {
	cp, err := loadCoupon(c)
	if err != nil {
		return handleError(c, err)
	}
	var payload couponPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if err := payload.apply(cp); err != nil {
		return handleError(c, err)
	}
	err = GetDB(c).Model(&domain.Coupon{}).Where("id = ?", cp.ID).Updates(map[string]interface{}{
		"description":     cp.Description,
		"type":            cp.Type,
		"value":           cp.Value,
		"max_discount":    cp.MaxDiscount,
		"min_order_value": cp.MinOrderValue,
		"usage_limit":     cp.UsageLimit,
		"valid_from":      cp.ValidFrom,
		"valid_to":        cp.ValidTo,
		"active":          cp.Active,
	}).Error
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "coupon.update", fmt.Sprintf("updated coupon %s", cp.Code))
	return ok(c, cp)
}

// deleteCoupon deactivates redeemed coupons and removes unused ones.
func deleteCoupon(c echo.Context) error {
	cp, err := loadCoupon(c)
	if err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	var used int64
	if err := db.Model(&domain.CouponUsage{}).Where("coupon_id = ?", cp.ID).Count(&used).Error; err != nil {
		return handleError(c, err)
	}
	if used > 0 {
		if err := db.Model(cp).Updates(map[string]interface{}{"active": false}).Error; err != nil {
			return handleError(c, err)
		}
		audit(c, "coupon.deactivate", fmt.Sprintf("deactivated coupon %s", cp.Code))
		cp.Active = false
		return ok(c, cp)
	}
	if err := db.Delete(cp).Error; err != nil {
		return handleError(c, err)
	}
	audit(c, "coupon.delete", fmt.Sprintf("deleted coupon %s", cp.Code))
	return c.NoContent(http.StatusNoContent)
}
