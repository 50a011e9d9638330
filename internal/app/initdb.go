package app

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/pkg/common"
)

const (
	superEmail      = "admin@hvacmart.in"
	defaultPassword = "storefront"
)

// checkSuper makes sure a usable back-office account exists. The initial
// password can be set with STOREFRONT_ADMIN_PASSWORD.
func (a *Application) checkSuper() {
	password := common.IfEmptyStr(os.Getenv("STOREFRONT_ADMIN_PASSWORD"), defaultPassword)

	var admin domain.User
	err := a.gormDB.Where("email = ?", superEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := common.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.User{
			Name:         "administrator",
			Email:        superEmail,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Status:       common.ENABLED,
			LastLogin:    time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(admin.PasswordHash) == ""
	resetRole := admin.Role != domain.RoleAdmin
	resetStatus := !strings.EqualFold(admin.Status, common.ENABLED)
	if !resetPassword && !resetRole && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hash, err := common.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		updates["password_hash"] = hash
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}
	if err := a.gormDB.Model(&domain.User{}).Where("id = ?", admin.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair admin account", zap.Error(err))
		return
	}
	zap.L().Warn("repaired default admin account",
		zap.String("email", superEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole),
		zap.Bool("statusEnabled", resetStatus))
}

// checkSettings inserts any setting from config_schemas.json that is not
// yet stored, with its default value.
func (a *Application) checkSettings() {
	var schemasData ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &schemasData); err != nil {
		zap.L().Error("failed to load config schemas from JSON", zap.Error(err))
		return
	}

	for sortid, schema := range schemasData.Schemas {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}
		category, name := parts[0], parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)
		if count > 0 {
			continue
		}
		a.gormDB.Create(&domain.SysConfig{
			Sort:   sortid,
			Type:   category,
			Name:   name,
			Value:  schema.Default,
			Remark: schema.Description,
		})
		zap.L().Info("initialized config",
			zap.String("key", schema.Key),
			zap.String("default", schema.Default))
	}
}

func (a *Application) checkCategories() {
	defaults := []domain.Category{
		{Name: "Split AC", Slug: "split-ac"},
		{Name: "Window AC", Slug: "window-ac"},
		{Name: "Cassette AC", Slug: "cassette-ac"},
		{Name: "Air Purifier", Slug: "air-purifier"},
		{Name: "Accessories", Slug: "accessories"},
	}
	for _, c := range defaults {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("slug = ?", c.Slug).Count(&count)
		if count > 0 {
			continue
		}
		if err := a.gormDB.Create(&c).Error; err != nil {
			zap.L().Error("failed to create default category", zap.String("slug", c.Slug), zap.Error(err))
		}
	}
}

// checkEmiPlans seeds the bank installment offers once, on an empty table.
func (a *Application) checkEmiPlans() {
	var count int64
	a.gormDB.Model(&domain.EmiPlan{}).Count(&count)
	if count > 0 {
		return
	}
	plans := []domain.EmiPlan{
		{Bank: "HDFC Bank", TenureMonths: 3, AnnualRate: decimal.Zero, MinAmount: decimal.NewFromInt(10000), Active: true},
		{Bank: "HDFC Bank", TenureMonths: 6, AnnualRate: decimal.NewFromInt(13), MinAmount: decimal.NewFromInt(10000), Active: true},
		{Bank: "ICICI Bank", TenureMonths: 9, AnnualRate: decimal.NewFromInt(14), MinAmount: decimal.NewFromInt(15000), Active: true},
		{Bank: "SBI Card", TenureMonths: 12, AnnualRate: decimal.NewFromInt(15), MinAmount: decimal.NewFromInt(20000), Active: true},
	}
	if err := a.gormDB.Create(&plans).Error; err != nil {
		zap.L().Error("failed to create default emi plans", zap.Error(err))
		return
	}
	zap.L().Info("initialized default emi plans", zap.Int("count", len(plans)))
}
