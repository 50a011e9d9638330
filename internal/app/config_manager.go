package app

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
)

//go:embed config_schemas.json
var configSchemasData []byte

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting value")
)

// ConfigSchema describes one runtime setting, keyed "category.name".
type ConfigSchema struct {
	Key         string `json:"key"`
	Type        string `json:"type"` // string, int, bool, decimal
	Default     string `json:"default"`
	Description string `json:"description"`
}

type ConfigSchemasJSON struct {
	Schemas []ConfigSchema `json:"schemas"`
}

// SettingView is a setting as shown in the back-office.
type SettingView struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

// ConfigManager caches sys_config rows and coerces them with cast.
// Unset keys fall back to their schema default.
type ConfigManager struct {
	db      *gorm.DB
	mu      sync.RWMutex
	values  map[string]string
	schemas map[string]ConfigSchema
	order   []string
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	cm := &ConfigManager{
		db:      db,
		values:  map[string]string{},
		schemas: map[string]ConfigSchema{},
	}
	var data ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &data); err != nil {
		zap.L().Error("failed to load config schemas", zap.Error(err))
	}
	for _, s := range data.Schemas {
		cm.schemas[s.Key] = s
		cm.order = append(cm.order, s.Key)
	}
	cm.Reload()
	return cm
}

// Reload refreshes the cache from the database.
func (cm *ConfigManager) Reload() {
	var rows []domain.SysConfig
	if err := cm.db.Find(&rows).Error; err != nil {
		zap.L().Error("load sys_config failed", zap.Error(err))
		return
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Type+"."+r.Name] = r.Value
	}
	cm.mu.Lock()
	cm.values = values
	cm.mu.Unlock()
}

func (cm *ConfigManager) Get(category, name string) string {
	key := category + "." + name
	cm.mu.RLock()
	v, ok := cm.values[key]
	cm.mu.RUnlock()
	if ok {
		return v
	}
	return cm.schemas[key].Default
}

func (cm *ConfigManager) GetString(category, name string) string {
	return cm.Get(category, name)
}

func (cm *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(cm.Get(category, name))
}

func (cm *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(cm.Get(category, name))
}

func (cm *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(cm.Get(category, name))
}

// GetDecimal returns the setting as a decimal, or the schema default when
// the stored value does not parse.
func (cm *ConfigManager) GetDecimal(category, name string) decimal.Decimal {
	if d, err := decimal.NewFromString(strings.TrimSpace(cm.Get(category, name))); err == nil {
		return d
	}
	d, _ := decimal.NewFromString(cm.schemas[category+"."+name].Default)
	return d
}

// Validate checks value against the schema type of key.
func (cm *ConfigManager) Validate(key, value string) error {
	schema, ok := cm.schemas[key]
	if !ok {
		return errors.Wrap(ErrUnknownSetting, key)
	}
	if err := checkType(schema.Type, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
	}
	return nil
}

// Set validates value against the schema type and persists it.
func (cm *ConfigManager) Set(key, value string) error {
	if err := cm.Validate(key, value); err != nil {
		return err
	}
	schema := cm.schemas[key]
	value = strings.TrimSpace(value)
	parts := strings.SplitN(key, ".", 2)
	category, name := parts[0], parts[1]

	var row domain.SysConfig
	err := cm.db.Where("type = ? AND name = ?", category, name).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = domain.SysConfig{Type: category, Name: name, Value: value, Remark: schema.Description}
		err = cm.db.Create(&row).Error
	case err == nil:
		err = cm.db.Model(&domain.SysConfig{}).Where("id = ?", row.ID).Update("value", value).Error
	}
	if err != nil {
		return err
	}

	cm.mu.Lock()
	cm.values[key] = value
	cm.mu.Unlock()
	return nil
}

// All lists every known setting in schema order.
func (cm *ConfigManager) All() []SettingView {
	out := make([]SettingView, 0, len(cm.order))
	for _, key := range cm.order {
		s := cm.schemas[key]
		parts := strings.SplitN(key, ".", 2)
		out = append(out, SettingView{
			Key:         key,
			Type:        s.Type,
			Value:       cm.Get(parts[0], parts[1]),
			Default:     s.Default,
			Description: s.Description,
		})
	}
	return out
}

// Keys returns the known setting keys, sorted.
func (cm *ConfigManager) Keys() []string {
	keys := append([]string(nil), cm.order...)
	sort.Strings(keys)
	return keys
}

// CheckoutRules implements order.Settings.
func (cm *ConfigManager) CheckoutRules() checkout.Rules {
	return checkout.Rules{
		TaxRate:               cm.GetDecimal("checkout", "TaxRate"),
		FreeShippingThreshold: cm.GetDecimal("checkout", "FreeShippingThreshold"),
		ShippingFee:           cm.GetDecimal("checkout", "ShippingFee"),
	}
}

// PendingOrderTTL implements order.Settings.
func (cm *ConfigManager) PendingOrderTTL() time.Duration {
	minutes := cm.GetInt("order", "PendingTTLMinutes")
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

func checkType(typ, value string) error {
	var err error
	switch typ {
	case "int":
		_, err = cast.ToIntE(value)
	case "bool":
		_, err = cast.ToBoolE(value)
	case "decimal":
		var d decimal.Decimal
		d, err = decimal.NewFromString(value)
		if err == nil && d.IsNegative() {
			err = errors.New("must not be negative")
		}
	}
	return err
}
