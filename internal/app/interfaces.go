package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/config"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment"
	"github.com/hvacmart/storefront/internal/shipping"
)

// DBProvider hands out the shared gorm handle
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider exposes the file/env configuration loaded at startup
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider reads and writes the admin-editable settings table
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]string) error
}

// SchedulerProvider exposes the background job runner
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobInfo
	RunJobNow(name string) (bool, error)
}

// ConfigManagerProvider gives access to the typed settings cache
type ConfigManagerProvider interface {
	ConfigMgr() *ConfigManager
}

// ServicesProvider exposes the domain services handlers call into
type ServicesProvider interface {
	Orders() *order.Service
	Payments() *payment.Service
	Tracker() *shipping.Tracker
	Dispatcher() *shipping.Dispatcher
	Bus() *events.Bus
}

// AppContext is what HTTP handlers and the CLI resolve from GetAppContext.
// Services should take the narrowest provider they need.
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	ConfigManagerProvider
	ServicesProvider

	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
