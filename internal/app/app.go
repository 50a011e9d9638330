package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/config"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/notify"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment"
	"github.com/hvacmart/storefront/internal/payment/clients"
	"github.com/hvacmart/storefront/internal/shipping"
	"github.com/hvacmart/storefront/pkg/clock"
	"github.com/hvacmart/storefront/pkg/metrics"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	jobs          *jobRegistry
	configManager *ConfigManager
	clock         clock.Clock

	bus        *events.Bus
	orders     *order.Service
	payments   *payment.Service
	tracker    *shipping.Tracker
	dispatcher *shipping.Dispatcher
	notifier   *notify.Notifier
}

// Ensure Application implements all interfaces
var (
	_ DBProvider            = (*Application)(nil)
	_ ConfigProvider        = (*Application)(nil)
	_ SettingsProvider      = (*Application)(nil)
	_ SchedulerProvider     = (*Application)(nil)
	_ ConfigManagerProvider = (*Application)(nil)
	_ ServicesProvider      = (*Application)(nil)
	_ AppContext            = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, clock: clock.NewRealClock()}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// OverrideClock replaces the clock handed to services (used in tests).
func (a *Application) OverrideClock(clk clock.Clock) {
	a.clock = clk
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.connect()

	// Ensure database schema is migrated before loading configs
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}
	a.Seed()

	if err := a.InitServices(); err != nil {
		zap.S().Fatalf("init services error: %s", err.Error())
	}

	a.sched.Start()
}

// OpenDatabase sets up logging and the database connection only, for the
// maintenance commands.
func (a *Application) OpenDatabase() {
	initLogger(a.appConfig.Logger)
	a.connect()
}

func (a *Application) connect() {
	cfg := a.appConfig
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
}

// Seed creates the super admin, default settings, categories and EMI plans
// when they are missing.
func (a *Application) Seed() {
	a.checkSuper()
	a.checkSettings()
	a.checkCategories()
	a.checkEmiPlans()
}

// InitServices builds the domain services on top of the current database
// handle and subscribes the asynchronous side effects to the event bus.
// Outbound clients are only created when their credentials are configured.
// Background jobs are registered but the scheduler is not started.
func (a *Application) InitServices() error {
	cfg := a.appConfig
	a.configManager = NewConfigManager(a.gormDB)

	bus, err := events.NewBus(0)
	if err != nil {
		return err
	}
	a.bus = bus

	a.orders = order.NewService(a.gormDB, a.configManager, bus, a.clock)

	var gateway clients.Gateway
	if cfg.Payment.KeyId != "" {
		gateway = clients.NewRazorpayClient(cfg.Payment.Endpoint, cfg.Payment.KeyId, cfg.Payment.KeySecret,
			time.Duration(cfg.Payment.Timeout)*time.Second)
	}
	a.payments = payment.NewService(a.gormDB, gateway, a.orders, payment.Config{
		KeyID:     cfg.Payment.KeyId,
		KeySecret: cfg.Payment.KeySecret,
		Currency:  cfg.Payment.Currency,
	})

	var provider shipping.Provider
	if cfg.Shipping.Email != "" {
		provider = shipping.NewShiprocketClient(cfg.Shipping.Endpoint, cfg.Shipping.Email, cfg.Shipping.Password,
			time.Duration(cfg.Shipping.Timeout)*time.Second)
	}
	a.dispatcher = shipping.NewDispatcher(a.gormDB, provider, cfg.Shipping.PickupName)
	if err := a.dispatcher.Subscribe(bus); err != nil {
		return err
	}
	a.tracker = shipping.NewTracker(a.gormDB, a.orders, cfg.Shipping.WebhookSecret, a.clock)

	var mailer notify.Mailer
	if m := notify.NewSMTPMailer(cfg.Smtp); m != nil {
		mailer = m
	}
	a.notifier = notify.NewNotifier(a.gormDB, mailer, a.configManager.GetString("store", "Name"))
	if err := a.notifier.Subscribe(bus); err != nil {
		return err
	}
	a.initJob()
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Orders() *order.Service {
	return a.orders
}

func (a *Application) Payments() *payment.Service {
	return a.payments
}

func (a *Application) Tracker() *shipping.Tracker {
	return a.tracker
}

func (a *Application) Dispatcher() *shipping.Dispatcher {
	return a.dispatcher
}

func (a *Application) Bus() *events.Bus {
	return a.bus
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}

// SaveSettings validates and stores each "category.name" key. Unknown keys
// and badly typed values reject the whole batch before anything is written.
func (a *Application) SaveSettings(settings map[string]string) error {
	for key, value := range settings {
		if err := a.configManager.Validate(key, value); err != nil {
			return err
		}
	}
	for _, key := range a.configManager.Keys() {
		value, ok := settings[key]
		if !ok {
			continue
		}
		if err := a.configManager.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
