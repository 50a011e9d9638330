package config

import (
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Url      string `yaml:"url"`  // full DSN, takes precedence over the discrete fields
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
	// DiagToken guards GET /api/diagnostics, empty disables the endpoint
	DiagToken string `yaml:"diag_token"`
}

// WebConfig Web config
type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"` // JWT signing secret
	// BaseUrl is the public storefront address used for payment callback redirects
	BaseUrl string `yaml:"base_url"`
	// AuthRate is the allowed login/signup attempts per minute per client IP
	AuthRate int `yaml:"auth_rate"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type SmtpConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type PaymentConfig struct {
	Endpoint  string `yaml:"endpoint"`
	KeyId     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
	Currency  string `yaml:"currency"`
	Timeout   int    `yaml:"timeout"` // seconds
}

type ShippingConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	PickupName    string `yaml:"pickup_name"`
	WebhookSecret string `yaml:"webhook_secret"`
	Timeout       int    `yaml:"timeout"` // seconds
}

type ChatConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Database DBConfig       `yaml:"database"`
	Logger   LogConfig      `yaml:"logger"`
	Smtp     SmtpConfig     `yaml:"smtp"`
	Payment  PaymentConfig  `yaml:"payment"`
	Shipping ShippingConfig `yaml:"shipping"`
	Chat     ChatConfig     `yaml:"chat"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Storefront",
		Location: "Asia/Kolkata",
		Workdir:  "/var/storefront",
		Debug:    true,
	},
	Web: WebConfig{
		Host:     "0.0.0.0",
		Port:     8080,
		Secret:   "9b6de5cc-0731-4bf1-b8c6-6ec1e2b6a7d0",
		BaseUrl:  "http://127.0.0.1:8080",
		AuthRate: 10,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storefront",
		User:     "postgres",
		Passwd:   "postgres",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/storefront/logs/storefront.log",
	},
	Smtp: SmtpConfig{
		Port: 587,
		From: "orders@hvacmart.in",
	},
	Payment: PaymentConfig{
		Endpoint: "https://api.razorpay.com/v1",
		Currency: "INR",
		Timeout:  15,
	},
	Shipping: ShippingConfig{
		Endpoint:   "https://apiv2.shiprocket.in/v1/external",
		PickupName: "Primary",
		Timeout:    15,
	},
}

// LoadConfig reads cfile when present, then applies environment overrides.
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "storefront.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/storefront.yml"
	}
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			panic(err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			panic(err)
		}
	}
	ApplyEnv(cfg)
	cfg.initDirs()
	return cfg
}

// ApplyEnv overrides cfg fields from STOREFRONT_* environment variables.
func ApplyEnv(cfg *AppConfig) {
	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("STOREFRONT_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvValue("STOREFRONT_DIAG_TOKEN", &cfg.System.DiagToken)

	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)
	setEnvValue("STOREFRONT_JWT_SECRET", &cfg.Web.Secret)
	setEnvValue("STOREFRONT_BASE_URL", &cfg.Web.BaseUrl)

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_URL", &cfg.Database.Url)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("STOREFRONT_SMTP_HOST", &cfg.Smtp.Host)
	setEnvIntValue("STOREFRONT_SMTP_PORT", &cfg.Smtp.Port)
	setEnvValue("STOREFRONT_SMTP_USER", &cfg.Smtp.Username)
	setEnvValue("STOREFRONT_SMTP_PWD", &cfg.Smtp.Password)
	setEnvValue("STOREFRONT_SMTP_FROM", &cfg.Smtp.From)

	setEnvValue("STOREFRONT_RAZORPAY_KEY_ID", &cfg.Payment.KeyId)
	setEnvValue("STOREFRONT_RAZORPAY_KEY_SECRET", &cfg.Payment.KeySecret)

	setEnvValue("STOREFRONT_SHIPROCKET_EMAIL", &cfg.Shipping.Email)
	setEnvValue("STOREFRONT_SHIPROCKET_PASSWORD", &cfg.Shipping.Password)
	setEnvValue("STOREFRONT_SHIPROCKET_WEBHOOK_SECRET", &cfg.Shipping.WebhookSecret)

	setEnvValue("STOREFRONT_CHAT_WEBHOOK_SECRET", &cfg.Chat.WebhookSecret)
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue == "true" || evalue == "1" || strings.EqualFold(evalue, "on")
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := strconv.Atoi(evalue)
	if err == nil {
		*val = p
	}
}
