package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Env       string
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Log       LogConfig
	Currency  CurrencyConfig
	Storage   StorageConfig
	OCR       OCRConfig
	Recurring RecurringConfig
	Jobs      JobsConfig
	BigQuery  BigQueryConfig
	Notion    NotionConfig
	Telemetry TelemetryConfig
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// CurrencyConfig holds account and rate settings.
type CurrencyConfig struct {
	DefaultAccountCurrency string
	ReportingCurrency      string
	RatesAPIURL            string
	RatesCacheTTL          time.Duration
}

// StorageConfig holds receipt storage settings. An empty bucket selects the mock store.
type StorageConfig struct {
	Bucket string
}

// OCRConfig selects the receipt extractor.
type OCRConfig struct {
	Provider string
	Model    string
}

// RecurringConfig holds the recurring runner schedule.
type RecurringConfig struct {
	Enabled  bool
	Schedule string
}

// JobsConfig holds in-process job queue settings.
type JobsConfig struct {
	BufferSize int
	Workers    int
	MaxRetries int
}

// BigQueryConfig holds analytics export settings.
type BigQueryConfig struct {
	ProjectID string
	Dataset   string
}

// NotionConfig holds Notion export settings.
type NotionConfig struct {
	Token      string
	DatabaseID string
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from .env, an optional config file and the environment.
// Env var overrides use prefix BUDGETIQ_; a handful of conventional unprefixed
// names (DATABASE_URL, JWT_SECRET, PORT, ...) are honoured as well.
func Load() (Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if cfgPath := os.Getenv("BUDGETIQ_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("BUDGETIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range unprefixedEnv {
		if err := v.BindEnv(key, "BUDGETIQ_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Currency.DefaultAccountCurrency = strings.ToUpper(c.Currency.DefaultAccountCurrency)
	c.Currency.ReportingCurrency = strings.ToUpper(c.Currency.ReportingCurrency)
	return c, nil
}

var unprefixedEnv = map[string]string{
	"env":                  "APP_ENV",
	"http.port":            "PORT",
	"database.url":         "DATABASE_URL",
	"auth.jwtsecret":       "JWT_SECRET",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"storage.bucket":       "GCS_BUCKET",
	"ocr.provider":         "OCR_PROVIDER",
	"currency.ratesapiurl": "RATES_API_URL",
	"bigquery.projectid":   "GOOGLE_CLOUD_PROJECT",
	"notion.token":         "NOTION_TOKEN",
	"notion.databaseid":    "NOTION_DATABASE_ID",
	"telemetry.enabled":    "OTEL_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.readtimeout", 15*time.Second)
	v.SetDefault("http.writetimeout", 15*time.Second)
	v.SetDefault("http.idletimeout", 60*time.Second)
	v.SetDefault("http.shutdowntimeout", 30*time.Second)
	v.SetDefault("http.allowedorigin", "*")

	v.SetDefault("database.url", "")
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.minconns", 0)
	v.SetDefault("database.maxconnlifetime", time.Hour)

	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", 7*24*time.Hour)
	v.SetDefault("auth.bcryptcost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("currency.defaultaccountcurrency", "INR")
	v.SetDefault("currency.reportingcurrency", "INR")
	v.SetDefault("currency.ratesapiurl", "")
	v.SetDefault("currency.ratescachettl", time.Hour)

	v.SetDefault("storage.bucket", "")

	v.SetDefault("ocr.provider", "mock")
	v.SetDefault("ocr.model", "gemini-2.5-flash")

	v.SetDefault("recurring.enabled", true)
	v.SetDefault("recurring.schedule", "@hourly")

	v.SetDefault("jobs.buffersize", 100)
	v.SetDefault("jobs.workers", 5)
	v.SetDefault("jobs.maxretries", 3)

	v.SetDefault("bigquery.projectid", "")
	v.SetDefault("bigquery.dataset", "budgetiq")

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.databaseid", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.servicename", "budgetiq-api")
}

// Validate reports missing settings the API server cannot run without.
func (c Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Production() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	return nil
}
