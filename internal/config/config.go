// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Binance   ExchangeAPI     `mapstructure:"binance"`
	Bybit     ExchangeAPI     `mapstructure:"bybit"`
	Gate      ExchangeAPI     `mapstructure:"gate"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// TelegramConfig holds the bot transport configuration.
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	SessionFile string `mapstructure:"session_file"`
	AssetsDir   string `mapstructure:"assets_dir"` // payment QR images, <exchange>.jpg
	Debug       bool   `mapstructure:"debug"`
}

// ExchangeAPI holds credentials and endpoint for one exchange.
type ExchangeAPI struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Testnet   bool          `mapstructure:"testnet"`
}

// Enabled reports whether credentials are configured for this exchange.
func (e *ExchangeAPI) Enabled() bool {
	return e.APIKey != "" && e.APISecret != ""
}

// WatchConfig holds the deposit reconciliation parameters.
type WatchConfig struct {
	Asset        string        `mapstructure:"asset"`
	Rate         float64       `mapstructure:"rate"`          // fiat per unit of asset
	TolerancePct float64       `mapstructure:"tolerance_pct"` // percentage gap P
	MaxDuration  time.Duration `mapstructure:"max_duration"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Lookback     time.Duration `mapstructure:"lookback"`
	Timezone     string        `mapstructure:"timezone"` // display timezone for ledger entries
}

// RateDecimal returns the default conversion rate as decimal.Decimal.
func (c *WatchConfig) RateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Rate)
}

// TolerancePctDecimal returns the tolerance percentage as decimal.Decimal.
func (c *WatchConfig) TolerancePctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TolerancePct)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("DW")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DW_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DW_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DW_LOG_LEVEL", "LOG_LEVEL")

	// Telegram
	v.BindEnv("telegram.token", "DW_TG_TOKEN", "TG_TOKEN")
	v.BindEnv("telegram.session_file", "DW_SESSION_FILE", "SESSION_FILE_PATH")
	v.BindEnv("telegram.assets_dir", "DW_ASSETS_DIR", "ASSETS_DIR")

	// Exchange credentials
	v.BindEnv("binance.api_key", "DW_BINANCE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("binance.api_secret", "DW_BINANCE_API_SECRET", "BINANCE_API_SECRET")
	v.BindEnv("binance.base_url", "DW_BINANCE_BASE_URL", "BINANCE_BASE_URL")
	v.BindEnv("bybit.api_key", "DW_BYBIT_API_KEY", "BYBIT_API_KEY")
	v.BindEnv("bybit.api_secret", "DW_BYBIT_API_SECRET", "BYBIT_API_SECRET")
	v.BindEnv("bybit.base_url", "DW_BYBIT_BASE_URL", "BYBIT_BASE_URL")
	v.BindEnv("bybit.testnet", "DW_BYBIT_TESTNET", "BYBIT_TESTNET")
	v.BindEnv("gate.api_key", "DW_GATE_API_KEY", "GATE_API_KEY")
	v.BindEnv("gate.api_secret", "DW_GATE_API_SECRET", "GATE_API_SECRET")
	v.BindEnv("gate.base_url", "DW_GATE_BASE_URL", "GATE_BASE_URL")

	// Watch
	v.BindEnv("watch.rate", "DW_RATE")
	v.BindEnv("watch.tolerance_pct", "DW_TOLERANCE_PCT")
	v.BindEnv("watch.max_duration", "DW_MAX_DURATION")
	v.BindEnv("watch.poll_interval", "DW_POLL_INTERVAL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DW_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DW_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "DW_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "depositwatch")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Telegram defaults
	v.SetDefault("telegram.session_file", "session.json")
	v.SetDefault("telegram.assets_dir", "assets")
	v.SetDefault("telegram.debug", false)

	// Exchange defaults
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", "10s")
	v.SetDefault("bybit.base_url", "https://api.bybit.com")
	v.SetDefault("bybit.timeout", "10s")
	v.SetDefault("gate.base_url", "https://api.gateio.ws")
	v.SetDefault("gate.timeout", "10s")

	// Watch defaults
	v.SetDefault("watch.asset", "USDT")
	v.SetDefault("watch.rate", 25700)
	v.SetDefault("watch.tolerance_pct", 98)
	v.SetDefault("watch.max_duration", "3m")
	v.SetDefault("watch.poll_interval", "5s")
	v.SetDefault("watch.lookback", "3m")
	v.SetDefault("watch.timezone", "Asia/Ho_Chi_Minh")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "depositwatch")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Errors here abort startup.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if !c.Binance.Enabled() && !c.Bybit.Enabled() && !c.Gate.Enabled() {
		return fmt.Errorf("at least one exchange must have api_key and api_secret configured")
	}
	if c.Watch.Asset == "" {
		return fmt.Errorf("watch.asset cannot be empty")
	}
	if c.Watch.Rate <= 0 {
		return fmt.Errorf("watch.rate must be positive, got %v", c.Watch.Rate)
	}
	if c.Watch.TolerancePct <= 0 || c.Watch.TolerancePct > 100 {
		return fmt.Errorf("watch.tolerance_pct must be in (0, 100], got %v", c.Watch.TolerancePct)
	}
	if c.Watch.MaxDuration <= 0 {
		return fmt.Errorf("watch.max_duration must be positive")
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive")
	}
	if c.Watch.Lookback <= 0 {
		return fmt.Errorf("watch.lookback must be positive")
	}
	if _, err := time.LoadLocation(c.Watch.Timezone); err != nil {
		return fmt.Errorf("invalid watch.timezone %q: %w", c.Watch.Timezone, err)
	}
	return nil
}
