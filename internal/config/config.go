package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"asset-insights/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Logging        logging.Config       `mapstructure:"logging"`
	Input          InputConfig          `mapstructure:"input"`
	Output         OutputConfig         `mapstructure:"output"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Remediation    RemediationConfig    `mapstructure:"remediation"`
	Features       FeaturesConfig       `mapstructure:"features"`
	Pipeline       PipelineConfig       `mapstructure:"pipeline"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Notify         NotifyConfig         `mapstructure:"notify"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// InputConfig locates the raw long-format table.
type InputConfig struct {
	Path        string   `mapstructure:"path"`
	Sheet       string   `mapstructure:"sheet"`
	DateLayouts []string `mapstructure:"date_layouts"`
}

// OutputConfig locates the published artifacts. Empty paths are skipped.
type OutputConfig struct {
	Path      string `mapstructure:"path"`
	XLSXPath  string `mapstructure:"xlsx_path"`
	AuditPath string `mapstructure:"audit_path"`
	ChartDir  string `mapstructure:"chart_dir"`
}

// ClassificationConfig points at the instrument classification file. The
// built-in universe is used when Path is empty.
type ClassificationConfig struct {
	Path string `mapstructure:"path"`
}

// RemediationConfig holds the per-class missing-price thresholds.
type RemediationConfig struct {
	CryptoMaxMissing float64 `mapstructure:"crypto_max_missing"`
	EquityMaxMissing float64 `mapstructure:"equity_max_missing"`
	ETFMaxMissing    float64 `mapstructure:"etf_max_missing"`
}

// FeaturesConfig tunes the volatility statistics.
type FeaturesConfig struct {
	Window      int `mapstructure:"window"`
	TradingDays int `mapstructure:"trading_days"`
}

// PipelineConfig sizes the worker pool. Zero means one worker per CPU.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
}

// MetricsConfig controls the node-exporter textfile written after a run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// NotifyConfig routes run summaries.
type NotifyConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ASSETINSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "asset-insights")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("input.path", "data/raw.csv")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.date_layouts", []string{})

	v.SetDefault("output.path", "data/enriched.csv")
	v.SetDefault("output.xlsx_path", "")
	v.SetDefault("output.audit_path", "data/audit.md")
	v.SetDefault("output.chart_dir", "charts")

	v.SetDefault("classification.path", "")

	v.SetDefault("remediation.crypto_max_missing", 0.50)
	v.SetDefault("remediation.equity_max_missing", 0.60)
	v.SetDefault("remediation.etf_max_missing", 0.60)

	v.SetDefault("features.window", 30)
	v.SetDefault("features.trading_days", 252)

	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x41535349))
	v.SetDefault("database.publish_timeout", "5m")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("notify.telegram.timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"remediation.crypto_max_missing": c.Remediation.CryptoMaxMissing,
		"remediation.equity_max_missing": c.Remediation.EquityMaxMissing,
		"remediation.etf_max_missing":    c.Remediation.ETFMaxMissing,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1]", name)
		}
	}
	if c.Features.Window < 2 {
		return fmt.Errorf("features.window must be at least 2")
	}
	if c.Features.TradingDays <= 0 {
		return fmt.Errorf("features.trading_days must be greater than zero")
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers cannot be negative")
	}
	if c.Notify.Enabled && c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveWorkers returns either the CLI override or config default.
func (c *Config) ResolveWorkers(override int) int {
	if override > 0 {
		return override
	}
	return c.Pipeline.Workers
}
