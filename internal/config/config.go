package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Reports    ReportsConfig    `yaml:"reports" mapstructure:"reports"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates snapshot files on disk.
type DataConfig struct {
	RawDir       string `yaml:"raw_dir" mapstructure:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
}

// AnalysisConfig tunes the metrics and change-detection layers.
type AnalysisConfig struct {
	TrackedFields  []string `yaml:"tracked_fields" mapstructure:"tracked_fields"`
	StageOrder     []string `yaml:"stage_order" mapstructure:"stage_order"`
	StagnantDays   int      `yaml:"stagnant_days" mapstructure:"stagnant_days"`
	WarningDays    int      `yaml:"warning_days" mapstructure:"warning_days"`
	KPICatalogPath string   `yaml:"kpi_catalog_path" mapstructure:"kpi_catalog_path"`
}

// ReportsConfig locates generated report artifacts.
type ReportsConfig struct {
	WeeklyDir  string `yaml:"weekly_dir" mapstructure:"weekly_dir"`
	MonthlyDir string `yaml:"monthly_dir" mapstructure:"monthly_dir"`
	HTMLDir    string `yaml:"html_dir" mapstructure:"html_dir"`
	CardsDir   string `yaml:"cards_dir" mapstructure:"cards_dir"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the analysis API server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	SubmitRPS float64 `yaml:"submit_rps" mapstructure:"submit_rps"`
}

// SalesforceConfig holds Salesforce JWT auth settings for direct fetch.
type SalesforceConfig struct {
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	RateRPS  float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	// MaxRetries counts attempts, including the first.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.processed_dir", "data/processed")
	v.SetDefault("analysis.tracked_fields", []string{"Stage", "Responsible", "USD", "CloseDate", "KPI"})
	v.SetDefault("analysis.stagnant_days", 30)
	v.SetDefault("analysis.warning_days", 7)
	v.SetDefault("reports.weekly_dir", "reports/weekly")
	v.SetDefault("reports.monthly_dir", "reports/monthly")
	v.SetDefault("reports.html_dir", "reports/html")
	v.SetDefault("reports.cards_dir", "reports/cards")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "kpi-report.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.submit_rps", 1)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_rps", 5)
	v.SetDefault("salesforce.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
