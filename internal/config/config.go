package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Quotes      QuotesConfig      `mapstructure:"quotes"`
	Spectral    SpectralConfig    `mapstructure:"spectral"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL string `mapstructure:"cache_ttl"`
}

// QuotesConfig points at the quote service the fetcher talks to.
type QuotesConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

// SpectralConfig holds the trend/cycle decomposition parameters. The
// engine itself takes these as explicit arguments; this struct is only
// how they arrive from the config file.
type SpectralConfig struct {
	Symbols     []string `mapstructure:"symbols"`
	Years       int      `mapstructure:"years"`
	Components  int      `mapstructure:"components"`
	Horizon     int      `mapstructure:"horizon"`
	Frequencies []string `mapstructure:"frequencies"`
}

// CorrelationConfig holds the Cauchy kernel sweep parameters.
type CorrelationConfig struct {
	Symbol         string  `mapstructure:"symbol"`
	Years          int     `mapstructure:"years"`
	Frequency      string  `mapstructure:"frequency"`
	WindowDays     int     `mapstructure:"window_days"`
	XMin           float64 `mapstructure:"x_min"`
	XMax           float64 `mapstructure:"x_max"`
	Centers        int     `mapstructure:"centers"`
	Gammas         int     `mapstructure:"gammas"`
	GammaMin       float64 `mapstructure:"gamma_min"`
	GammaMax       float64 `mapstructure:"gamma_max"`
	SweepMode      string  `mapstructure:"sweep_mode"`
	Workers        int     `mapstructure:"workers"`
	IntensityPower float64 `mapstructure:"intensity_power"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

type SMTPConfig struct {
	Host       string   `mapstructure:"host"`
	Port       int      `mapstructure:"port"`
	Sender     string   `mapstructure:"sender"`
	Password   string   `mapstructure:"password" json:"-" yaml:"-"`
	Recipients []string `mapstructure:"recipients"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("smtp.password", "SMTP_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind SMTP_PASSWORD environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the scalar analysis parameters before any run uses
// them, so a bad deployment fails at startup rather than mid-cycle.
func (c *Config) Validate() error {
	if c.Spectral.Components < 1 {
		return fmt.Errorf("spectral.components must be positive, got %d", c.Spectral.Components)
	}
	if c.Spectral.Horizon < 1 {
		return fmt.Errorf("spectral.horizon must be positive, got %d", c.Spectral.Horizon)
	}
	if c.Correlation.WindowDays < 2 {
		return fmt.Errorf("correlation.window_days must be at least 2, got %d", c.Correlation.WindowDays)
	}
	if c.Correlation.GammaMin <= 0 {
		return fmt.Errorf("correlation.gamma_min must be positive, got %v", c.Correlation.GammaMin)
	}
	switch c.Correlation.SweepMode {
	case "latest", "all":
	default:
		return fmt.Errorf("correlation.sweep_mode must be \"latest\" or \"all\", got %q", c.Correlation.SweepMode)
	}
	if c.Scheduler.Interval != "" {
		if _, err := time.ParseDuration(c.Scheduler.Interval); err != nil {
			return fmt.Errorf("invalid scheduler interval: %w", err)
		}
	}
	if c.Redis.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Redis.CacheTTL); err != nil {
			return fmt.Errorf("invalid redis cache TTL: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "option_analysis")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 4)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "24h")

	viper.SetDefault("quotes.service_url", "http://localhost:3001")
	viper.SetDefault("quotes.timeout", 30)

	viper.SetDefault("spectral.symbols", []string{"399006.SZ"})
	viper.SetDefault("spectral.years", 15)
	viper.SetDefault("spectral.components", 6)
	viper.SetDefault("spectral.horizon", 30)
	viper.SetDefault("spectral.frequencies", []string{"D", "W"})

	viper.SetDefault("correlation.symbol", "399006.SZ")
	viper.SetDefault("correlation.years", 2)
	viper.SetDefault("correlation.frequency", "D")
	viper.SetDefault("correlation.window_days", 11)
	viper.SetDefault("correlation.x_min", -10.0)
	viper.SetDefault("correlation.x_max", 10.0)
	viper.SetDefault("correlation.centers", 11)
	viper.SetDefault("correlation.gammas", 8)
	viper.SetDefault("correlation.gamma_min", 0.5)
	viper.SetDefault("correlation.gamma_max", 4.0)
	viper.SetDefault("correlation.sweep_mode", "latest")
	viper.SetDefault("correlation.workers", 4)
	viper.SetDefault("correlation.intensity_power", 2.0)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.interval", "24h")

	viper.SetDefault("smtp.host", "")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.sender", "")
	viper.SetDefault("smtp.recipients", []string{})

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)
}
