// internal/config/config.go

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Collection  CollectionConfig
	Analysis    AnalysisConfig
	Report      ReportConfig
	LLM         LLMConfig
	Email       EmailConfig
	Scrapers    ScrapersConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// DSN returns the postgres connection string
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// CollectionConfig holds aggregator configuration
type CollectionConfig struct {
	MaxConcurrent int
	SourceTimeout time.Duration
}

// AnalysisConfig holds analysis cycle configuration
type AnalysisConfig struct {
	StageTimeout time.Duration
}

// ReportConfig holds digest configuration
type ReportConfig struct {
	Lookback     time.Duration
	StageTimeout time.Duration
	DashboardURL string
}

// LLMConfig holds reasoner configuration
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	FromName      string
	MaxConcurrent int
}

// ScrapersConfig holds collector configuration
type ScrapersConfig struct {
	TwitterBearerToken string
	Subreddits         []string
	RequestTimeout     time.Duration
	UserAgent          string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 5000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "trendscope"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "trendscope"),
		},
		Collection: CollectionConfig{
			MaxConcurrent: getEnvAsInt("COLLECTION_MAX_CONCURRENT", 5),
			SourceTimeout: getEnvAsDuration("COLLECTION_SOURCE_TIMEOUT", 2*time.Minute),
		},
		Analysis: AnalysisConfig{
			StageTimeout: getEnvAsDuration("ANALYSIS_STAGE_TIMEOUT", 5*time.Minute),
		},
		Report: ReportConfig{
			Lookback:     time.Duration(getEnvAsInt("REPORT_LOOKBACK_HOURS", 24)) * time.Hour,
			StageTimeout: getEnvAsDuration("REPORT_STAGE_TIMEOUT", 5*time.Minute),
			DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:5000"),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			APIURL:  getEnv("OPENAI_API_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 2*time.Minute),
		},
		Email: EmailConfig{
			Host:          getEnv("SMTP_HOST", ""),
			Port:          getEnvAsInt("SMTP_PORT", 587),
			User:          getEnv("SMTP_USER", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("EMAIL_FROM", ""),
			FromName:      getEnv("EMAIL_FROM_NAME", "TrendScope"),
			MaxConcurrent: getEnvAsInt("EMAIL_MAX_CONCURRENT", 5),
		},
		Scrapers: ScrapersConfig{
			TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			Subreddits:         getEnvAsSlice("REDDIT_SUBREDDITS", nil),
			RequestTimeout:     getEnvAsDuration("SCRAPER_REQUEST_TIMEOUT", 15*time.Second),
			UserAgent:          getEnv("SCRAPER_USER_AGENT", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("DB_HOST must be set when STORAGE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	timeouts := map[string]time.Duration{
		"COLLECTION_SOURCE_TIMEOUT": config.Collection.SourceTimeout,
		"ANALYSIS_STAGE_TIMEOUT":    config.Analysis.StageTimeout,
		"REPORT_STAGE_TIMEOUT":      config.Report.StageTimeout,
		"REPORT_LOOKBACK_HOURS":     config.Report.Lookback,
		"SERVER_SHUTDOWN_TIMEOUT":   config.Server.ShutdownTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
