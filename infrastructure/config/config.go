package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Archive drivers
const (
	ArchiveNone     = "none"
	ArchiveSQLite   = "sqlite"
	ArchiveDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
	LogFile  string

	// HTTP edge
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Session API proxy
	XpertAPIKey string
	XpertAPIURL string
	XpertID     string

	// Sessions
	SessionSecret string

	// Archive
	ArchiveDriver string
	SQLitePath    string
	DynamoDBTable string
	AWSRegion     string

	// Events
	EventBusName string

	// Tracing
	EnableTracing bool
	OTLPEndpoint  string

	// Limits, optionally overlaid from ConfigFile
	ConfigFile string
	Limits     Limits
}

// Limits holds the runtime-adjustable mindmap limits. Zero disables a limit.
type Limits struct {
	MaxTextLength      int `yaml:"max_text_length"`
	MaxBranchSize      int `yaml:"max_branch_size"`
	MaxNodesPerMindmap int `yaml:"max_nodes_per_mindmap"`
}

// fileConfig is the layout of CONFIG_FILE
type fileConfig struct {
	Limits Limits `yaml:"limits"`
}

// LoadConfig loads configuration from environment variables, then overlays
// the limits block of CONFIG_FILE when one is set.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 45*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),

		XpertAPIKey: getEnv("XPERTAI_API_KEY", ""),
		XpertAPIURL: strings.TrimRight(getEnv("XPERTAI_API_URL", "https://api.xpertai.com"), "/"),
		XpertID:     getEnv("XPERT_ID", ""),

		SessionSecret: getEnv("SESSION_SECRET", ""),

		ArchiveDriver: strings.ToLower(getEnv("ARCHIVE_DRIVER", ArchiveNone)),
		SQLitePath:    getEnv("SQLITE_PATH", "mindmaps.db"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "mindmaps"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),

		EventBusName: getEnv("EVENT_BUS_NAME", ""),

		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		ConfigFile: getEnv("CONFIG_FILE", ""),
		Limits: Limits{
			MaxTextLength:      getEnvInt("MAX_TEXT_LENGTH", 1000),
			MaxBranchSize:      getEnvInt("MAX_BRANCH_SIZE", 50),
			MaxNodesPerMindmap: getEnvInt("MAX_NODES_PER_MINDMAP", 5000),
		},
	}

	if cfg.ConfigFile != "" {
		limits, err := LoadLimitsFile(cfg.ConfigFile, cfg.Limits)
		if err != nil {
			return nil, err
		}
		cfg.Limits = limits
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLimitsFile reads the limits block of a YAML file. Fields missing from
// the file keep their value in base.
func LoadLimitsFile(path string, base Limits) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	fc := fileConfig{Limits: base}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := fc.Limits.Validate(); err != nil {
		return base, fmt.Errorf("invalid limits in %s: %w", path, err)
	}
	return fc.Limits, nil
}

// Validate checks the limits are not negative
func (l Limits) Validate() error {
	if l.MaxTextLength < 0 || l.MaxBranchSize < 0 || l.MaxNodesPerMindmap < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.ArchiveDriver {
	case ArchiveNone, ArchiveSQLite, ArchiveDynamoDB:
	default:
		return fmt.Errorf("ARCHIVE_DRIVER must be one of none, sqlite, dynamodb; got %q", c.ArchiveDriver)
	}
	if c.ArchiveDriver == ArchiveSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite archive")
	}
	if c.ArchiveDriver == ArchiveDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb archive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}

	if c.IsProduction() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated environment variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
