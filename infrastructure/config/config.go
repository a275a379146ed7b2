package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "ontograph/domain/config"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment names a deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// StoreBackend selects the snapshot store implementation
type StoreBackend string

const (
	StoreDynamoDB StoreBackend = "dynamodb"
	StoreSQLite   StoreBackend = "sqlite"
	StoreMemory   StoreBackend = "memory"
	StoreHTTP     StoreBackend = "http"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string      `yaml:"server_address"`
	Environment   Environment `yaml:"environment" validate:"oneof=development staging production"`

	// Storage
	Store         StoreBackend `yaml:"store" validate:"oneof=dynamodb sqlite memory http"`
	AWSRegion     string       `yaml:"aws_region"`
	DynamoDBTable string       `yaml:"dynamodb_table"`
	EventBusName  string       `yaml:"event_bus_name"`
	CachePath     string       `yaml:"cache_path"`
	BackendURL    string       `yaml:"backend_url"`
	BackendToken  string       `yaml:"-"`

	// Resilience around backend writes
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures" validate:"min=1"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
	RetryAttempts      int           `yaml:"retry_attempts" validate:"min=1"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`

	// Lambda configuration
	IsLambda bool `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwt_issuer"`
	// RateLimitPerMinute caps API requests per user; 0 disables the limit
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" validate:"min=0"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	EnableCORS    bool   `yaml:"enable_cors"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	// CORSOrigins lists the browser origins allowed to call the API
	CORSOrigins []string `yaml:"cors_origins"`

	// ConfigFile is the YAML file this configuration was layered from
	ConfigFile string `yaml:"-"`

	Editor *domainconfig.EditorConfig `yaml:"editor"`
}

var validate = validator.New()

// Defaults returns the configuration used before any file or environment
// variable is applied
func Defaults() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        Development,
		Store:              StoreMemory,
		AWSRegion:          "us-west-2",
		DynamoDBTable:      "ontograph",
		EventBusName:       "ontograph-events",
		CachePath:          "ontograph-cache.db",
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
		RetryAttempts:      3,
		RetryBaseDelay:     100 * time.Millisecond,
		LogLevel:           "info",
		JWTIssuer:          "ontograph",
		RateLimitPerMinute: 120,
		EnableCORS:         true,
		CORSOrigins:        []string{"http://localhost:3000"},
		Editor:             domainconfig.DefaultEditorConfig(),
	}
}

// LoadConfig loads defaults, then the YAML file named by CONFIG_FILE, then
// environment variables
func LoadConfig() (*Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// LoadFrom layers the given YAML file (optional) and the environment over
// the defaults
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	env := Environment(getEnv("ENVIRONMENT", string(Development)))
	cfg.Environment = env
	cfg.Editor = domainconfig.LoadEditorConfig(string(env))

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if c.Editor == nil {
		c.Editor = domainconfig.DefaultEditorConfig()
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = Environment(getEnv("ENVIRONMENT", string(c.Environment)))
	c.Store = StoreBackend(getEnv("STORE_BACKEND", string(c.Store)))
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.CachePath = getEnv("CACHE_PATH", c.CachePath)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.BackendToken = getEnv("BACKEND_TOKEN", c.BackendToken)

	c.BreakerMaxFailures = uint32(getEnvInt("BREAKER_MAX_FAILURES", int(c.BreakerMaxFailures)))
	c.BreakerOpenTimeout = getEnvDuration("BREAKER_OPEN_TIMEOUT", c.BreakerOpenTimeout)
	c.RetryAttempts = getEnvInt("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryBaseDelay = getEnvDuration("RETRY_BASE_DELAY", c.RetryBaseDelay)

	c.IsLambda = getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}

	// Editor overrides
	c.Editor.DebounceWindow = getEnvDuration("AUTOSAVE_DEBOUNCE", c.Editor.DebounceWindow)
	c.Editor.MaxSaveRetries = getEnvInt("AUTOSAVE_MAX_RETRIES", c.Editor.MaxSaveRetries)
	c.Editor.GridSize = getEnvInt("GRID_SIZE", c.Editor.GridSize)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}

	switch c.Store {
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	case StoreSQLite:
		if c.CachePath == "" {
			return fmt.Errorf("CACHE_PATH is required for the sqlite store")
		}
	case StoreHTTP:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required for the http store")
		}
	}

	if c.Environment == Production && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
