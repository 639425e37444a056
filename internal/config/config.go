package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Reply backends
const (
	ReplyGemini = "gemini"
	ReplyAzure  = "azure"
	ReplyMock   = "mock"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Gateway  GatewayConfig
	Gemini   GeminiConfig
	Azure    AzureConfig
	Location LocationConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// StoreConfig selects and configures the persisted store backend
type StoreConfig struct {
	Backend       string
	Path          string
	EncryptionKey string // base64 AES-256 key; empty disables encryption
	Redis         RedisConfig
	Postgres      PostgresConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	URL             string
	Table           string
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

// GatewayConfig picks the backend for streamed replies
type GatewayConfig struct {
	Backend string
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	ReasoningModel string
	LocationModel  string
	UtilityModel   string
	SpeechModel    string
	Voice          string
	Temperature    float32
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Speech  SpeechConfig
	Storage StorageConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// Enabled reports whether Azure OpenAI is configured
func (c OpenAIConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != "" && c.Deployment != ""
}

// SpeechConfig holds Azure Speech Service configuration
type SpeechConfig struct {
	SubscriptionKey string
	Region          string
}

// Enabled reports whether Azure Speech is configured
func (c SpeechConfig) Enabled() bool {
	return c.SubscriptionKey != "" && c.Region != ""
}

// StorageConfig holds Azure Blob Storage configuration
type StorageConfig struct {
	AccountName     string
	AccountKey      string
	ReportContainer string
}

// Enabled reports whether report archiving is configured
func (c StorageConfig) Enabled() bool {
	return c.AccountName != "" && c.AccountKey != ""
}

// LocationConfig holds an optional fixed device position for headless use
type LocationConfig struct {
	Latitude  *float64
	Longitude *float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and an optional config file
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which may carry overrides
func LoadFrom(v *viper.Viper) (*Config, error) {
	// Set default values
	setDefaults(v)

	v.SetConfigName("mediguide")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.alloworigins", []string{"http://localhost:3000"})

	// Store defaults
	v.SetDefault("store.backend", StoreSQLite)
	v.SetDefault("store.path", "mediguide.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.namespace", "mediguide")
	v.SetDefault("store.postgres.table", "mediguide_kv")
	v.SetDefault("store.postgres.maxconns", 5)
	v.SetDefault("store.postgres.connmaxlifetime", 5*time.Minute)

	// Gateway defaults
	v.SetDefault("gateway.backend", ReplyGemini)
	v.SetDefault("gemini.reasoningmodel", "gemini-3.1-pro-preview")
	v.SetDefault("gemini.locationmodel", "gemini-2.5-flash")
	v.SetDefault("gemini.utilitymodel", "gemini-3.1-pro-preview")
	v.SetDefault("gemini.speechmodel", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini.voice", "Kore")
	v.SetDefault("gemini.temperature", 0.4)

	// Azure Storage defaults
	v.SetDefault("azure.storage.reportcontainer", "health-reports")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Store
	v.BindEnv("store.backend", "STORE_BACKEND")
	v.BindEnv("store.path", "STORE_PATH")
	v.BindEnv("store.encryptionkey", "STORE_ENCRYPTION_KEY")
	v.BindEnv("store.redis.addr", "REDIS_ADDR")
	v.BindEnv("store.redis.password", "REDIS_PASSWORD")
	v.BindEnv("store.redis.db", "REDIS_DB")
	v.BindEnv("store.postgres.url", "DATABASE_URL")

	// Gemini
	v.BindEnv("gateway.backend", "REPLY_BACKEND")
	v.BindEnv("gemini.apikey", "GEMINI_API_KEY", "API_KEY")
	v.BindEnv("gemini.baseurl", "GEMINI_BASE_URL")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")

	// Azure Speech
	v.BindEnv("azure.speech.subscriptionkey", "AZURE_SPEECH_KEY")
	v.BindEnv("azure.speech.region", "AZURE_SPEECH_REGION")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")

	// Location
	v.BindEnv("location.latitude", "DEVICE_LATITUDE")
	v.BindEnv("location.longitude", "DEVICE_LONGITUDE")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case StorePostgres:
		if c.Store.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want one of %s)", c.Store.Backend,
			strings.Join([]string{StoreSQLite, StoreMemory, StoreRedis, StorePostgres}, ", "))
	}

	switch c.Gateway.Backend {
	case ReplyGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.apikey is required for the gemini backend")
		}
	case ReplyAzure:
		if !c.Azure.OpenAI.Enabled() {
			return fmt.Errorf("azure.openai endpoint, apikey and deployment are required for the azure backend")
		}
	case ReplyMock:
	default:
		return fmt.Errorf("unknown reply backend %q", c.Gateway.Backend)
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini.temperature must be between 0 and 2")
	}

	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("location.latitude and location.longitude must be set together")
	}
	if c.Location.Latitude != nil {
		if *c.Location.Latitude < -90 || *c.Location.Latitude > 90 {
			return fmt.Errorf("location.latitude out of range")
		}
		if *c.Location.Longitude < -180 || *c.Location.Longitude > 180 {
			return fmt.Errorf("location.longitude out of range")
		}
	}

	if c.Azure.Storage.AccountName != "" && c.Azure.Storage.AccountKey == "" {
		return fmt.Errorf("azure.storage.accountkey is required when an account name is set")
	}

	return nil
}
