package domain

import "time"

// Config holds the complete tariffkit configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Rate schedule ingestion
	Schedule ScheduleConfig `json:"schedule"`

	// Offer document generation
	Document DocumentConfig `json:"document"`

	// Q&A advisor
	Advisor AdvisorConfig `json:"advisor"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// RateLimit is the per-agency request budget per minute; 0 disables.
	RateLimit int `json:"rateLimit"`
}

// ScheduleConfig holds rate-workbook ingestion settings.
type ScheduleConfig struct {
	// WorkbookPath is the xlsx rate schedule with one sheet per
	// product variant. Loaded at startup when set; the database copy
	// is authoritative afterwards.
	WorkbookPath string `json:"workbookPath"`
}

// DocumentConfig holds offer-document settings.
type DocumentConfig struct {
	// TemplatePath is the docx offer template with {Placeholder} keys.
	TemplatePath string `json:"templatePath"`

	// OutputDir is where populated offers are written.
	OutputDir string `json:"outputDir"`
}

// AdvisorConfig holds Q&A advisor settings.
type AdvisorConfig struct {
	// ReferencePath is the product reference text searched for
	// passages relevant to a customer question.
	ReferencePath string `json:"referencePath"`

	// Model is the chat-completion model name.
	Model string `json:"model"`

	// BaseURL of the OpenAI-compatible API. The key comes from the
	// TARIFFKIT_OPENAI_KEY environment variable, never from config.
	BaseURL string `json:"baseUrl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			RateLimit:    120,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./tariffkit.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Schedule: ScheduleConfig{
			WorkbookPath: "./ergo.xlsx",
		},
		Document: DocumentConfig{
			TemplatePath: "./angebot.docx",
			OutputDir:    ".",
		},
		Advisor: AdvisorConfig{
			ReferencePath: "./tarife.txt",
			Model:         "gpt-4-turbo",
			BaseURL:       "https://api.openai.com/v1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "tariffkit",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "tariffkit",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
