package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// HTTP Server Configuration
	HTTPPort         string        `env:"HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"` // streams stay open
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// MongoDB Configuration
	MongoEnabled  bool          `env:"MONGO_ENABLED" envDefault:"true"`
	MongoURI      string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/adbfleet?authSource=admin"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"adbfleet"`
	MongoTimeout  time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`

	// Connection pool bounds
	MongoMaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE" envDefault:"20"`
	MongoMinPoolSize uint64 `env:"MONGO_MIN_POOL_SIZE" envDefault:"2"`

	// Redis Configuration (lifecycle events, disabled when empty)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"adbfleet:jobs"`

	// ADB Configuration
	ADBPath           string        `env:"ADB_PATH" envDefault:"adb"`
	ADBCommandTimeout time.Duration `env:"ADB_COMMAND_TIMEOUT" envDefault:"30s"`

	// Job Configuration
	Jobs JobConfig

	// Live Stream Configuration
	Stream StreamConfig

	// Metadata Lookup Configuration
	YouTubeAPIKey   string        `env:"YOUTUBE_API_KEY"`
	YouTubeAPIURL   string        `env:"YOUTUBE_API_URL" envDefault:"https://www.googleapis.com/youtube/v3/videos"`
	YtDlpPath       string        `env:"YTDLP_PATH"`
	MetadataTimeout time.Duration `env:"METADATA_TIMEOUT" envDefault:"10s"`

	// Webhook Configuration
	JobWebhookURL  string        `env:"JOB_WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	WebhookRetries int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`
	WebhookBackoff time.Duration `env:"WEBHOOK_INITIAL_DELAY" envDefault:"1s"`
	WebhookMaxWait time.Duration `env:"WEBHOOK_MAX_DELAY" envDefault:"30s"`

	// Worker Pool Configuration (custom command fan-out)
	WorkerPoolSize  int `env:"WORKER_POOL_SIZE" envDefault:"8"`
	WorkerQueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"256"`

	// Logging Configuration
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORS Configuration
	CORSAllowedOrigins   string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	CORSAllowedMethods   string `env:"CORS_ALLOWED_METHODS" envDefault:"GET, POST, PUT, DELETE, OPTIONS"`
	CORSAllowedHeaders   string `env:"CORS_ALLOWED_HEADERS" envDefault:"*"`
	CORSAllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	CORSMaxAge           int    `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// JobConfig holds the timing and policy knobs of the job engine
type JobConfig struct {
	DurationBuffer    time.Duration `env:"JOB_DURATION_BUFFER" envDefault:"30s"`
	DefaultDuration   time.Duration `env:"JOB_DEFAULT_DURATION" envDefault:"180s"`
	ProbeInterval     time.Duration `env:"JOB_PROBE_INTERVAL" envDefault:"15s"`
	MessageInterval   time.Duration `env:"JOB_MESSAGE_INTERVAL" envDefault:"30s"`
	DeviceSpacing     time.Duration `env:"JOB_DEVICE_SPACING" envDefault:"2s"`
	SettleDelay       time.Duration `env:"JOB_SETTLE_DELAY" envDefault:"5s"`
	DurationPolicy    string        `env:"JOB_DURATION_POLICY" envDefault:"fallback"`
	Retention         time.Duration `env:"JOB_RETENTION" envDefault:"24h"`
	RetentionSchedule string        `env:"JOB_RETENTION_SCHEDULE" envDefault:"@every 10m"`
	ScriptCatalogPath string        `env:"SCRIPT_CATALOG_PATH"`
}

// StreamConfig holds the live stream loop timings
type StreamConfig struct {
	FrameInterval time.Duration `env:"STREAM_FRAME_INTERVAL" envDefault:"2s"`
	RetryDelay    time.Duration `env:"STREAM_RETRY_DELAY" envDefault:"1s"`
	MaxFailures   int           `env:"STREAM_MAX_FAILURES" envDefault:"5"`
	TempDir       string        `env:"STREAM_TEMP_DIR"`
}

// Load reads configuration from the environment, after loading a .env file if present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be expressed as struct tags
func (c *Config) Validate() error {
	switch c.Jobs.DurationPolicy {
	case "fallback", "report", "fail":
	default:
		return fmt.Errorf("invalid JOB_DURATION_POLICY %q (must be fallback, report or fail)", c.Jobs.DurationPolicy)
	}
	if c.Stream.MaxFailures < 1 {
		return fmt.Errorf("STREAM_MAX_FAILURES must be at least 1")
	}
	if c.ADBCommandTimeout <= 0 {
		return fmt.Errorf("ADB_COMMAND_TIMEOUT must be positive")
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1")
	}
	if c.JobWebhookURL != "" && c.WebhookRetries < 1 {
		return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
