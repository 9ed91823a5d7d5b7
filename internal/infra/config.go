package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBAutoMigrate    bool
	JWTSecret        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MetricsAddr      string
	CORSOrigins      []string

	QuotaDailyLimit int
	QuotaTimezone   string
	PromptMaxRunes  int
	StreamInterval  time.Duration

	QueueDriver  string
	QueueChannel string

	TriggerDriver       string
	WorkerBinary        string
	TriggerWebhookURL   string
	TriggerWebhookToken string

	ReconcileInterval   time.Duration
	RedispatchAfter     time.Duration
	StuckRunningAfter   time.Duration
	MaxDispatchAttempts int

	GeneratorProvider    string
	GeminiAPIKey         string
	GeminiBaseURL        string
	VeoModel             string
	VideoDurationSeconds int
	VideoAspectRatio     string
	VideoResolution      string
	VeoPollInterval      time.Duration
	GenerationTimeout    time.Duration

	StorageDriver     string
	StoragePath       string
	StorageBucket     string
	StorageBaseURL    string
	StorageSigningKey string
	SignedURLTTL      time.Duration
	S3Region          string
	S3Endpoint        string
	S3ForcePathStyle  bool
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBAutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", false),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", "*"),

		QuotaDailyLimit: getEnvInt("QUOTA_DAILY_LIMIT", 2),
		QuotaTimezone:   getEnv("QUOTA_TIMEZONE", "UTC"),
		PromptMaxRunes:  getEnvInt("PROMPT_MAX_RUNES", 1000),
		StreamInterval:  getEnvDuration("STREAM_INTERVAL", 3*time.Second),

		QueueDriver:  strings.ToLower(getEnv("QUEUE_DRIVER", "postgres")),
		QueueChannel: getEnv("QUEUE_CHANNEL", "generation_jobs"),

		TriggerDriver:       strings.ToLower(getEnv("TRIGGER_DRIVER", "exec")),
		WorkerBinary:        getEnv("WORKER_BINARY", "genvid-worker"),
		TriggerWebhookURL:   os.Getenv("TRIGGER_WEBHOOK_URL"),
		TriggerWebhookToken: os.Getenv("TRIGGER_WEBHOOK_TOKEN"),

		ReconcileInterval:   getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		RedispatchAfter:     getEnvDuration("REDISPATCH_AFTER", 5*time.Minute),
		StuckRunningAfter:   getEnvDuration("STUCK_RUNNING_AFTER", 30*time.Minute),
		MaxDispatchAttempts: getEnvInt("MAX_DISPATCH_ATTEMPTS", 3),

		GeneratorProvider:    strings.ToLower(getEnv("GENERATOR_PROVIDER", "synthetic")),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModel:             getEnv("VEO_MODEL", "veo-3.1-generate-preview"),
		VideoDurationSeconds: getEnvInt("VIDEO_DURATION_SECONDS", 4),
		VideoAspectRatio:     getEnv("VIDEO_ASPECT_RATIO", "9:16"),
		VideoResolution:      getEnv("VIDEO_RESOLUTION", "720p"),
		VeoPollInterval:      getEnvDuration("VEO_POLL_INTERVAL", 8*time.Second),
		GenerationTimeout:    getEnvDuration("GENERATION_TIMEOUT", 20*time.Minute),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "genvid"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		StorageSigningKey: os.Getenv("STORAGE_SIGNING_KEY"),
		SignedURLTTL:      getEnvDuration("SIGNED_URL_TTL", 30*time.Minute),
		S3Region:          os.Getenv("S3_REGION"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3ForcePathStyle:  getEnvBool("S3_FORCE_PATH_STYLE", false),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.QuotaDailyLimit < 0 {
		return nil, fmt.Errorf("QUOTA_DAILY_LIMIT must not be negative")
	}
	if _, err := time.LoadLocation(cfg.QuotaTimezone); err != nil {
		return nil, fmt.Errorf("QUOTA_TIMEZONE: %w", err)
	}
	if cfg.StorageSigningKey == "" {
		cfg.StorageSigningKey = cfg.JWTSecret
	}

	return cfg, nil
}

// QuotaLocation returns the location whose midnight starts a quota window.
func (c *Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}
