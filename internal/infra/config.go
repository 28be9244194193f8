package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mediagen/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Compute backend.
	ComfyBaseURL string
	ComfyAPIKey  string
	DeployImage  string
	DeployVideo  string
	DeployPair   string

	// Poller tuning.
	PollInterval             time.Duration
	PollErrorInterval        time.Duration
	PollMaxAttempts          int
	PollMaxConsecutiveErrors int

	// Scheduler.
	WorkerCount      int
	TaskPollInterval time.Duration

	// Object storage: "minio" or "filesystem".
	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		ComfyBaseURL: getEnv("COMFY_API_BASE_URL", "https://api.myapps.ai"),
		ComfyAPIKey:  os.Getenv("COMFY_API_KEY"),
		DeployImage:  os.Getenv("DEPLOY_ID_IMAGE"),
		DeployVideo:  os.Getenv("DEPLOY_ID_VIDEO"),
		DeployPair:   os.Getenv("DEPLOY_ID_IMAGE_PAIR"),

		PollInterval:             time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		PollErrorInterval:        time.Second * time.Duration(getEnvInt("POLL_ERROR_INTERVAL_SECONDS", 15)),
		PollMaxAttempts:          getEnvInt("POLL_MAX_ATTEMPTS", 120),
		PollMaxConsecutiveErrors: getEnvInt("POLL_MAX_CONSECUTIVE_ERRORS", 10),

		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		TaskPollInterval: time.Second * time.Duration(getEnvInt("TASK_POLL_INTERVAL_SECONDS", 1)),

		StorageDriver:  getEnv("STORAGE_DRIVER", "filesystem"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "generated-media"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// Deployments returns the full mode to deployment target mapping used when
// wiring the pipeline.
func (c *Config) Deployments() map[domain.Mode]string {
	return map[domain.Mode]string{
		domain.ModeImage:            c.DeploymentFor(domain.ModeImage),
		domain.ModeVideo:            c.DeploymentFor(domain.ModeVideo),
		domain.ModeImagePairToVideo: c.DeploymentFor(domain.ModeImagePairToVideo),
	}
}

// DeploymentFor maps a generation mode to its backend deployment target.
func (c *Config) DeploymentFor(mode domain.Mode) string {
	switch mode {
	case domain.ModeImage:
		return c.DeployImage
	case domain.ModeVideo:
		return c.DeployVideo
	case domain.ModeImagePairToVideo:
		return c.DeployPair
	default:
		return ""
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
