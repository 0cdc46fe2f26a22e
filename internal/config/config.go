package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 存储后端
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// 开发环境默认密钥，release 模式下不允许使用
const (
	DefaultSessionSecret = "zolffix-dev-secret"
	DefaultJWTSecret     = "zolffix-dev-jwt-secret"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	GinMode       string
	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	StorageBackend  string
	DatabasePath    string
	MongoURI        string
	MongoDB         string
	MongoCollection string
	RedisURL        string

	Timezone *time.Location

	QuoteAPIKey     string
	QuoteAPIBaseURL string
	QuoteModel      string

	ReminderInterval   time.Duration
	ReminderWebhookURL string

	LogDir   string
	LogDebug bool
}

// LoadDotEnv 读取 .env 文件，文件不存在时忽略。已存在的环境变量优先。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() (AppConfig, error) {
	port := envString("PORT", "8080")
	listenAddr := envString("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	backend := strings.ToLower(envString("STORAGE_BACKEND", BackendSQLite))
	switch backend {
	case BackendMemory, BackendSQLite, BackendMongo, BackendRedis:
	default:
		return AppConfig{}, fmt.Errorf("unknown STORAGE_BACKEND %q", backend)
	}

	tzName := envString("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid APP_TIMEZONE %q: %w", tzName, err)
	}

	cfg := AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		GinMode:       envString("GIN_MODE", "release"),
		SessionSecret: envString("SESSION_SECRET", DefaultSessionSecret),
		JWTSecret:     envString("JWT_SECRET", DefaultJWTSecret),
		JWTTTL:        envDuration("JWT_TTL", 7*24*time.Hour),

		StorageBackend:  backend,
		DatabasePath:    envString("DATABASE_PATH", "zolffix.db"),
		MongoURI:        envString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         envString("MONGO_DB", "zolffix"),
		MongoCollection: envString("MONGO_COLLECTION", "documents"),
		RedisURL:        envString("REDIS_URL", "redis://localhost:6379/0"),

		Timezone: loc,

		QuoteAPIKey:     envString("QUOTE_API_KEY", ""),
		QuoteAPIBaseURL: envString("QUOTE_API_BASE_URL", "https://api.openai.com/v1"),
		QuoteModel:      envString("QUOTE_MODEL", "gpt-4o-mini"),

		ReminderInterval:   envDuration("REMINDER_INTERVAL", time.Minute),
		ReminderWebhookURL: envString("REMINDER_WEBHOOK_URL", ""),

		LogDir:   envString("LOG_DIR", ""),
		LogDebug: envBool("LOG_DEBUG", false),
	}
	return cfg, nil
}

// CheckSecrets 在 release 模式下拒绝默认的会话与 JWT 密钥
func (c AppConfig) CheckSecrets() error {
	if c.GinMode != "release" {
		return nil
	}
	if c.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set when GIN_MODE=release")
	}
	if c.SessionSecret == DefaultSessionSecret {
		return errors.New("SESSION_SECRET must be set when GIN_MODE=release")
	}
	return nil
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
