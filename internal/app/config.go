package app

import (
	"time"

	"github.com/yungbote/maturity-assessment-backend/internal/data/db"
	"github.com/yungbote/maturity-assessment-backend/internal/http/middleware"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/envutil"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type Config struct {
	Port    string
	LogMode string

	DB db.Config

	RedisAddr    string
	RedisChannel string
	RecomputeTTL time.Duration

	AutosaveDebounce time.Duration
	AttemptIdleTTL   time.Duration
	UnlockPercent    float64
	DefinitionPath   string

	AllowedOrigins []string

	AdminEnabled bool
	AdminToken   string

	ShutdownTimeout time.Duration
	ServiceName     string
	Environment     string
	Version         string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "assessment"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "assessment.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},
		RedisAddr:        envutil.String("REDIS_ADDR", ""),
		RedisChannel:     envutil.String("REDIS_CHANNEL", "assessment-events"),
		RecomputeTTL:     envutil.Millis("RECOMPUTE_LOCK_TTL_MS", 30*time.Second),
		AutosaveDebounce: envutil.Millis("AUTOSAVE_DEBOUNCE_MS", time.Second),
		AttemptIdleTTL:   envutil.Hours("ATTEMPT_IDLE_TTL_HOURS", 24*time.Hour),
		UnlockPercent:    envutil.Float("RESULTS_UNLOCK_PERCENT", 80),
		DefinitionPath:   envutil.String("SURVEY_DEFINITION_PATH", ""),
		AllowedOrigins:   middleware.ParseOrigins(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		AdminEnabled:     envutil.Bool("ADMIN_API_ENABLED", false),
		AdminToken:       envutil.String("ADMIN_API_TOKEN", ""),
		ShutdownTimeout:  envutil.Millis("SHUTDOWN_TIMEOUT_MS", 15*time.Second),
		ServiceName:      envutil.String("OTEL_SERVICE_NAME", "maturity-assessment"),
		Environment:      envutil.String("APP_ENV", "development"),
		Version:          envutil.String("APP_VERSION", "dev"),
	}
	if cfg.AdminEnabled && cfg.AdminToken == "" && log != nil {
		log.Warn("ADMIN_API_ENABLED without ADMIN_API_TOKEN; admin routes will reject every request")
	}
	return cfg
}

func (c Config) Addr() string { return ":" + c.Port }
