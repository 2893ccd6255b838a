package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the backend and the bot.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	Realtime     RealtimeConfig
	Bot          BotConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	ServiceToken          string
	BootstrapAdminEmail   string
	BootstrapAdminPass    string
	BootstrapAdminName    string
}

// NotificationConfig holds external notification channels.
type NotificationConfig struct {
	TelegramBotToken  string
	AdminChatID       int64
	HighSeverityOnly  bool
	RatePerMinute     int
	NotifyReporter    bool
	NATSURL           string
	NATSSubjectPrefix string
}

// StorageConfig selects where uploaded photos are written.
type StorageConfig struct {
	Provider       string
	LocalDir       string
	PublicBaseURL  string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	MaxUploadBytes int64
}

// RealtimeConfig tunes the websocket broadcast hub.
type RealtimeConfig struct {
	WriteTimeoutSeconds int
}

// BotConfig configures the Telegram intake bot process.
type BotConfig struct {
	TelegramToken      string
	BackendURL         string
	ServiceToken       string
	ServiceEmail       string
	ServicePassword    string
	MaxAttempts        int
	BaseDelayMillis    int
	RequestTimeoutSecs int
	AllowMockFallback  bool
	SessionStore       string
	SessionTTLMinutes  int
	MetricsAddr        string
	PollTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminChatID, err := strconv.ParseInt(getEnv("TELEGRAM_ADMIN_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
	}

	storageProvider := strings.ToLower(getEnv("STORAGE_PROVIDER", "local"))
	if storageProvider != "local" && storageProvider != "s3" {
		return nil, fmt.Errorf("invalid STORAGE_PROVIDER %q", storageProvider)
	}

	sessionStore := strings.ToLower(getEnv("BOT_SESSION_STORE", "memory"))
	if sessionStore != "memory" && sessionStore != "redis" {
		return nil, fmt.Errorf("invalid BOT_SESSION_STORE %q", sessionStore)
	}

	serviceToken := os.Getenv("SERVICE_TOKEN")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hostel-complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			ServiceToken:          serviceToken,
			BootstrapAdminEmail:   os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPass:    os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
			BootstrapAdminName:    getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		},
		Notification: NotificationConfig{
			TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			AdminChatID:       adminChatID,
			HighSeverityOnly:  getEnvAsBool("NOTIFY_HIGH_SEVERITY_ONLY", true),
			RatePerMinute:     getEnvAsInt("NOTIFY_RATE_PER_MINUTE", 20),
			NotifyReporter:    getEnvAsBool("NOTIFY_REPORTER", true),
			NATSURL:           os.Getenv("NATS_URL"),
			NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "complaints.events"),
		},
		Storage: StorageConfig{
			Provider:       storageProvider,
			LocalDir:       getEnv("STORAGE_LOCAL_DIR", "uploads"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			S3Bucket:       os.Getenv("STORAGE_S3_BUCKET"),
			S3Region:       getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3Endpoint:     os.Getenv("STORAGE_S3_ENDPOINT"),
			MaxUploadBytes: int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Realtime: RealtimeConfig{
			WriteTimeoutSeconds: getEnvAsInt("REALTIME_WRITE_TIMEOUT_SECONDS", 5),
		},
		Bot: BotConfig{
			TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			BackendURL:         strings.TrimRight(os.Getenv("BOT_BACKEND_URL"), "/"),
			ServiceToken:       getEnv("BOT_SERVICE_TOKEN", serviceToken),
			ServiceEmail:       os.Getenv("BOT_SERVICE_EMAIL"),
			ServicePassword:    os.Getenv("BOT_SERVICE_PASSWORD"),
			MaxAttempts:        getEnvAsInt("BOT_SUBMIT_MAX_ATTEMPTS", 3),
			BaseDelayMillis:    getEnvAsInt("BOT_SUBMIT_BASE_DELAY_MS", 500),
			RequestTimeoutSecs: getEnvAsInt("BOT_REQUEST_TIMEOUT_SECONDS", 10),
			AllowMockFallback:  getEnvAsBool("BOT_ALLOW_MOCK_FALLBACK", false),
			SessionStore:       sessionStore,
			SessionTTLMinutes:  getEnvAsInt("BOT_SESSION_TTL_MINUTES", 30),
			MetricsAddr:        getEnv("BOT_METRICS_ADDR", "0.0.0.0:9091"),
			PollTimeoutSeconds: getEnvAsInt("BOT_POLL_TIMEOUT_SECONDS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// WriteTimeout bounds a single observer write.
func (r RealtimeConfig) WriteTimeout() time.Duration {
	if r.WriteTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.WriteTimeoutSeconds) * time.Second
}

func (b BotConfig) BaseDelay() time.Duration {
	return time.Duration(b.BaseDelayMillis) * time.Millisecond
}

func (b BotConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSecs) * time.Second
}

// SessionTTL is the idle lifetime of an intake conversation.
func (b BotConfig) SessionTTL() time.Duration {
	if b.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(b.SessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
