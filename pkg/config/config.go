package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Supabase    SupabaseConfig
	Bot         BotConfig
	Rooms       RoomsConfig
	Classwork   ClassworkConfig
	Attachments AttachmentsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SupabaseConfig holds the hosted auth backend coordinates. ServiceRoleKey
// is the elevated credential required for identity provisioning and is
// deliberately never defaulted.
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
}

// BotConfig controls the reminder bot identity and how the deadline scan
// reaches the notify endpoint. An empty NotifyURL means in-process dispatch.
type BotConfig struct {
	Email       string
	Name        string
	NotifyURL   string
	HTTPTimeout time.Duration
}

// RoomsConfig tunes the room list cache.
type RoomsConfig struct {
	CacheTTL time.Duration
}

// ClassworkConfig gates classwork export endpoints.
type ClassworkConfig struct {
	ExportEnabled bool
}

// AttachmentsConfig configures signed URLs for message attachments.
type AttachmentsConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Supabase = SupabaseConfig{
		URL:            v.GetString("SUPABASE_URL"),
		ServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
	}

	cfg.Bot = BotConfig{
		Email:       v.GetString("BOT_EMAIL"),
		Name:        v.GetString("BOT_NAME"),
		NotifyURL:   v.GetString("BOT_NOTIFY_URL"),
		HTTPTimeout: parseDuration(v.GetString("BOT_HTTP_TIMEOUT"), 10*time.Second),
	}

	cfg.Rooms = RoomsConfig{
		CacheTTL: parseDuration(v.GetString("ROOMS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Classwork = ClassworkConfig{
		ExportEnabled: v.GetBool("ENABLE_CLASSWORK_EXPORT"),
	}

	cfg.Attachments = AttachmentsConfig{
		SignedURLSecret: v.GetString("ATTACHMENT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("ATTACHMENT_SIGNED_URL_TTL"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classtalk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SUPABASE_URL", "http://localhost:54321")
	v.SetDefault("SUPABASE_SERVICE_ROLE_KEY", "")

	v.SetDefault("BOT_EMAIL", "deadline-bot@lms.internal")
	v.SetDefault("BOT_NAME", "Deadline Reminder")
	v.SetDefault("BOT_NOTIFY_URL", "")
	v.SetDefault("BOT_HTTP_TIMEOUT", "10s")

	v.SetDefault("ROOMS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_CLASSWORK_EXPORT", false)
	v.SetDefault("ATTACHMENT_SIGNED_URL_SECRET", "dev_attachment_secret")
	v.SetDefault("ATTACHMENT_SIGNED_URL_TTL", "30m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
