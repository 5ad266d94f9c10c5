package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string          `yaml:"discord_token"`
	DatabaseURL     string          `yaml:"database_url"`
	LogLevel        string          `yaml:"log_level"`
	DefaultLanguage string          `yaml:"default_language"`
	DeveloperID     string          `yaml:"developer_id"`
	LogChannelID    string          `yaml:"log_channel_id"`
	RetentionDays   int             `yaml:"retention_days"`
	Health          HealthConfig    `yaml:"health"`
	API             APIConfig       `yaml:"api"`
	Dashboard       DashboardConfig `yaml:"dashboard"`
	Redis           RedisConfig     `yaml:"redis"`
	Captcha         CaptchaConfig   `yaml:"captcha"`
	Purge           PurgeConfig     `yaml:"purge"`
	Notifications   NotifyConfig    `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// APIConfig configures the bridge used by the website to drive the bot.
type APIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	SecretToken string `yaml:"secret_token"`
}

type DashboardConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Addr              string   `yaml:"addr"`
	JWTSecret         string   `yaml:"jwt_secret"`
	JWTExpirySeconds  int      `yaml:"jwt_expiry_seconds"`
	ClientID          string   `yaml:"client_id"`
	ClientSecret      string   `yaml:"client_secret"`
	RedirectURL       string   `yaml:"redirect_url"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	AuthAttempts      int      `yaml:"auth_attempts"`
	AuthWindowSeconds int      `yaml:"auth_window_seconds"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	RequestBurst      int      `yaml:"request_burst"`
}

type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// CaptchaConfig holds defaults used when a guild has no stored captcha row.
type CaptchaConfig struct {
	DefaultTimeoutMinutes int `yaml:"default_timeout_minutes"`
	GraceMinutes          int `yaml:"grace_minutes"`
}

type PurgeConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Concurrency       int     `yaml:"concurrency"`
}

type NotifyConfig struct {
	AuditToChannel bool        `yaml:"audit_to_channel"`
	EmbedColors    EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Success int `yaml:"success"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabaseURL:     "/data/rudyprotect.db",
		LogLevel:        "info",
		DefaultLanguage: "fr",
		RetentionDays:   30,
		Health:          HealthConfig{Enabled: false, Addr: ":8080"},
		API:             APIConfig{Enabled: false, Addr: ":5008"},
		Dashboard: DashboardConfig{
			Enabled:           false,
			Addr:              ":8090",
			JWTExpirySeconds:  3600,
			AuthAttempts:      20,
			AuthWindowSeconds: 3600,
			RequestsPerSecond: 5,
			RequestBurst:      20,
		},
		Redis:   RedisConfig{Enabled: false, Addr: "127.0.0.1:6379", TTLSeconds: 300},
		Captcha: CaptchaConfig{DefaultTimeoutMinutes: 10, GraceMinutes: 10},
		Purge:   PurgeConfig{Enabled: true, RequestsPerSecond: 4, Concurrency: 3},
		Notifications: NotifyConfig{
			AuditToChannel: true,
			EmbedColors: EmbedColors{
				Action:  0x5865F2,
				Success: 0x57F287,
				Warning: 0xFFA500,
				Error:   0xED4245,
			},
		},
	}
}

func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read merges defaults, the YAML file and the environment without
// validating, for commands that never connect to Discord.
func Read() (Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.DefaultLanguage = normalizeLanguage(cfg.DefaultLanguage)
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.API.Enabled && c.API.SecretToken == "" {
		return errors.New("API_SECRET_TOKEN is required when the bot API is enabled")
	}
	if c.Dashboard.Enabled {
		if c.Dashboard.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when the dashboard is enabled")
		}
		if c.Dashboard.ClientID == "" || c.Dashboard.ClientSecret == "" {
			return errors.New("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET are required when the dashboard is enabled")
		}
	}
	if c.Captcha.DefaultTimeoutMinutes < 0 {
		return errors.New("captcha default timeout cannot be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.DeveloperID = envString("DEVELOPER_ID", cfg.DeveloperID)
	cfg.LogChannelID = envString("LOG_CHANNEL_ID", cfg.LogChannelID)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.API.Enabled = envBool("API_ENABLED", cfg.API.Enabled)
	cfg.API.Addr = envString("API_ADDR", cfg.API.Addr)
	cfg.API.SecretToken = envString("API_SECRET_TOKEN", cfg.API.SecretToken)
	cfg.Dashboard.Enabled = envBool("DASHBOARD_ENABLED", cfg.Dashboard.Enabled)
	cfg.Dashboard.Addr = envString("DASHBOARD_ADDR", cfg.Dashboard.Addr)
	cfg.Dashboard.JWTSecret = envString("JWT_SECRET", cfg.Dashboard.JWTSecret)
	cfg.Dashboard.JWTExpirySeconds = envInt("JWT_EXPIRY", cfg.Dashboard.JWTExpirySeconds)
	cfg.Dashboard.ClientID = envString("DISCORD_CLIENT_ID", cfg.Dashboard.ClientID)
	cfg.Dashboard.ClientSecret = envString("DISCORD_CLIENT_SECRET", cfg.Dashboard.ClientSecret)
	cfg.Dashboard.RedirectURL = envString("DISCORD_REDIRECT_URI", cfg.Dashboard.RedirectURL)
	cfg.Dashboard.AllowedOrigins = envList("ALLOWED_ORIGINS", cfg.Dashboard.AllowedOrigins)
	cfg.Dashboard.AuthAttempts = envInt("RATE_LIMIT_ATTEMPTS", cfg.Dashboard.AuthAttempts)
	cfg.Dashboard.AuthWindowSeconds = envInt("RATE_LIMIT_WINDOW", cfg.Dashboard.AuthWindowSeconds)
	cfg.Redis.Enabled = envBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = envString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.TTLSeconds = envInt("REDIS_TTL_SECONDS", cfg.Redis.TTLSeconds)
	cfg.Captcha.DefaultTimeoutMinutes = envInt("CAPTCHA_DEFAULT_TIMEOUT", cfg.Captcha.DefaultTimeoutMinutes)
	cfg.Purge.Enabled = envBool("PURGE_ENABLED", cfg.Purge.Enabled)
	cfg.Purge.RequestsPerSecond = envFloat("PURGE_RATE", cfg.Purge.RequestsPerSecond)
	cfg.Purge.Concurrency = envInt("PURGE_CONCURRENCY", cfg.Purge.Concurrency)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func normalizeLanguage(value string) string {
	switch strings.ToLower(value) {
	case "en":
		return "en"
	default:
		return "fr"
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
