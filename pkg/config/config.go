package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"restoPlay/domain"

	"github.com/joho/godotenv"
)

const (
	TenantModeMulti  = "multi"
	TenantModeSingle = "single"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Game     GameConfig
	Mailjet  MailjetConfig
	Redis    RedisConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowOrigins   string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type GameConfig struct {
	TenantMode       string
	CatalogPath      string
	DefaultPartition string
	HistoryPolicy    domain.HistoryPolicy
	LenientTokens    bool
	RegistrationLock string
	GameURL          string
}

type MailjetConfig struct {
	BaseURL           string
	BasicAuthUsername string
	BasicAuthPassword string
	SenderEmail       string
	SenderName        string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

func (g GameConfig) MultiTenant() bool {
	return g.TenantMode == TenantModeMulti
}

func (m MailjetConfig) Enabled() bool {
	return m.BaseURL != "" && m.SenderEmail != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	history, err := domain.ParseHistoryPolicy(getEnv("PLAY_HISTORY_POLICY", string(domain.HistoryLatest)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "restoPlay"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
			AllowOrigins:   getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("STORE_DRIVER", StoreDriverPostgres),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "resto_play"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Game: GameConfig{
			TenantMode:       getEnv("TENANT_MODE", TenantModeMulti),
			CatalogPath:      getEnv("TENANT_CATALOG_PATH", "data/data.json"),
			DefaultPartition: getEnv("DEFAULT_PARTITION", "users"),
			HistoryPolicy:    history,
			LenientTokens:    getBool("GAME_LENIENT_TOKENS", false),
			RegistrationLock: getEnv("REGISTRATION_LOCK", LockNone),
			GameURL:          getEnv("GAME_URL", ""),
		},
		Mailjet: MailjetConfig{
			BaseURL:           getEnv("MAILJET_BASE_URL", ""),
			BasicAuthUsername: getEnv("MAILJET_BASIC_AUTH_USERNAME", ""),
			BasicAuthPassword: getEnv("MAILJET_BASIC_AUTH_PASSWORD", ""),
			SenderEmail:       getEnv("MAILJET_SENDER_EMAIL", ""),
			SenderName:        getEnv("MAILJET_SENDER_NAME", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			LockTTL:  getDuration("REDIS_LOCK_TTL", 5*time.Second),
			LockWait: getDuration("REDIS_LOCK_WAIT", 3*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Game.TenantMode {
	case TenantModeMulti, TenantModeSingle:
	default:
		return fmt.Errorf("unknown tenant mode %q", c.Game.TenantMode)
	}

	switch c.Game.RegistrationLock {
	case LockNone, LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown registration lock %q", c.Game.RegistrationLock)
	}

	switch c.Database.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return errors.New("missing database password")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Database.Driver)
	}

	if c.Game.MultiTenant() && c.Game.CatalogPath == "" {
		return errors.New("missing tenant catalog path")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return val
	}

	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return val
	}

	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return val
	}

	return defaultVal
}
