package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "dev-secret-change-me"

type Config struct {
	Port string
	Env  string

	JWTSecret    string
	SessionTTL   time.Duration
	ResetTTL     time.Duration
	AllowedRoles []string
	DefaultRole  string

	DirectoryDriver   string
	HasuraEndpoint    string
	HasuraAdminSecret string
	DatabaseDriver    string
	DatabaseDSN       string

	ResetLinkBase string
	NotifyDriver  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	NATSURL       string
	NATSSubject   string

	RedisAddr     string
	RedisPassword string

	CORSOrigins    []string
	AuthRatePerSec float64
	AuthRateBurst  int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(getenv(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getList(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load 从环境变量读取配置，未设置或无法解析时使用开发默认值。
func Load() Config {
	return Config{
		Port: getenv("APP_PORT", "8080"),
		Env:  getenv("APP_ENV", "dev"),

		JWTSecret:    getenv("JWT_SECRET", defaultJWTSecret),
		SessionTTL:   getDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		ResetTTL:     getDuration("RESET_TOKEN_TTL", time.Hour),
		AllowedRoles: getList("ALLOWED_ROLES", "admin,user"),
		DefaultRole:  getenv("DEFAULT_ROLE", "user"),

		DirectoryDriver:   getenv("DIRECTORY_DRIVER", "hasura"),
		HasuraEndpoint:    getenv("HASURA_GRAPHQL_ENDPOINT", "http://localhost:8081/v1/graphql"),
		HasuraAdminSecret: getenv("HASURA_ADMIN_SECRET", ""),
		DatabaseDriver:    getenv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:       getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chat port=5432 sslmode=disable TimeZone=UTC"),

		ResetLinkBase: getenv("RESET_LINK_BASE", "http://localhost:8888/user/change-password/action"),
		NotifyDriver:  getenv("NOTIFY_DRIVER", "log"),
		SMTPHost:      getenv("SMTP_HOST", "localhost"),
		SMTPPort:      getInt("SMTP_PORT", 587),
		SMTPUsername:  getenv("SMTP_USERNAME", ""),
		SMTPPassword:  getenv("SMTP_PASSWORD", ""),
		MailFrom:      getenv("MAIL_FROM", "no-reply@localhost"),
		NATSURL:       getenv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:   getenv("NATS_SUBJECT", "mail.outbound"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		CORSOrigins:    getList("CORS_ORIGINS", "http://localhost:8888"),
		AuthRatePerSec: getFloat("AUTH_RATE_PER_SEC", 5),
		AuthRateBurst:  getInt("AUTH_RATE_BURST", 10),
	}
}

// Validate 校验配置，默认签名密钥只允许在 dev 环境使用。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed in %s", cfg.Env)
	}
	if len(cfg.AllowedRoles) == 0 {
		return errors.New("ALLOWED_ROLES is empty")
	}
	if !contains(cfg.AllowedRoles, cfg.DefaultRole) {
		return fmt.Errorf("DEFAULT_ROLE %q is not in ALLOWED_ROLES", cfg.DefaultRole)
	}
	switch cfg.DirectoryDriver {
	case "hasura":
		if cfg.HasuraEndpoint == "" {
			return errors.New("HASURA_GRAPHQL_ENDPOINT is required")
		}
	case "sql":
		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required")
		}
		if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
			return fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unknown DIRECTORY_DRIVER %q", cfg.DirectoryDriver)
	}
	switch cfg.NotifyDriver {
	case "log":
	case "smtp":
		if cfg.SMTPHost == "" || cfg.MailFrom == "" {
			return errors.New("SMTP_HOST and MAIL_FROM are required for smtp")
		}
	case "nats":
		if cfg.NATSURL == "" || cfg.NATSSubject == "" {
			return errors.New("NATS_URL and NATS_SUBJECT are required for nats")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_DRIVER %q", cfg.NotifyDriver)
	}
	if cfg.ResetLinkBase == "" {
		return errors.New("RESET_LINK_BASE is required")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
