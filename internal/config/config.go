// Package config читает настройки из .env файлов и окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissing = errors.New("required setting is not set")

// LoadEnv подхватывает .env.local, затем .env. Переменные окружения
// имеют приоритет: godotenv их не перезаписывает.
func LoadEnv() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}
}

type Server struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	TokenTTL         time.Duration
	ReminderInterval time.Duration
	ReminderLead     time.Duration
	AllowedOrigins   []string
}

func LoadServer() (*Server, error) {
	LoadEnv()

	cfg := &Server{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	// Список через запятую, пусто значит любой источник
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = duration("REMINDER_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = duration("REMINDER_LEAD", 30*time.Minute); err != nil {
		return nil, err
	}

	if err := require(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

type Client struct {
	APIURL         string
	WSURL          string
	Email          string
	Password       string
	NotifyRedisURL string
}

func LoadClient() (*Client, error) {
	LoadEnv()

	cfg := &Client{
		APIURL:         getenv("CHAT_API_URL", "http://localhost:8080"),
		WSURL:          getenv("CHAT_WS_URL", "ws://localhost:8080/ws"),
		Email:          os.Getenv("CHAT_EMAIL"),
		Password:       os.Getenv("CHAT_PASSWORD"),
		NotifyRedisURL: os.Getenv("NOTIFY_REDIS_URL"),
	}

	if err := require(map[string]string{
		"CHAT_EMAIL":    cfg.Email,
		"CHAT_PASSWORD": cfg.Password,
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func require(values map[string]string) error {
	for key, v := range values {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissing, key)
		}
	}
	return nil
}
