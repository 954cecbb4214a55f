package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type MailConfig struct {
	TokenURL     string
	APIURL       string
	ClientID     string
	ClientSecret string
	FromAddress  string
	FromName     string
	ReplyTo      string
}

type AppConfig struct {
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	Mail MailConfig

	TemplateDir string

	// ThrottleWindow is the trailing period during which a second manual send
	// to the same recipient is blocked absent bypass.
	ThrottleWindow time.Duration

	// SendTimeout bounds a single transport send.
	SendTimeout time.Duration

	// FanoutConcurrency caps in-flight broadcast sends.
	FanoutConcurrency int
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("Notification: No .env file found, relying on system env vars")
	}
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8013"),
		RedisAddr: getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		Mail: MailConfig{
			TokenURL:     getEnv("MAIL_TOKEN_URL", ""),
			APIURL:       getEnv("MAIL_API_URL", ""),
			ClientID:     getEnv("MAIL_CLIENT_ID", ""),
			ClientSecret: getEnv("MAIL_CLIENT_SECRET", ""),
			FromAddress:  getEnv("MAIL_FROM_ADDRESS", ""),
			FromName:     getEnv("MAIL_FROM_NAME", "Store Notifications"),
			ReplyTo:      getEnv("MAIL_REPLY_TO", ""),
		},
		TemplateDir:       getEnv("TEMPLATE_DIR", "./templates/email"),
		ThrottleWindow:    getEnvAsDuration("THROTTLE_WINDOW", 7*24*time.Hour),
		SendTimeout:       getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),
		FanoutConcurrency: getEnvAsInt("FANOUT_CONCURRENCY", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
