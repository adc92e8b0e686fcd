package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	LogLevel  string
	DBUrl     string
	JWTSecret string

	RedisAddr     string
	RedisPassword string
	FeedPrefix    string
	MarkerPrefix  string

	RabbitURL   string
	RabbitQueue string

	AWSBucket string
	AWSRegion string
	AWSKeyID  string
	AWSSecret string

	CORSOrigins []string
	IPLookupURL string

	// TrustedProxies lists the proxy addresses or CIDRs whose
	// X-Forwarded-For is believed. Empty means the peer address is the
	// client.
	TrustedProxies []string
}

// LoadConfig reads .env (if present), an optional config.yaml and the
// process environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("FEED_PREFIX", "fenomenpet:realtime")
	v.SetDefault("MARKER_PREFIX", "fenomenpet:marker")
	v.SetDefault("RABBITMQ_QUEUE", "like.queue")
	v.SetDefault("AWS_REGION", "eu-central-1")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("IP_LOOKUP_URL", "https://api.ipify.org")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Port:          v.GetString("PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		DBUrl:         v.GetString("SUPABASE_DB_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		FeedPrefix:    v.GetString("FEED_PREFIX"),
		MarkerPrefix:  v.GetString("MARKER_PREFIX"),
		RabbitURL:     v.GetString("RABBITMQ_URL"),
		RabbitQueue:   v.GetString("RABBITMQ_QUEUE"),
		AWSBucket:     v.GetString("AWS_BUCKET_NAME"),
		AWSRegion:     v.GetString("AWS_REGION"),
		AWSKeyID:      v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecret:     v.GetString("AWS_SECRET_ACCESS_KEY"),
		CORSOrigins:   splitCSV(v.GetString("CORS_ORIGINS")),
		IPLookupURL:   v.GetString("IP_LOOKUP_URL"),

		TrustedProxies: splitCSV(v.GetString("TRUSTED_PROXIES")),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBUrl == "" {
		return errors.New("config: SUPABASE_DB_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR is required")
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
