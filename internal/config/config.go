package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	SessionSecret []byte
	SessionTTL    time.Duration
	CookieSecure  bool
	CSRFEnabled   bool

	MaxUploadBytes int64

	EventsBackend string
	KafkaBrokers  []string
	AMQPURL       string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	AdminEmail    string
	AdminPassword string
}

var ErrMissingSecret = errors.New("missing required env SESSION_SECRET")

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "storefront")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("EVENTS_BACKEND", "none")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("ES_URL", "")
	v.SetDefault("ES_USER", "")
	v.SetDefault("ES_PASSWORD", "")
	v.SetDefault("ES_INDEX", "products")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("env_file_not_loaded", "error", err)
	}
	return FromViper(viper.New())
}

func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	ttl, err := time.ParseDuration(v.GetString("SESSION_TTL"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %q", v.GetString("SESSION_TTL"))
	}

	cfg := Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		ServerPort:  v.GetInt("SERVER_PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),

		SessionSecret: []byte(v.GetString("SESSION_SECRET")),
		SessionTTL:    ttl,
		CookieSecure:  v.GetBool("COOKIE_SECURE"),
		CSRFEnabled:   v.GetBool("CSRF_ENABLED"),

		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		EventsBackend: strings.ToLower(v.GetString("EVENTS_BACKEND")),
		KafkaBrokers:  CSV(v.GetString("KAFKA_BROKERS")),
		AMQPURL:       v.GetString("AMQP_URL"),

		ESURL:      v.GetString("ES_URL"),
		ESUser:     v.GetString("ES_USER"),
		ESPassword: v.GetString("ES_PASSWORD"),
		ESIndex:    v.GetString("ES_INDEX"),

		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
	}

	if len(cfg.SessionSecret) == 0 {
		return Config{}, ErrMissingSecret
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d", cfg.MaxUploadBytes)
	}
	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
