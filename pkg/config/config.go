package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DB          DB
	Auth        Auth
	Redis       Redis
	Kafka       Kafka
	Search      Search
	Minio       Minio
	Mail        Mail
	Courses     Courses
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
}

type DB struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"coursehub"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
}

func (d DB) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

type Auth struct {
	Secret     string        `env:"SECRET,required,notEmpty"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"72h"`
}

type Redis struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"coursehub"`
}

type Search struct {
	Address  string `env:"ES" envDefault:"https://localhost:9200"`
	User     string `env:"ES_USER" envDefault:"elastic"`
	Password string `env:"PASS_ES"`
}

type Minio struct {
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"media"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	PublicURL string `env:"MINIO_PUBLIC_URL" envDefault:"http://localhost:9000"`
}

type Mail struct {
	From     string `env:"EMAIL"`
	Password string `env:"EMAILPASS"`
	Host     string `env:"SMTP" envDefault:"smtp.gmail.com"`
	Addr     string `env:"SMTP_ADDR" envDefault:"smtp.gmail.com:587"`
}

type Courses struct {
	DefaultPrice        float64       `env:"COURSE_DEFAULT_PRICE" envDefault:"10"`
	ProMembershipPeriod time.Duration `env:"PRO_MEMBERSHIP_PERIOD" envDefault:"720h"`
	ProgressMaxAttempts int           `env:"PROGRESS_MAX_ATTEMPTS" envDefault:"3"`
}

func (c *Config) Dev() bool {
	return strings.EqualFold(c.AppEnv, "dev")
}

// Load reads .env when present and then parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		slog.Info(".env not found, using process environment")
	}
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Courses.ProgressMaxAttempts < 1 {
		return nil, fmt.Errorf("parse env: PROGRESS_MAX_ATTEMPTS must be at least 1, got %d", cfg.Courses.ProgressMaxAttempts)
	}
	if cfg.Courses.DefaultPrice < 0 {
		return nil, fmt.Errorf("parse env: COURSE_DEFAULT_PRICE must not be negative")
	}
	return &cfg, nil
}
