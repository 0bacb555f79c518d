package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"giveaway_engine"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
		// Таймаут стейтмента, чтобы не держать блокировки бесконечно под нагрузкой
		StatementTimeout time.Duration `env:"POSTGRES_STATEMENT_TIMEOUT" envDefault:"5s"`
	}

	Redis struct {
		// Если Enabled=false, лимитер работает на in-memory хранилище
		Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Turnstile struct {
		// Пустой секрет = верификация выключена целиком (feature flag)
		Secret   string        `env:"TURNSTILE_SECRET" envDefault:""`
		Endpoint string        `env:"TURNSTILE_ENDPOINT" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
		Timeout  time.Duration `env:"TURNSTILE_TIMEOUT" envDefault:"5s"`
	}

	RateLimit struct {
		JoinIPMax             int           `env:"RATELIMIT_JOIN_IP_MAX" envDefault:"10"`
		JoinIPWindow          time.Duration `env:"RATELIMIT_JOIN_IP_WINDOW" envDefault:"1m"`
		JoinIPBlock           time.Duration `env:"RATELIMIT_JOIN_IP_BLOCK" envDefault:"5m"`
		JoinFingerprintMax    int           `env:"RATELIMIT_JOIN_FP_MAX" envDefault:"5"`
		JoinFingerprintWindow time.Duration `env:"RATELIMIT_JOIN_FP_WINDOW" envDefault:"1m"`
		JoinFingerprintBlock  time.Duration `env:"RATELIMIT_JOIN_FP_BLOCK" envDefault:"10m"`
	}

	Sweep struct {
		Enabled  bool          `env:"SWEEP_ENABLED" envDefault:"true"`
		Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	}

	Admin struct {
		IDs []string `env:"ADMIN_IDS" envSeparator:","`
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// Игнорируем ошибку, если .env файл не найден
		// В production окружении переменные могут быть установлены напрямую
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// GetDSN собирает строку подключения к PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s statement_timeout=%d",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode, c.Postgres.StatementTimeout.Milliseconds(),
	)
}

// RedisAddr возвращает адрес Redis в формате host:port
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
