// Package config загружает конфигурацию сервера: TOML файл,
// поверх него флаги командной строки, секреты — из окружения.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfiguration настройки HTTP сервера
type ServerConfiguration struct {
	ListenAddress   string `toml:"listen_address"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
}

// StorageConfiguration настройки хранилища
type StorageConfiguration struct {
	SQLitePath string `toml:"sqlite_path"`
}

// AuthConfiguration настройки валидации токенов.
// Secret в файле не хранится, только в переменной окружения.
type AuthConfiguration struct {
	AccessTokenTTLMinutes int `toml:"access_token_ttl_minutes"`
}

// RateLimitConfiguration настройки ограничения частоты запросов
type RateLimitConfiguration struct {
	Requests      int `toml:"requests"`
	WindowSeconds int `toml:"window_seconds"`
}

// LoggingConfiguration настройки логирования
type LoggingConfiguration struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "text" или "json"
}

// Config корневая конфигурация сервера
type Config struct {
	Server    ServerConfiguration    `toml:"server"`
	Storage   StorageConfiguration   `toml:"storage"`
	Auth      AuthConfiguration      `toml:"auth"`
	RateLimit RateLimitConfiguration `toml:"rate_limit"`
	Logging   LoggingConfiguration   `toml:"logging"`

	// JWTSecret читается из TODOSYNC_JWT_SECRET
	JWTSecret string `toml:"-"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfiguration{
			ListenAddress:   ":8080",
			ShutdownTimeout: 10,
		},
		Storage: StorageConfiguration{
			SQLitePath: "todosync.db",
		},
		Auth: AuthConfiguration{
			AccessTokenTTLMinutes: 15,
		},
		RateLimit: RateLimitConfiguration{
			Requests:      300,
			WindowSeconds: 60,
		},
		Logging: LoggingConfiguration{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load читает конфигурацию: дефолты, затем TOML файл (если путь не пустой),
// затем секрет из окружения. Валидирует результат.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.JWTSecret = os.Getenv("TODOSYNC_JWT_SECRET")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("TODOSYNC_JWT_SECRET environment variable is required")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be positive")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

// AccessTokenTTL возвращает TTL access токена как time.Duration
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTLMinutes) * time.Minute
}

// RateLimitWindow возвращает окно rate limit'а как time.Duration
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// ShutdownTimeout возвращает таймаут graceful shutdown как time.Duration
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}
