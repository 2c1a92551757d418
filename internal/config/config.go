// Пакет config — загрузка и валидация конфигурации Member Portal
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые типы хранилища токенов.
const (
	TokenStoreMemory   = "memory"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
)

// Config содержит все параметры конфигурации Member Portal.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Backend (REST API лотереи) ---

	// Базовый origin backend (например, https://api.luckytrip.lan)
	BackendURL string
	// Таймаут HTTP-запросов к backend
	BackendTimeout time.Duration
	// Путь к CA-сертификату backend (опционально)
	BackendCACertPath string
	// URL JWKS backend для проверки подписи токенов (опционально)
	BackendJWKSURL string
	// Интервал обновления JWKS
	BackendJWKSRefreshInterval time.Duration

	// --- Сессии ---

	// Секрет шифрования session cookie (пустой — случайный ключ)
	SessionSecret string
	// Secure flag для cookie
	SecureCookie bool
	// Время жизни сессии (cookie и запись в хранилище токенов)
	SessionTTL time.Duration

	// --- Хранилище токенов ---

	// Тип хранилища: memory, redis, postgres
	TokenStore string
	// Максимальное количество токенов в памяти (memory)
	MemoryStoreSize int

	// --- Redis ---

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// LT_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("LT_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("LT_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("LT_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LT_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LT_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("LT_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LT_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.HTTPReadTimeout, err = getEnvDuration("LT_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("LT_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("LT_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("LT_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("LT_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("LT_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Backend ---

	// LT_BACKEND_URL — обязательный
	cfg.BackendURL, err = getEnvRequired("LT_BACKEND_URL")
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if u, parseErr := url.Parse(cfg.BackendURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("LT_BACKEND_URL: некорректный URL %q", cfg.BackendURL)
	}

	if cfg.BackendTimeout, err = getEnvDuration("LT_BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("LT_BACKEND_TIMEOUT: %w", err)
	}
	cfg.BackendCACertPath = getEnvDefault("LT_BACKEND_CA_CERT_PATH", "")
	cfg.BackendJWKSURL = getEnvDefault("LT_BACKEND_JWKS_URL", "")
	if cfg.BackendJWKSRefreshInterval, err = getEnvDuration("LT_BACKEND_JWKS_REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, fmt.Errorf("LT_BACKEND_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Сессии ---

	cfg.SessionSecret = getEnvDefault("LT_SESSION_SECRET", "")
	if cfg.SecureCookie, err = getEnvBool("LT_SECURE_COOKIE", strings.HasPrefix(cfg.BackendURL, "https")); err != nil {
		return nil, fmt.Errorf("LT_SECURE_COOKIE: %w", err)
	}
	if cfg.SessionTTL, err = getEnvDuration("LT_SESSION_TTL", 24*time.Hour); err != nil {
		return nil, fmt.Errorf("LT_SESSION_TTL: %w", err)
	}

	// --- Хранилище токенов ---

	cfg.TokenStore = getEnvDefault("LT_TOKEN_STORE", TokenStoreMemory)
	switch cfg.TokenStore {
	case TokenStoreMemory, TokenStoreRedis, TokenStorePostgres:
	default:
		return nil, fmt.Errorf("LT_TOKEN_STORE: недопустимое значение %q, допустимые: memory, redis, postgres", cfg.TokenStore)
	}

	cfg.MemoryStoreSize, err = getEnvInt("LT_MEMORY_STORE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("LT_MEMORY_STORE_SIZE: %w", err)
	}
	if cfg.MemoryStoreSize < 1 {
		return nil, fmt.Errorf("LT_MEMORY_STORE_SIZE: значение %d должно быть положительным", cfg.MemoryStoreSize)
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("LT_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvDefault("LT_REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvInt("LT_REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("LT_REDIS_DB: %w", err)
	}

	// --- PostgreSQL (только для LT_TOKEN_STORE=postgres) ---

	if cfg.TokenStore == TokenStorePostgres {
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("LT_DEPHEALTH_GROUP", "luckytrip")
	if cfg.DephealthCheckInterval, err = getEnvDuration("LT_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("LT_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	if cfg.ShutdownTimeout, err = getEnvDuration("LT_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("LT_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase загружает параметры подключения к PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	if cfg.DBHost, err = getEnvRequired("LT_DB_HOST"); err != nil {
		return err
	}
	if cfg.DBPort, err = getEnvInt("LT_DB_PORT", 5432); err != nil {
		return fmt.Errorf("LT_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("LT_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = getEnvRequired("LT_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = getEnvRequired("LT_DB_PASSWORD"); err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("LT_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("LT_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
