package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"LT_BACKEND_URL": "https://api.luckytrip.lan",
	}
}

// postgresEnvs возвращает набор переменных для хранилища токенов в PostgreSQL.
func postgresEnvs() map[string]string {
	envs := minimalEnvs()
	envs["LT_TOKEN_STORE"] = "postgres"
	envs["LT_DB_HOST"] = "localhost"
	envs["LT_DB_NAME"] = "luckytrip"
	envs["LT_DB_USER"] = "luckytrip"
	envs["LT_DB_PASSWORD"] = "secret"
	return envs
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Errorf("BackendTimeout = %v, ожидается 15s", cfg.BackendTimeout)
	}
	if cfg.TokenStore != TokenStoreMemory {
		t.Errorf("TokenStore = %q, ожидается memory", cfg.TokenStore)
	}
	if cfg.MemoryStoreSize != 10000 {
		t.Errorf("MemoryStoreSize = %d, ожидается 10000", cfg.MemoryStoreSize)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 24h", cfg.SessionTTL)
	}
	if !cfg.SecureCookie {
		t.Error("SecureCookie = false, ожидается true для https backend")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, ожидается localhost:6379", cfg.RedisAddr)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval = %v, ожидается 15s", cfg.DephealthCheckInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_BackendURLTrailingSlash(t *testing.T) {
	envs := minimalEnvs()
	envs["LT_BACKEND_URL"] = "http://localhost:5000/"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.BackendURL != "http://localhost:5000" {
		t.Errorf("BackendURL = %q, ожидается http://localhost:5000", cfg.BackendURL)
	}
	if cfg.SecureCookie {
		t.Error("SecureCookie = true, ожидается false для http backend")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := postgresEnvs()
	envs["LT_PORT"] = "9090"
	envs["LT_LOG_LEVEL"] = "debug"
	envs["LT_LOG_FORMAT"] = "text"
	envs["LT_BACKEND_TIMEOUT"] = "3s"
	envs["LT_BACKEND_JWKS_URL"] = "https://api.luckytrip.lan/.well-known/jwks.json"
	envs["LT_SESSION_TTL"] = "2h"
	envs["LT_SECURE_COOKIE"] = "false"
	envs["LT_DB_PORT"] = "5433"
	envs["LT_DB_SSL_MODE"] = "require"
	envs["LT_SHUTDOWN_TIMEOUT"] = "10s"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("BackendTimeout = %v, ожидается 3s", cfg.BackendTimeout)
	}
	if cfg.BackendJWKSURL != "https://api.luckytrip.lan/.well-known/jwks.json" {
		t.Errorf("BackendJWKSURL = %q", cfg.BackendJWKSURL)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 2h", cfg.SessionTTL)
	}
	if cfg.SecureCookie {
		t.Error("SecureCookie = true, ожидается false")
	}
	if cfg.DBPort != 5433 {
		t.Errorf("DBPort = %d, ожидается 5433", cfg.DBPort)
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode = %q, ожидается require", cfg.DBSSLMode)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv("LT_BACKEND_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load() не вернул ошибку при отсутствии LT_BACKEND_URL")
	}
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	t.Setenv("LT_BACKEND_URL", "api.luckytrip.lan")

	if _, err := Load(); err == nil {
		t.Error("Load() не вернул ошибку при URL без схемы")
	}
}

func TestLoad_PostgresMissingRequired(t *testing.T) {
	requiredVars := []string{"LT_DB_HOST", "LT_DB_NAME", "LT_DB_USER", "LT_DB_PASSWORD"}

	for _, missing := range requiredVars {
		t.Run(missing, func(t *testing.T) {
			envs := postgresEnvs()
			envs[missing] = ""
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() не вернул ошибку при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_MemoryStoreIgnoresDatabase(t *testing.T) {
	envs := minimalEnvs()
	envs["LT_DB_HOST"] = ""
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.DBHost != "" {
		t.Errorf("DBHost = %q, ожидается пустая строка", cfg.DBHost)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"порт ниже диапазона", "LT_PORT", "0"},
		{"порт выше диапазона", "LT_PORT", "70000"},
		{"порт не число", "LT_PORT", "abc"},
		{"уровень логирования", "LT_LOG_LEVEL", "verbose"},
		{"формат логов", "LT_LOG_FORMAT", "xml"},
		{"таймаут backend", "LT_BACKEND_TIMEOUT", "fast"},
		{"тип хранилища", "LT_TOKEN_STORE", "etcd"},
		{"размер хранилища", "LT_MEMORY_STORE_SIZE", "0"},
		{"secure cookie", "LT_SECURE_COOKIE", "maybe"},
		{"время жизни сессии", "LT_SESSION_TTL", "day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() не вернул ошибку при %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_InvalidSSLMode(t *testing.T) {
	envs := postgresEnvs()
	envs["LT_DB_SSL_MODE"] = "prefer"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() не вернул ошибку при LT_DB_SSL_MODE=prefer")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     5432,
		DBName:     "luckytrip",
		DBUser:     "user",
		DBPassword: "pass",
		DBSSLMode:  "disable",
	}

	expected := "host=db.example.com port=5432 dbname=luckytrip user=user password=pass sslmode=disable"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}

	if u := cfg.DatabaseURL(); u != "postgres://db.example.com:5432/luckytrip" {
		t.Errorf("DatabaseURL() = %q", u)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && level != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, ожидается %v", tt.input, level, tt.expected)
			}
		})
	}
}
