package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bigkaa/luckytrip/internal/ui/i18n"
)

// EnvAPIURL — переменная окружения с адресом backend.
const EnvAPIURL = "LUCKYTRIP_API_URL"

// ConfigFileName — файл настроек в каталоге ~/.luckytrip.
const ConfigFileName = "config.yaml"

const (
	defaultAPIURL  = "http://localhost:5000"
	defaultTimeout = 15 * time.Second
)

// Config — настройки luckyctl из config.yaml.
type Config struct {
	// APIURL — origin backend
	APIURL string `yaml:"api_url"`
	// Timeout — таймаут запроса к backend (например, 15s)
	Timeout time.Duration `yaml:"timeout"`
	// Lang — язык сообщений (en, ru)
	Lang string `yaml:"lang"`
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		APIURL:  defaultAPIURL,
		Timeout: defaultTimeout,
		Lang:    i18n.DefaultLang,
	}
}

// LoadConfig читает config.yaml. Отсутствующий файл — настройки по умолчанию,
// незаданные поля дополняются значениями по умолчанию.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("чтение %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("разбор %s: %w", path, err)
	}
	if file.APIURL != "" {
		cfg.APIURL = file.APIURL
	}
	if file.Timeout < 0 {
		return cfg, fmt.Errorf("%s: timeout должен быть положительным", path)
	}
	if file.Timeout > 0 {
		cfg.Timeout = file.Timeout
	}
	if file.Lang != "" {
		if !i18n.Supported(file.Lang) {
			return cfg, fmt.Errorf("%s: неподдерживаемый язык %q", path, file.Lang)
		}
		cfg.Lang = file.Lang
	}
	return cfg, nil
}

// SaveConfig записывает config.yaml (права 0600).
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("сериализация настроек: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("запись %s: %w", path, err)
	}
	return nil
}

// ResolveAPIURL выбирает адрес backend: флаг, затем LUCKYTRIP_API_URL,
// затем config.yaml.
func ResolveAPIURL(flag string, getenv func(string) string, cfg Config) string {
	if v := strings.TrimSpace(flag); v != "" {
		return strings.TrimRight(v, "/")
	}
	if getenv != nil {
		if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return strings.TrimRight(cfg.APIURL, "/")
}
