package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultKey — ключ токена CLI (имя файла в каталоге конфигурации).
const DefaultKey = "token"

// FileStore — токены в файлах каталога dir (по файлу на ключ, права 0600).
type FileStore struct {
	dir string
}

// NewFileStore создаёт файловое хранилище в каталоге dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// DefaultDir возвращает ~/.luckytrip.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("определение домашнего каталога: %w", err)
	}
	return filepath.Join(home, ".luckytrip"), nil
}

// Path возвращает путь к файлу ключа.
func (s *FileStore) Path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("недопустимый ключ токена %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	path, err := s.Path(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			observe("file", ErrNotFound)
			return "", ErrNotFound
		}
		return "", fmt.Errorf("чтение токена: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		observe("file", ErrNotFound)
		return "", ErrNotFound
	}
	observe("file", nil)
	return token, nil
}

func (s *FileStore) Set(_ context.Context, key, token string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("создание каталога %s: %w", s.dir, err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("запись токена: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("удаление токена: %w", err)
	}
	return nil
}
