package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel-ошибки клиента backend.
var (
	// ErrTransport — ответ не получен (сеть, таймаут, отмена контекста).
	ErrTransport = errors.New("backend недоступен")
	// ErrMalformedResponse — ответ не соответствует контракту.
	ErrMalformedResponse = errors.New("некорректный ответ backend")
)

// HTTPError — ответ backend со статусом >= 400.
// Message — текст из поля message (или error) тела ответа.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus возвращает true, если err (или обёрнутая ошибка) — HTTPError с указанным кодом.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsUnauthorized — ответ 401.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsForbidden — ответ 403.
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}

// Message возвращает текст ошибки для показа пользователю.
// Для HTTPError — сообщение backend без префикса статуса.
func Message(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}
