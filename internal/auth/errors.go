package auth

import (
	"errors"
	"net/http"

	"github.com/bigkaa/luckytrip/internal/backend"
)

// Sentinel-ошибки Auth Gateway.
var (
	// ErrNotAuthenticated — операция требует сессию, а её нет.
	ErrNotAuthenticated = errors.New("сессия отсутствует")
	// ErrSuperseded — результат устарел: сессия изменилась во время запроса.
	ErrSuperseded = errors.New("результат устарел")
)

// ValidationError — ошибка проверки ввода до обращения к backend.
type ValidationError struct {
	// Field — имя поля формы (json-имя)
	Field string
	// Key — ключ перевода сообщения
	Key string
	// Message — сообщение по умолчанию (en)
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Notice — сообщение для пользователя. Key — ключ перевода (пустой для
// дословных сообщений backend), Text — текст по умолчанию.
type Notice struct {
	Key  string
	Text string
}

// Ключи уведомлений.
const (
	NoticeTransport       = "notice.transport"
	NoticeMalformed       = "notice.malformed"
	NoticeUnauthenticated = "notice.unauthenticated"
	NoticeForbidden       = "notice.forbidden"
	NoticeSuperseded      = "notice.superseded"
	NoticeProfileUpdated  = "notice.profile_updated"
	NoticePasswordChanged = "notice.password_changed"
	NoticeLoggedOut       = "notice.logged_out"
	NoticeWelcome         = "notice.welcome"
	NoticeInternal        = "notice.internal"
)

// NoticeFor классифицирует ошибку и возвращает уведомление для пользователя.
// Бизнес-ошибки backend возвращаются дословно.
func NoticeFor(err error) Notice {
	var verr *ValidationError
	var httpErr *backend.HTTPError

	switch {
	case err == nil:
		return Notice{}
	case errors.As(err, &verr):
		return Notice{Key: verr.Key, Text: verr.Message}
	case errors.Is(err, backend.ErrTransport):
		return Notice{Key: NoticeTransport, Text: "Unable to reach the server. Please try again."}
	case errors.Is(err, backend.ErrMalformedResponse):
		return Notice{Key: NoticeMalformed, Text: "Unexpected response from the server."}
	case errors.Is(err, ErrNotAuthenticated):
		return Notice{Key: NoticeUnauthenticated, Text: "Please log in to continue."}
	case errors.Is(err, ErrSuperseded):
		return Notice{Key: NoticeSuperseded, Text: "Your session changed while the request was in progress."}
	case errors.As(err, &httpErr):
		if httpErr.Message != "" && httpErr.Message != http.StatusText(httpErr.StatusCode) {
			return Notice{Text: httpErr.Message}
		}
		if httpErr.StatusCode == http.StatusForbidden {
			return Notice{Key: NoticeForbidden, Text: "You do not have access to this resource."}
		}
		return Notice{Text: httpErr.Message}
	default:
		return Notice{Key: NoticeInternal, Text: "Something went wrong. Please try again."}
	}
}
