// Пакет middleware — HTTP middleware портала.
// session.go — сессия запроса: cookie → хранилище сессии → Auth Gateway.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/session"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
)

type contextKey string

const contextKeyRequestSession contextKey = "request_session"

// RequestSession — сессия текущего запроса.
type RequestSession struct {
	// Cookie — данные cookie сессии.
	Cookie *uiauth.SessionData
	// Gateway — Auth Gateway поверх хранилища сессии запроса.
	Gateway *auth.Gateway
	// InitErr — ошибка Initialize (сессия разрешена, но пользователь не получен).
	InitErr error

	cleared atomic.Bool
}

// Store возвращает хранилище сессии запроса.
func (rs *RequestSession) Store() *session.Store {
	return rs.Gateway.Store()
}

// Cleared — сессия очищена ответом 401 во время запроса.
func (rs *RequestSession) Cleared() bool {
	return rs.cleared.Load()
}

// FromContext извлекает RequestSession из контекста.
// Возвращает nil, если запрос не прошёл через Sessions.Middleware.
func FromContext(ctx context.Context) *RequestSession {
	rs, _ := ctx.Value(contextKeyRequestSession).(*RequestSession)
	return rs
}

// WithRequestSession помещает RequestSession в контекст.
func WithRequestSession(ctx context.Context, rs *RequestSession) context.Context {
	return context.WithValue(ctx, contextKeyRequestSession, rs)
}

// Sessions создаёт для каждого запроса собственное хранилище сессии
// с ключом portal:<id> из cookie и разрешает его до передачи запроса дальше.
type Sessions struct {
	manager   *uiauth.SessionManager
	tokens    tokenstore.Store
	client    auth.Backend
	inspector session.TokenInspector
	base      *slog.Logger
	logger    *slog.Logger
}

// NewSessions создаёт middleware сессий. inspector может быть nil.
func NewSessions(
	manager *uiauth.SessionManager,
	tokens tokenstore.Store,
	client auth.Backend,
	inspector session.TokenInspector,
	logger *slog.Logger,
) *Sessions {
	return &Sessions{
		manager:   manager,
		tokens:    tokens,
		client:    client,
		inspector: inspector,
		base:      logger,
		logger:    logger.With(slog.String("component", "ui_sessions")),
	}
}

// Middleware возвращает HTTP middleware сессии запроса.
func (s *Sessions) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _, err := s.manager.Ensure(w, r)
			if err != nil {
				s.logger.Error("Ошибка создания cookie сессии", slog.String("error", err.Error()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			rs := s.Open(r.Context(), data)
			defer rs.Store().Teardown()

			next.ServeHTTP(w, r.WithContext(WithRequestSession(r.Context(), rs)))
		})
	}
}

// Open создаёт хранилище сессии для cookie и выполняет Initialize.
// Вызывающий освобождает хранилище через Store().Teardown().
func (s *Sessions) Open(ctx context.Context, data *uiauth.SessionData) *RequestSession {
	opts := []session.Option{session.WithLogger(s.base)}
	if s.inspector != nil {
		opts = append(opts, session.WithInspector(s.inspector))
	}
	store := session.New(data.TokenKey(), s.tokens, s.client, opts...)

	rs := &RequestSession{
		Cookie:  data,
		Gateway: auth.NewGateway(s.client, store, s.base),
	}
	store.OnCleared(func(context.Context) { rs.cleared.Store(true) })

	if err := store.Initialize(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rs.InitErr = err
		s.logger.Warn("Сессия не инициализирована",
			slog.String("session_id", data.ID),
			slog.String("error", err.Error()),
		)
	}
	return rs
}
