// Пакет auth — Auth Gateway: переводит действия пользователя в вызовы
// backend и переходы хранилища сессии, а также TokenInspector для
// локальной проверки срока действия токена.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/domain/rbac"
	"github.com/bigkaa/luckytrip/internal/session"
)

var authOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lt_auth_operations_total",
		Help: "Количество операций Auth Gateway по результатам",
	},
	[]string{"operation", "result"},
)

// Backend — операции REST API, используемые Gateway. Реализуется *backend.Client.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
	Me(ctx context.Context, token string) (*model.UserSummary, error)
	UpdateProfile(ctx context.Context, token string, upd model.ProfileUpdate) (*model.UserSummary, error)
	ChangePassword(ctx context.Context, token string, pc model.PasswordChange) error
	Logout(ctx context.Context, token string) error
	Call(ctx context.Context, token, method, path string, body io.Reader, contentType string) (*backend.Response, error)
}

// Result — итог пользовательского действия.
// OK=false сопровождается Notice и исходной ошибкой Err.
type Result struct {
	OK     bool
	Notice Notice
	Err    error
}

// Gateway — Auth Gateway для одного хранилища сессии.
type Gateway struct {
	client   Backend
	store    *session.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewGateway создаёт Gateway поверх клиента backend и хранилища сессии.
func NewGateway(client Backend, store *session.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:   client,
		store:    store,
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "auth_gateway")),
	}
}

// Store возвращает хранилище сессии.
func (g *Gateway) Store() *session.Store {
	return g.store
}

// Login выполняет вход. Ошибка (в том числе 401) — уведомление,
// сессия не меняется и редиректа нет.
func (g *Gateway) Login(ctx context.Context, identifier, password string) Result {
	creds := model.Credentials{Identifier: strings.TrimSpace(identifier), Password: password}
	if err := g.check(creds); err != nil {
		return g.result("login", err)
	}

	ticket := g.store.Begin()
	resp, err := g.client.Login(ctx, creds)
	if err != nil {
		return g.result("login", err)
	}
	return g.result("login", g.establish(ctx, ticket, resp))
}

// Register проверяет поля (обязательные, формат email, совпадение пароля
// с подтверждением) до обращения к backend; при успехе ведёт себя как Login.
func (g *Gateway) Register(ctx context.Context, req model.RegisterRequest) Result {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := g.check(req); err != nil {
		return g.result("register", err)
	}

	ticket := g.store.Begin()
	resp, err := g.client.Register(ctx, req)
	if err != nil {
		return g.result("register", err)
	}
	return g.result("register", g.establish(ctx, ticket, resp))
}

// establish применяет ответ login/register, если сессия не изменилась за время запроса.
func (g *Gateway) establish(ctx context.Context, ticket session.Ticket, resp *model.AuthResponse) error {
	if !g.store.Current(ticket) {
		return ErrSuperseded
	}
	if err := g.store.SetSession(ctx, resp.Token, resp.User); err != nil {
		return err
	}
	if !rbac.IsValidRole(resp.User.Role) {
		g.logger.Warn("Backend вернул неизвестную роль, доступны только публичные страницы",
			slog.String("role", resp.User.Role),
		)
	}
	g.logger.Info("Вход выполнен",
		slog.String("user_id", resp.User.ID),
		slog.String("role", resp.User.Role),
	)
	return nil
}

// Logout вызывает POST /api/auth/logout (ошибки игнорируются) и
// безусловно очищает сессию. Идемпотентен.
func (g *Gateway) Logout(ctx context.Context) error {
	token := g.store.Snapshot().Token
	if token != "" {
		if err := g.client.Logout(ctx, token); err != nil {
			g.logger.Warn("Ошибка logout на backend, сессия очищается локально",
				slog.String("error", err.Error()),
			)
		}
	}
	if err := g.store.ClearSession(ctx); err != nil {
		authOperationsTotal.WithLabelValues("logout", "error").Inc()
		return err
	}
	authOperationsTotal.WithLabelValues("logout", "ok").Inc()
	return nil
}

// UpdateProfile обновляет профиль (PUT /api/auth/profile) и снимок пользователя.
func (g *Gateway) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) Result {
	if upd.IsEmpty() {
		return g.result("update_profile", &ValidationError{
			Key:     "validation.nothing_to_update",
			Message: "Nothing to update",
		})
	}
	if err := g.check(upd); err != nil {
		return g.result("update_profile", err)
	}

	err := g.authorized(ctx, func(ctx context.Context, token string, ticket session.Ticket) error {
		user, err := g.client.UpdateProfile(ctx, token, upd)
		if err != nil {
			return err
		}
		if !g.store.UpdateUser(ticket, user) {
			return ErrSuperseded
		}
		return nil
	})
	if err == nil {
		return Result{OK: true, Notice: Notice{Key: NoticeProfileUpdated, Text: "Profile updated successfully"}}
	}
	return g.result("update_profile", err)
}

// ChangePassword проверяет совпадение нового пароля с подтверждением и
// длину (не меньше 6), вызывает PUT /api/auth/change-password и обновляет
// пользователя через /api/auth/me.
func (g *Gateway) ChangePassword(ctx context.Context, pc model.PasswordChange) Result {
	if err := g.check(pc); err != nil {
		return g.result("change_password", err)
	}

	err := g.authorized(ctx, func(ctx context.Context, token string, _ session.Ticket) error {
		return g.client.ChangePassword(ctx, token, pc)
	})
	if err != nil {
		return g.result("change_password", err)
	}

	if err := g.Refresh(ctx); err != nil {
		if backend.IsUnauthorized(err) {
			return g.result("change_password", err)
		}
		// Пароль уже изменён: устаревший снимок пользователя не критичен
		g.logger.Warn("Не удалось обновить пользователя после смены пароля",
			slog.String("error", err.Error()),
		)
	}
	authOperationsTotal.WithLabelValues("change_password", "ok").Inc()
	return Result{OK: true, Notice: Notice{Key: NoticePasswordChanged, Text: "Password changed successfully"}}
}

// Refresh повторно запрашивает текущего пользователя и обновляет снимок сессии.
// ErrSuperseded — сессия изменилась во время запроса.
func (g *Gateway) Refresh(ctx context.Context) error {
	return g.authorized(ctx, func(ctx context.Context, token string, ticket session.Ticket) error {
		user, err := g.client.Me(ctx, token)
		if err != nil {
			return err
		}
		if !g.store.UpdateUser(ticket, user) {
			return ErrSuperseded
		}
		return nil
	})
}

// Call выполняет произвольный запрос к API backend от имени сессии
// (без токена для анонимной сессии). Ответ 401 на запрос с токеном
// очищает сессию.
func (g *Gateway) Call(ctx context.Context, method, path string, body io.Reader, contentType string) (*backend.Response, error) {
	st := g.store.Snapshot()
	ticket := g.store.Begin()

	resp, err := g.client.Call(ctx, st.Token, method, path, body, contentType)
	if err != nil && st.Token != "" && backend.IsUnauthorized(err) {
		g.store.HandleUnauthorizedAt(ctx, ticket)
	}
	return resp, err
}

// authorized выполняет fn с токеном сессии. Ответ 401 очищает сессию
// (если она не изменилась за время запроса).
func (g *Gateway) authorized(ctx context.Context, fn func(ctx context.Context, token string, ticket session.Ticket) error) error {
	st := g.store.Snapshot()
	if st.Token == "" || st.User == nil {
		return ErrNotAuthenticated
	}
	ticket := g.store.Begin()

	err := fn(ctx, st.Token, ticket)
	if err != nil && backend.IsUnauthorized(err) {
		g.store.HandleUnauthorizedAt(ctx, ticket)
	}
	return err
}

// result фиксирует метрику и формирует Result.
func (g *Gateway) result(op string, err error) Result {
	if err == nil {
		authOperationsTotal.WithLabelValues(op, "ok").Inc()
		return Result{OK: true}
	}

	authOperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		g.logger.Info("Операция не выполнена",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
	}
	return Result{Notice: NoticeFor(err), Err: err}
}

// resultLabel — категория ошибки для метрик.
func resultLabel(err error) string {
	var verr *ValidationError
	var httpErr *backend.HTTPError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, backend.ErrTransport):
		return "transport"
	case errors.Is(err, backend.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrNotAuthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	default:
		return "error"
	}
}
