// guard.go — Route Guard как chi middleware.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/luckytrip/internal/api/errors"
	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/guard"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
)

var guardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lt_guard_decisions_total",
		Help: "Решения Route Guard по итогам",
	},
	[]string{"outcome"},
)

// Guard применяет guard.Evaluate к сессии запроса.
type Guard struct {
	manager *uiauth.SessionManager
	loading http.Handler
	logger  *slog.Logger
}

// NewGuard создаёт Route Guard. loading — нейтральная страница ожидания
// для неразрешённой сессии (nil — 503 без тела).
func NewGuard(manager *uiauth.SessionManager, loading http.Handler, logger *slog.Logger) *Guard {
	if loading == nil {
		loading = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return &Guard{
		manager: manager,
		loading: loading,
		logger:  logger.With(slog.String("component", "route_guard")),
	}
}

// Require возвращает middleware, пропускающий запрос только при Authorized.
// HTML-запросы получают redirect 302, JSON-запросы — 401/403.
func (g *Guard) Require(rule guard.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := FromContext(r.Context())
			if rs == nil {
				g.logger.Error("Route Guard без сессии запроса", slog.String("path", r.URL.Path))
				apierrors.InternalError(w, "сессия запроса не инициализирована")
				return
			}

			d := guard.Evaluate(rs.Store().Snapshot(), rule)
			guardDecisionsTotal.WithLabelValues(d.Outcome.String()).Inc()

			switch d.Outcome {
			case guard.Authorized:
				next.ServeHTTP(w, r)
			case guard.Loading:
				if WantsJSON(r) {
					apierrors.SessionLoading(w, "сессия загружается")
					return
				}
				g.loading.ServeHTTP(w, r)
			case guard.Unauthenticated:
				if WantsJSON(r) {
					apierrors.Unauthorized(w, "требуется вход")
					return
				}
				if errors.Is(rs.InitErr, backend.ErrTransport) {
					g.flash(w, uiauth.Flash{Kind: uiauth.FlashError, Key: auth.NoticeTransport})
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
			case guard.Forbidden:
				g.logger.Info("Доступ запрещён",
					slog.String("path", r.URL.Path),
					slog.String("role", rs.Store().Snapshot().Role()),
				)
				if WantsJSON(r) {
					apierrors.Forbidden(w, "недостаточно прав")
					return
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
			}
		})
	}
}

func (g *Guard) flash(w http.ResponseWriter, f uiauth.Flash) {
	if err := g.manager.SetFlash(w, f); err != nil {
		g.logger.Error("Ошибка установки flash", slog.String("error", err.Error()))
	}
}

// WantsJSON — запрос JSON API (путь /api/ или Accept: application/json).
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
