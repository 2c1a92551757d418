// proxy.go — /api/proxy/* → /api/* backend от имени сессии запроса.
// Ответ 401 backend очищает сессию (через Auth Gateway).
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/luckytrip/internal/api/errors"
	"github.com/bigkaa/luckytrip/internal/backend"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
)

// maxProxyBody — ограничение тела проксируемого запроса.
const maxProxyBody = 1 << 20

// ProxyHandler проксирует запросы к поверхностям backend.
type ProxyHandler struct {
	logger *slog.Logger
}

// NewProxyHandler создаёт обработчик.
func NewProxyHandler(logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{logger: logger.With(slog.String("component", "api_proxy"))}
}

// Proxy обрабатывает /api/proxy/{surface}/*. Путь backend: /api/{surface}/...
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		apierrors.InternalError(w, "сессия запроса не инициализирована")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/proxy/")
	if rest == "" || rest == r.URL.Path || strings.Contains(rest, "..") {
		apierrors.ValidationError(w, "некорректный путь")
		return
	}
	path := "/api/" + rest
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		body = http.MaxBytesReader(w, r.Body, maxProxyBody)
	}
	resp, err := rs.Gateway.Call(r.Context(), r.Method, path, body, r.Header.Get("Content-Type"))

	switch {
	case err == nil && !validJSON(resp):
		h.logger.Warn("Backend вернул некорректный JSON", slog.String("path", path))
		apierrors.BadGateway(w, "некорректный ответ backend")
	case err == nil:
		copyResponse(w, resp)
	case backend.IsUnauthorized(err):
		apierrors.Unauthorized(w, backend.Message(err))
	case resp != nil:
		// Прочие ответы backend >= 400 передаются как есть.
		copyResponse(w, resp)
	case errors.Is(err, backend.ErrTransport):
		apierrors.BackendUnavailable(w, "backend недоступен")
	default:
		h.logger.Error("Ошибка проксирования",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "ошибка проксирования")
	}
}

// validJSON — тело ответа с Content-Type application/json разбирается как JSON.
func validJSON(resp *backend.Response) bool {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") || len(resp.Body) == 0 {
		return true
	}
	return json.Valid(resp.Body)
}

// copyResponse передаёт клиенту статус, Content-Type и тело ответа backend.
func copyResponse(w http.ResponseWriter, resp *backend.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
