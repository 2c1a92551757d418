package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/luckytrip/internal/auth"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// AdminSurface — административная страница и источник её данных на backend.
type AdminSurface struct {
	// Path — путь страницы портала
	Path string
	// TitleKey — ключ заголовка
	TitleKey string
	// BackendPath — GET-запрос backend (пустой — страница без данных)
	BackendPath string
}

// AdminSurfaces — административные страницы портала.
var AdminSurfaces = []AdminSurface{
	{Path: "/admin/dashboard", TitleKey: "page.admin_dashboard.title", BackendPath: "/api/admin/dashboard"},
	{Path: "/admin/users", TitleKey: "page.admin_users.title", BackendPath: "/api/admin/users"},
	{Path: "/admin/packages", TitleKey: "page.admin_packages.title", BackendPath: "/api/packages"},
	{Path: "/admin/payments", TitleKey: "page.admin_payments.title", BackendPath: "/api/admin/payments"},
	{Path: "/admin/pending", TitleKey: "page.admin_pending.title", BackendPath: "/api/pending"},
	{Path: "/admin/messages", TitleKey: "page.admin_messages.title", BackendPath: "/api/admin/messages"},
	{Path: "/admin/profile", TitleKey: "page.admin_profile.title"},
}

// AdminHandler — административные страницы: данные backend в виде таблиц.
type AdminHandler struct {
	*Base
	logger *slog.Logger
}

// NewAdminHandler создаёт обработчик административных страниц.
func NewAdminHandler(base *Base, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		Base:   base,
		logger: logger.With(slog.String("component", "ui_admin")),
	}
}

// Surface возвращает обработчик страницы s. Ошибки backend показываются
// уведомлением (403 — сообщение backend), 401 ведёт на вход.
func (h *AdminHandler) Surface(s AdminSurface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := h.page(w, r, s.TitleKey)
		if s.BackendPath == "" {
			h.render(w, http.StatusOK, pages.PageAdmin, d, h.logger)
			return
		}

		rs := uimiddleware.FromContext(r.Context())
		path := s.BackendPath
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		resp, err := rs.Gateway.Call(r.Context(), http.MethodGet, path, nil, "")
		if h.sessionExpired(w, r) {
			return
		}
		if err != nil {
			h.logger.Warn("Не удалось загрузить данные backend",
				slog.String("path", s.BackendPath),
				slog.String("error", err.Error()),
			)
			d.Notice = h.notice(d.Lang, uiauth.FlashError, auth.NoticeFor(err))
			d.Table = &pages.Table{}
		} else {
			d.Table = pages.TableFromJSON(resp.Body)
		}
		h.render(w, http.StatusOK, pages.PageAdmin, d, h.logger)
	}
}
