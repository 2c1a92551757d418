package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// PublicHandler — информационные страницы (публичные и страницы участника
// без данных backend) и страница ожидания сессии.
type PublicHandler struct {
	*Base
	logger *slog.Logger
}

// NewPublicHandler создаёт обработчик информационных страниц.
func NewPublicHandler(base *Base, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		Base:   base,
		logger: logger.With(slog.String("component", "ui_public")),
	}
}

// Page возвращает обработчик страницы с заголовком titleKey и текстом textKey.
func (h *PublicHandler) Page(titleKey, textKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := h.page(w, r, titleKey)
		d.TextKey = textKey
		h.render(w, http.StatusOK, pages.PageInfo, d, h.logger)
	}
}

// Sitemap — GET /sitemap: все ссылки меню текущей роли.
func (h *PublicHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pages.PageSitemap, h.page(w, r, "page.sitemap.title"), h.logger)
}

// Loading — нейтральная страница, пока сессия не разрешена.
// Обновляется через секунду, без редиректов.
func (h *PublicHandler) Loading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	h.render(w, http.StatusServiceUnavailable, pages.PageLoading, h.page(w, r, "app.loading"), h.logger)
}

// NotFound — 404 в оформлении портала.
func (h *PublicHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	d := h.page(w, r, "page.not_found.title")
	d.TextKey = "page.not_found.text"
	h.render(w, http.StatusNotFound, pages.PageInfo, d, h.logger)
}
