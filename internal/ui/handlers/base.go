// Пакет handlers — HTTP-обработчики страниц портала.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/luckytrip/internal/auth"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/nav"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// Base — общие зависимости обработчиков страниц.
type Base struct {
	renderer *pages.Renderer
	bundle   *i18n.Bundle
	manager  *uiauth.SessionManager
	logger   *slog.Logger
}

// NewBase создаёт общие зависимости обработчиков.
func NewBase(renderer *pages.Renderer, bundle *i18n.Bundle, manager *uiauth.SessionManager, logger *slog.Logger) *Base {
	return &Base{
		renderer: renderer,
		bundle:   bundle,
		manager:  manager,
		logger:   logger,
	}
}

// page собирает данные страницы: язык, меню и пользователь из сессии
// запроса, flash-уведомление предыдущего запроса.
func (b *Base) page(w http.ResponseWriter, r *http.Request, titleKey string) *pages.Data {
	lang := i18n.LangFromContext(r.Context())
	d := &pages.Data{
		Lang:     lang,
		Path:     r.URL.Path,
		TitleKey: titleKey,
		Menu:     nav.Compose(""),
	}
	if rs := uimiddleware.FromContext(r.Context()); rs != nil {
		st := rs.Store().Snapshot()
		d.Menu = nav.ForState(st)
		d.User = st.User
	}
	if f := b.manager.PopFlash(w, r); f != nil {
		d.Notice = b.flashNotice(lang, f)
	}
	return d
}

// render выводит страницу; ошибка рендеринга — 500.
func (b *Base) render(w http.ResponseWriter, status int, name string, d *pages.Data, logger *slog.Logger) {
	if err := b.renderer.Render(w, status, name, d); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("page", name),
			slog.String("path", d.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}

// notice переводит уведомление Auth Gateway.
func (b *Base) notice(lang, kind string, n auth.Notice) *pages.Notice {
	return &pages.Notice{Kind: kind, Text: b.text(lang, n.Key, n.Text)}
}

func (b *Base) flashNotice(lang string, f *uiauth.Flash) *pages.Notice {
	text := f.Text
	if f.Key != "" {
		if _, ok := b.bundle.Lookup(lang, f.Key); ok {
			args := make([]any, len(f.Args))
			for i, a := range f.Args {
				args[i] = a
			}
			text = b.bundle.Translatef(lang, f.Key, args...)
		}
	}
	return &pages.Notice{Kind: f.Kind, Text: text}
}

// redirect выполняет 303 See Other с flash-уведомлением для следующей страницы.
func (b *Base) redirect(w http.ResponseWriter, r *http.Request, target string, f *uiauth.Flash) {
	if f != nil {
		if err := b.manager.SetFlash(w, *f); err != nil {
			b.logger.Error("Ошибка установки flash", slog.String("error", err.Error()))
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// sessionExpired перенаправляет на вход, если сессия очищена ответом 401
// во время запроса. Возвращает true, если ответ уже отправлен.
func (b *Base) sessionExpired(w http.ResponseWriter, r *http.Request) bool {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil || !rs.Cleared() {
		return false
	}
	b.redirect(w, r, "/login", &uiauth.Flash{Kind: uiauth.FlashError, Key: "notice.session_expired"})
	return true
}

// fieldErrors переводит ошибку проверки поля формы.
func (b *Base) fieldErrors(lang string, err error) map[string]string {
	verr := asValidation(err)
	if verr == nil || verr.Field == "" {
		return nil
	}
	return map[string]string{verr.Field: b.text(lang, verr.Key, verr.Message)}
}

// text переводит key; пустой или неизвестный ключ — fallback.
func (b *Base) text(lang, key, fallback string) string {
	if key == "" {
		return fallback
	}
	if msg, ok := b.bundle.Lookup(lang, key); ok {
		return msg
	}
	return fallback
}

func asValidation(err error) *auth.ValidationError {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}
