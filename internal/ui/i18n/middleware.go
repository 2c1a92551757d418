// middleware.go — HTTP middleware для определения языка пользователя.
package i18n

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LangCookieName — имя cookie для хранения выбранного языка.
const LangCookieName = "lang"

// Middleware определяет язык и помещает его в контекст.
// Приоритет: cookie "lang" → Accept-Language → default "en".
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLang(r.Context(), detectLanguage(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request) string {
	if cookie, err := r.Cookie(LangCookieName); err == nil && Supported(cookie.Value) {
		return cookie.Value
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return MatchLanguage(accept)
	}
	return DefaultLang
}

// SetLanguage обрабатывает POST /lang: устанавливает cookie "lang" на год
// и возвращает на путь из Referer (или на главную).
func SetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !Supported(lang) {
		lang = DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	target := "/"
	if u, err := url.Parse(r.Header.Get("Referer")); err == nil && strings.HasPrefix(u.Path, "/") {
		target = u.Path
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
