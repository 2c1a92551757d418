package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apihandlers "github.com/bigkaa/luckytrip/internal/api/handlers"
	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/backend/backendtest"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	uihandlers "github.com/bigkaa/luckytrip/internal/ui/handlers"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

type testPortal struct {
	srv     *backendtest.Server
	tokens  *tokenstore.MemoryStore
	manager *uiauth.SessionManager
	handler http.Handler
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := backendtest.New(t)
	srv.AddUser(model.UserSummary{Name: "Asha", Email: "asha@example.com", Role: "user"}, "secret1")
	srv.AddUser(model.UserSummary{Name: "Root", Email: "root@example.com", Role: "admin"}, "secret1")

	client, err := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, logger)
	if err != nil {
		t.Fatal(err)
	}
	manager, err := uiauth.NewSessionManager("test-key", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	bundle, err := i18n.NewDefaultBundle(logger)
	if err != nil {
		t.Fatal(err)
	}
	renderer, err := pages.NewRenderer(bundle)
	if err != nil {
		t.Fatal(err)
	}
	tokens := tokenstore.NewMemoryStore(100, time.Hour)
	base := uihandlers.NewBase(renderer, bundle, manager, logger)
	public := uihandlers.NewPublicHandler(base, logger)

	deps := Deps{
		Health:   apihandlers.NewHealthHandler(apihandlers.NamedChecker{Name: "backend", Checker: client}),
		Session:  apihandlers.NewSessionHandler(bundle),
		Proxy:    apihandlers.NewProxyHandler(logger),
		Sessions: uimiddleware.NewSessions(manager, tokens, client, nil, logger),
		Guard:    uimiddleware.NewGuard(manager, http.HandlerFunc(public.Loading), logger),
		Public:   public,
		Auth:     uihandlers.NewAuthHandler(base, logger),
		Member:   uihandlers.NewMemberHandler(base, logger),
		Admin:    uihandlers.NewAdminHandler(base, logger),
	}

	return &testPortal{
		srv:     srv,
		tokens:  tokens,
		manager: manager,
		handler: Routes(logger, deps),
	}
}

// cookieFor возвращает cookie сессии с токеном пользователя (nil для пустого email).
func (p *testPortal) cookieFor(t *testing.T, email string) *http.Cookie {
	t.Helper()
	if email == "" {
		return nil
	}
	data := p.manager.NewSession()
	if err := p.tokens.Set(context.Background(), data.TokenKey(), p.srv.IssueToken(email)); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	if err := p.manager.SetSessionCookie(w, data); err != nil {
		t.Fatal(err)
	}
	return w.Result().Cookies()[0]
}

func (p *testPortal) get(path string, cookie *http.Cookie, header ...string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, r)
	return w
}

func TestRoutes_Guard(t *testing.T) {
	p := newTestPortal(t)

	tests := []struct {
		name         string
		email        string
		path         string
		wantCode     int
		wantLocation string
	}{
		{"посетитель на странице участника", "", "/dashboard", http.StatusFound, "/login"},
		{"посетитель на странице администратора", "", "/admin/users", http.StatusFound, "/login"},
		{"участник на странице администратора", "asha@example.com", "/admin/dashboard", http.StatusFound, "/dashboard"},
		{"администратор на странице участника", "root@example.com", "/profile", http.StatusFound, "/admin/dashboard"},
		{"участник", "asha@example.com", "/dashboard", http.StatusOK, ""},
		{"участник на live", "asha@example.com", "/live", http.StatusOK, ""},
		{"администратор", "root@example.com", "/admin/users", http.StatusOK, ""},
		{"публичная страница", "", "/privacy-policy", http.StatusOK, ""},
		{"публичная страница участнику", "asha@example.com", "/about", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.get(tt.path, p.cookieFor(t, tt.email))
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, ожидается %d", w.Code, tt.wantCode)
			}
			if loc := w.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, ожидается %q", loc, tt.wantLocation)
			}
		})
	}
}

func TestRoutes_ProxyGuard(t *testing.T) {
	p := newTestPortal(t)

	tests := []struct {
		name     string
		email    string
		path     string
		wantCode int
		wantErr  string
	}{
		{"посетитель", "", "/api/proxy/packages", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"участник к admin", "asha@example.com", "/api/proxy/admin/users", http.StatusForbidden, "FORBIDDEN"},
		{"администратор к поверхности участника", "root@example.com", "/api/proxy/user/payments", http.StatusForbidden, "FORBIDDEN"},
		{"участник к packages", "asha@example.com", "/api/proxy/packages", http.StatusOK, ""},
		{"администратор к admin", "root@example.com", "/api/proxy/admin/users", http.StatusOK, ""},
		{"администратор к pending", "root@example.com", "/api/proxy/pending", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.get(tt.path, p.cookieFor(t, tt.email))
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, ожидается %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr == "" {
				return
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
				t.Fatal(err)
			}
			if env.Error.Code != tt.wantErr {
				t.Errorf("code = %q, ожидается %q", env.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestRoutes_Session(t *testing.T) {
	p := newTestPortal(t)

	w := p.get("/api/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"authenticated":false`) {
		t.Errorf("ответ = %s", w.Body.String())
	}

	w = p.get("/api/nav", p.cookieFor(t, "root@example.com"), "Accept-Language", "ru")
	if !strings.Contains(w.Body.String(), "/admin/pending") || !strings.Contains(w.Body.String(), "Главная") {
		t.Errorf("меню администратора = %s", w.Body.String())
	}
}

func TestRoutes_Ops(t *testing.T) {
	p := newTestPortal(t)

	tests := []struct {
		path     string
		wantCode int
		wantType string
	}{
		{"/health/live", http.StatusOK, "application/json"},
		{"/health/ready", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/static/css/portal.css", http.StatusOK, "text/css"},
		{"/api/unknown", http.StatusNotFound, "application/json"},
		{"/unknown", http.StatusNotFound, "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := p.get(tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, ожидается %d", w.Code, tt.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
				t.Errorf("Content-Type = %q, ожидается %s", ct, tt.wantType)
			}
		})
	}
}

func TestRoutes_SetLanguage(t *testing.T) {
	p := newTestPortal(t)

	r := httptest.NewRequest(http.MethodPost, "/lang", strings.NewReader("lang=ru"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Referer", "http://portal.local/about")
	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/about" {
		t.Fatalf("status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
	lang := w.Result().Cookies()[0]
	if lang.Name != i18n.LangCookieName || lang.Value != "ru" {
		t.Errorf("cookie = %s=%s", lang.Name, lang.Value)
	}

	page := p.get("/about", lang)
	if !strings.Contains(page.Body.String(), `lang="ru"`) {
		t.Error("страница не на русском после смены языка")
	}
}

func TestRoutes_LoginFlow(t *testing.T) {
	p := newTestPortal(t)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("identifier=asha%40example.com&password=secret1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("login: status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == uiauth.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("cookie сессии не установлен")
	}

	if w := p.get("/dashboard", session); w.Code != http.StatusOK {
		t.Errorf("dashboard после входа: status = %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(session)
	w = httptest.NewRecorder()
	p.handler.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout: status = %d", w.Code)
	}

	if w := p.get("/dashboard", session); w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("dashboard после выхода: status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
}
