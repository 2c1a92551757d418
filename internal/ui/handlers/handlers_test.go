package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/backend/backendtest"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

type testEnv struct {
	srv      *backendtest.Server
	tokens   *tokenstore.MemoryStore
	manager  *uiauth.SessionManager
	sessions *uimiddleware.Sessions

	public *PublicHandler
	auth   *AuthHandler
	member *MemberHandler
	admin  *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := backendtest.New(t)
	srv.AddUser(model.UserSummary{Name: "Asha", Email: "asha@example.com", Phone: "9000000001", Role: "user", City: "Mumbai"}, "secret1")
	srv.AddUser(model.UserSummary{Name: "Root", Email: "root@example.com", Role: "superadmin"}, "secret1")

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
		t.Fatalf("NewRenderer() ошибка: %v", err)
	}
	tokens := tokenstore.NewMemoryStore(100, time.Hour)
	base := NewBase(renderer, bundle, manager, logger)

	return &testEnv{
		srv:      srv,
		tokens:   tokens,
		manager:  manager,
		sessions: uimiddleware.NewSessions(manager, tokens, client, nil, logger),
		public:   NewPublicHandler(base, logger),
		auth:     NewAuthHandler(base, logger),
		member:   NewMemberHandler(base, logger),
		admin:    NewAdminHandler(base, logger),
	}
}

// loginCookie выдаёт токен пользователю и возвращает cookie сессии и ключ токена.
func (e *testEnv) loginCookie(t *testing.T, email string) (*http.Cookie, string) {
	t.Helper()
	data := e.manager.NewSession()
	if err := e.tokens.Set(context.Background(), data.TokenKey(), e.srv.IssueToken(email)); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	if err := e.manager.SetSessionCookie(w, data); err != nil {
		t.Fatal(err)
	}
	return w.Result().Cookies()[0], data.TokenKey()
}

// do выполняет запрос через i18n и сессию запроса. form != nil — POST формы.
func (e *testEnv) do(h http.HandlerFunc, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	r := httptest.NewRequest(method, path, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		if c != nil {
			r.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	i18n.Middleware()(e.sessions.Middleware()(h)).ServeHTTP(w, r)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(env.auth.Login, http.MethodPost, "/login", url.Values{
		"identifier": {"asha@example.com"},
		"password":   {"secret1"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, ожидается 303: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, ожидается /dashboard", loc)
	}

	sessionCookie := cookieNamed(w, uiauth.SessionCookieName)
	if sessionCookie == nil {
		t.Fatal("cookie сессии не установлен")
	}
	data, err := env.manager.Decrypt(sessionCookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.tokens.Get(context.Background(), data.TokenKey()); err != nil {
		t.Errorf("токен не сохранён: %v", err)
	}

	// Flash показывается на следующей странице
	flash := cookieNamed(w, uiauth.FlashCookieName)
	if flash == nil {
		t.Fatal("flash cookie не установлен")
	}
	w = env.do(env.member.Profile, http.MethodGet, "/profile", nil, sessionCookie, flash)
	if !strings.Contains(w.Body.String(), "Welcome, Asha!") {
		t.Error("приветствие не показано после входа")
	}
}

func TestLogin_AdminRedirect(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(env.auth.Login, http.MethodPost, "/login", url.Values{
		"identifier": {"root@example.com"},
		"password":   {"secret1"},
	})
	if loc := w.Header().Get("Location"); loc != "/admin/dashboard" {
		t.Errorf("Location = %q, ожидается /admin/dashboard", loc)
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		password   string
		wantText   string
		wantCalls  int
	}{
		{"неверный пароль", "asha@example.com", "wrong", "Invalid credentials", 1},
		{"пустой идентификатор", "", "secret1", "Please fill in all required fields", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(env.auth.Login, http.MethodPost, "/login", url.Values{
				"identifier": {tt.identifier},
				"password":   {tt.password},
			})

			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, ожидается 422", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("страница не содержит %q", tt.wantText)
			}
			if strings.Contains(w.Body.String(), tt.password) && tt.password != "" {
				t.Error("пароль возвращён в форму")
			}
			if got := env.srv.Calls(http.MethodPost, "/api/auth/login"); got != tt.wantCalls {
				t.Errorf("вызовов login = %d, ожидается %d", got, tt.wantCalls)
			}
			if env.tokens.Len() != 0 {
				t.Error("токен сохранён после ошибки входа")
			}
		})
	}
}

func TestLoginPage_Authenticated(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")

	w := env.do(env.auth.LoginPage, http.MethodGet, "/login", nil, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}

	w = env.do(env.auth.LoginPage, http.MethodGet, "/login", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status для посетителя = %d, ожидается 200", w.Code)
	}
}

func TestLogin_UnknownRole(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser(model.UserSummary{Name: "Mod", Email: "mod@example.com", Role: "moderator"}, "secret1")

	w := env.do(env.auth.Login, http.MethodPost, "/login", url.Values{
		"identifier": {"mod@example.com"},
		"password":   {"secret1"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, ожидается 303: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, ожидается /", loc)
	}

	sessionCookie := cookieNamed(w, uiauth.SessionCookieName)
	if sessionCookie == nil {
		t.Fatal("cookie сессии не установлен")
	}
	for _, page := range []struct {
		path string
		h    http.HandlerFunc
	}{
		{"/login", env.auth.LoginPage},
		{"/register", env.auth.RegisterPage},
	} {
		w = env.do(page.h, http.MethodGet, page.path, nil, sessionCookie)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, Location = %q, ожидается 200", page.path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"name":            {"Ravi"},
		"email":           {"ravi@example.com"},
		"phone":           {"9000000002"},
		"password":        {"pass1"},
		"confirmPassword": {"pass1"},
		"city":            {"Pune"},
		"dateOfBirth":     {"1990-05-06"},
	}
	w := env.do(env.auth.Register, http.MethodPost, "/register", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, ожидается 303: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, ожидается /dashboard", loc)
	}
	u, ok := env.srv.User("ravi@example.com")
	if !ok {
		t.Fatal("участник не создан на backend")
	}
	if !strings.HasPrefix(u.DateOfBirth, "1990-05-06") {
		t.Errorf("DateOfBirth = %q", u.DateOfBirth)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(url.Values)
		wantText string
	}{
		{"пароли не совпадают", func(v url.Values) { v.Set("confirmPassword", "other") }, "Passwords do not match"},
		{"некорректный email", func(v url.Values) { v.Set("email", "ravi") }, "Please enter a valid email address"},
		{"без города", func(v url.Values) { v.Del("city") }, "Please fill in all required fields"},
		{"некорректная дата", func(v url.Values) { v.Set("dateOfBirth", "06.05.1990") }, "Invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			form := url.Values{
				"name":            {"Ravi"},
				"email":           {"ravi@example.com"},
				"phone":           {"9000000002"},
				"password":        {"pass1"},
				"confirmPassword": {"pass1"},
				"city":            {"Pune"},
			}
			tt.mutate(form)

			w := env.do(env.auth.Register, http.MethodPost, "/register", form)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, ожидается 422", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("страница не содержит %q", tt.wantText)
			}
			if env.srv.TotalCalls() != 0 {
				t.Error("запрос ушёл в backend до проверки полей")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie, key := env.loginCookie(t, "asha@example.com")

	w := env.do(env.auth.Logout, http.MethodPost, "/logout", url.Values{}, cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
	if _, err := env.tokens.Get(context.Background(), key); err == nil {
		t.Error("токен остался после выхода")
	}
	if env.srv.Calls(http.MethodPost, "/api/auth/logout") != 1 {
		t.Error("logout на backend не вызван")
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")

	w := env.do(env.member.Dashboard, http.MethodGet, "/dashboard", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Asha", "asha@example.com", "/api/user/dashboard", "Logout"} {
		if !strings.Contains(body, want) {
			t.Errorf("панель не содержит %q", want)
		}
	}
	if strings.Contains(body, `href="/login"`) {
		t.Error("меню участника содержит ссылку входа")
	}
}

func TestDashboard_UnauthorizedMidRequest(t *testing.T) {
	env := newTestEnv(t)
	cookie, key := env.loginCookie(t, "asha@example.com")
	env.srv.Override(http.MethodGet, "/api/user/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not authorized, token failed"}`))
	})

	w := env.do(env.member.Dashboard, http.MethodGet, "/dashboard", nil, cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
	if _, err := env.tokens.Get(context.Background(), key); err == nil {
		t.Error("токен остался после 401")
	}
	if cookieNamed(w, uiauth.FlashCookieName) == nil {
		t.Error("уведомление об истёкшей сессии не установлено")
	}
}

func TestDashboard_BackendErrorKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie, key := env.loginCookie(t, "asha@example.com")
	env.srv.Override(http.MethodGet, "/api/user/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Database error"}`))
	})

	w := env.do(env.member.Dashboard, http.MethodGet, "/dashboard", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Database error") {
		t.Error("сообщение backend не показано")
	}
	if _, err := env.tokens.Get(context.Background(), key); err != nil {
		t.Error("токен удалён после 500")
	}
}

func TestLive(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")
	env.srv.Override(http.MethodGet, "/api/user/live-videos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"videos":[{"_id":"v1","title":"June draw","url":"https://example.com/v1"}]}`))
	})

	w := env.do(env.member.Live, http.MethodGet, "/live", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<table", "June draw", "https://example.com/v1"} {
		if !strings.Contains(body, want) {
			t.Errorf("страница трансляций не содержит %q", want)
		}
	}
	if env.srv.Calls(http.MethodGet, "/api/user/live-videos") != 1 {
		t.Error("GET /api/user/live-videos не выполнен")
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")

	w := env.do(env.member.UpdateProfile, http.MethodPost, "/profile", url.Values{
		"name":  {"Asha"},
		"email": {"asha@example.com"},
		"phone": {"9000000001"},
		"city":  {"Delhi"},
	}, cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/profile" {
		t.Fatalf("status = %d, Location = %q: %s", w.Code, w.Header().Get("Location"), w.Body.String())
	}
	u, _ := env.srv.User("asha@example.com")
	if u.City != "Delhi" {
		t.Errorf("City = %q, ожидается Delhi", u.City)
	}
}

func TestUpdateProfile_ClearOptional(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser(model.UserSummary{
		Name: "Ravi", Email: "ravi@example.com", Phone: "9000000002", Role: "user",
		City: "Pune", Address: "12 MG Road", DateOfBirth: "1990-05-01",
	}, "secret1")
	cookie, _ := env.loginCookie(t, "ravi@example.com")

	w := env.do(env.member.UpdateProfile, http.MethodPost, "/profile", url.Values{
		"name":        {"Ravi"},
		"email":       {"ravi@example.com"},
		"phone":       {"9000000002"},
		"city":        {"Pune"},
		"address":     {""},
		"dateOfBirth": {""},
	}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, ожидается 303: %s", w.Code, w.Body.String())
	}
	u, _ := env.srv.User("ravi@example.com")
	if u.Address != "" || u.DateOfBirth != "" {
		t.Errorf("Address = %q, DateOfBirth = %q; ожидаются пустые", u.Address, u.DateOfBirth)
	}
}

func TestUpdateProfile_RequiredFieldCleared(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")

	w := env.do(env.member.UpdateProfile, http.MethodPost, "/profile", url.Values{
		"name":  {"Asha"},
		"email": {"asha@example.com"},
		"phone": {"9000000001"},
		"city":  {""},
	}, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, ожидается 422", w.Code)
	}
	if n := env.srv.Calls(http.MethodPut, backend.PathProfile); n != 0 {
		t.Errorf("PUT профиля вызван %d раз, ожидается 0", n)
	}
	u, _ := env.srv.User("asha@example.com")
	if u.City != "Mumbai" {
		t.Errorf("City = %q, ожидается Mumbai", u.City)
	}
}

func TestUpdateProfile_Failures(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantText string
	}{
		{
			name:     "нет изменений",
			form:     url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "phone": {"9000000001"}, "city": {"Mumbai"}},
			wantText: "Nothing to update",
		},
		{
			name:     "email занят",
			form:     url.Values{"name": {"Asha"}, "email": {"root@example.com"}, "phone": {"9000000001"}, "city": {"Mumbai"}},
			wantText: "Email already in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cookie, key := env.loginCookie(t, "asha@example.com")

			w := env.do(env.member.UpdateProfile, http.MethodPost, "/profile", tt.form, cookie)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, ожидается 422", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("страница не содержит %q", tt.wantText)
			}
			if _, err := env.tokens.Get(context.Background(), key); err != nil {
				t.Error("сессия потеряна после ошибки")
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantText string
	}{
		{
			name:     "успех",
			form:     url.Values{"currentPassword": {"secret1"}, "newPassword": {"secret2"}, "confirmPassword": {"secret2"}},
			wantCode: http.StatusSeeOther,
		},
		{
			name:     "неверный текущий пароль",
			form:     url.Values{"currentPassword": {"wrong"}, "newPassword": {"secret2"}, "confirmPassword": {"secret2"}},
			wantCode: http.StatusUnprocessableEntity,
			wantText: "Current password is incorrect",
		},
		{
			name:     "короткий пароль",
			form:     url.Values{"currentPassword": {"secret1"}, "newPassword": {"abc"}, "confirmPassword": {"abc"}},
			wantCode: http.StatusUnprocessableEntity,
			wantText: "Password must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cookie, _ := env.loginCookie(t, "asha@example.com")

			w := env.do(env.member.ChangePassword, http.MethodPost, "/profile/password", tt.form, cookie)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, ожидается %d", w.Code, tt.wantCode)
			}
			if tt.wantText != "" && !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("страница не содержит %q", tt.wantText)
			}
		})
	}
}

func TestAdminSurface(t *testing.T) {
	env := newTestEnv(t)
	users := AdminSurfaces[1]

	t.Run("администратор", func(t *testing.T) {
		cookie, _ := env.loginCookie(t, "root@example.com")
		w := env.do(env.admin.Surface(users), http.MethodGet, "/admin/users?page=2", nil, cookie)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, ожидается 200", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "/api/admin/users") || !strings.Contains(body, "page=2") {
			t.Error("данные backend не показаны")
		}
	})

	t.Run("ответ 403", func(t *testing.T) {
		cookie, key := env.loginCookie(t, "asha@example.com")
		w := env.do(env.admin.Surface(users), http.MethodGet, "/admin/users", nil, cookie)

		if !strings.Contains(w.Body.String(), "Access denied") {
			t.Error("сообщение 403 не показано")
		}
		if _, err := env.tokens.Get(context.Background(), key); err != nil {
			t.Error("сессия очищена после 403")
		}
	})

	t.Run("профиль без данных backend", func(t *testing.T) {
		cookie, _ := env.loginCookie(t, "root@example.com")
		before := env.srv.TotalCalls()
		w := env.do(env.admin.Surface(AdminSurfaces[6]), http.MethodGet, "/admin/profile", nil, cookie)

		if !strings.Contains(w.Body.String(), "root@example.com") {
			t.Error("профиль администратора не показан")
		}
		// Единственный запрос — /api/auth/me при разрешении сессии
		if env.srv.TotalCalls()-before != 1 {
			t.Errorf("запросов к backend = %d, ожидается 1", env.srv.TotalCalls()-before)
		}
	})
}

func TestAdminSurface_TableFromArray(t *testing.T) {
	env := newTestEnv(t)
	env.srv.Override(http.MethodGet, "/api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[{"_id":"u1","name":"Asha","email":"asha@example.com"}]}`))
	})
	cookie, _ := env.loginCookie(t, "root@example.com")

	w := env.do(env.admin.Surface(AdminSurfaces[1]), http.MethodGet, "/admin/users", nil, cookie)
	body := w.Body.String()
	if !strings.Contains(body, "<th>_id</th>") || !strings.Contains(body, "<td>u1</td>") {
		t.Errorf("таблица не построена: %s", body)
	}
}

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	about := env.public.Page("page.about.title", "page.about.text")

	w := env.do(about, http.MethodGet, "/about", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "About Us") {
		t.Errorf("status = %d, страница about не показана", w.Code)
	}
	if !strings.Contains(w.Body.String(), `href="/register"`) {
		t.Error("меню посетителя без ссылки регистрации")
	}

	w = env.do(about, http.MethodGet, "/about", nil, &http.Cookie{Name: i18n.LangCookieName, Value: "ru"})
	if !strings.Contains(w.Body.String(), "Главная") {
		t.Error("меню не переведено на русский")
	}
}

func TestSitemap(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.loginCookie(t, "asha@example.com")

	w := env.do(env.public.Sitemap, http.MethodGet, "/sitemap", nil, cookie)
	for _, want := range []string{`href="/privacy-policy"`, `href="/lucky-draw"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("карта сайта не содержит %s", want)
		}
	}
	if strings.Contains(w.Body.String(), `href="/admin/users"`) {
		t.Error("карта сайта участника содержит административные ссылки")
	}
}

func TestLoadingAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(env.public.Loading, http.MethodGet, "/dashboard", nil)
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Retry-After") != "1" {
		t.Errorf("loading: status = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}

	w = env.do(env.public.NotFound, http.MethodGet, "/nowhere", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Page not found") {
		t.Errorf("not found: status = %d", w.Code)
	}
}
