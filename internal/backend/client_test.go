package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/luckytrip/internal/backend/backendtest"
	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestClient создаёт клиент, направленный на url.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: url, Timeout: 2 * time.Second}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// setupBackend создаёт имитацию backend с одним участником.
func setupBackend(t *testing.T) (*backendtest.Server, model.UserSummary) {
	t.Helper()
	srv := backendtest.New(t)
	u := srv.AddUser(model.UserSummary{
		Name:  "Asha",
		Email: "asha@example.com",
		Phone: "+911234567890",
		Role:  "user",
	}, "secret1")
	return srv, u
}

func TestLoadContract(t *testing.T) {
	c, err := LoadContract()
	if err != nil {
		t.Fatalf("LoadContract: %v", err)
	}
	for _, p := range authPaths {
		if !c.hasPath(p) {
			t.Errorf("контракт не описывает путь %s", p)
		}
	}
	if c.hasPath("/api/auth/password") {
		t.Error("контракт описывает неиспользуемый путь /api/auth/password")
	}
}

func TestContract_Validate(t *testing.T) {
	c, err := LoadContract()
	if err != nil {
		t.Fatalf("LoadContract: %v", err)
	}

	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{name: "валидный пользователь", schema: SchemaUser, body: `{"_id":"1","role":"user","name":"A"}`},
		{name: "пользователь с null-полями", schema: SchemaUser, body: `{"_id":"1","role":"admin","phone":null,"city":null}`},
		{name: "пользователь без роли", schema: SchemaUser, body: `{"_id":"1","name":"A"}`, wantErr: true},
		{name: "роль не строка", schema: SchemaUser, body: `{"role":5}`, wantErr: true},
		{name: "monthsPaid строкой", schema: SchemaUser, body: `{"role":"user","monthsPaid":"seven"}`, wantErr: true},
		{name: "валидный auth", schema: SchemaAuthResponse, body: `{"token":"t","user":{"role":"user"}}`},
		{name: "auth без токена", schema: SchemaAuthResponse, body: `{"user":{"role":"user"}}`, wantErr: true},
		{name: "auth с пустым токеном", schema: SchemaAuthResponse, body: `{"token":"","user":{"role":"user"}}`, wantErr: true},
		{name: "auth без пользователя", schema: SchemaAuthResponse, body: `{"token":"t"}`, wantErr: true},
		{name: "не JSON", schema: SchemaUser, body: `<html>`, wantErr: true},
		{name: "конверт", schema: SchemaUserEnvelope, body: `{"user":{"role":"user"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.schema, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("ожидается ErrMalformedResponse, получено %v", err)
			}
		})
	}
}

func TestClient_Login(t *testing.T) {
	srv, u := setupBackend(t)
	c := newTestClient(t, srv.URL)

	auth, err := c.Login(context.Background(), model.Credentials{Identifier: "asha@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if auth.Token == "" {
		t.Error("пустой токен")
	}
	if auth.User == nil || auth.User.ID != u.ID || auth.User.Role != "user" {
		t.Errorf("User = %+v, ожидается %s/user", auth.User, u.ID)
	}
}

func TestClient_LoginByPhone(t *testing.T) {
	srv, _ := setupBackend(t)
	c := newTestClient(t, srv.URL)

	if _, err := c.Login(context.Background(), model.Credentials{Identifier: "+911234567890", Password: "secret1"}); err != nil {
		t.Fatalf("Login по телефону: %v", err)
	}
}

func TestClient_LoginWrongPassword(t *testing.T) {
	srv, _ := setupBackend(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Login(context.Background(), model.Credentials{Identifier: "asha@example.com", Password: "nope"})
	if !IsUnauthorized(err) {
		t.Fatalf("ожидается 401, получено %v", err)
	}
	if Message(err) != "Invalid credentials" {
		t.Errorf("Message = %q, ожидается Invalid credentials", Message(err))
	}
}

func TestClient_Me(t *testing.T) {
	for _, bare := range []bool{false, true} {
		name := "конверт"
		if bare {
			name = "голый объект"
		}
		t.Run(name, func(t *testing.T) {
			srv, u := setupBackend(t)
			srv.BareUser(bare)
			c := newTestClient(t, srv.URL)
			token := srv.IssueToken(u.Email)

			got, err := c.Me(context.Background(), token)
			if err != nil {
				t.Fatalf("Me: %v", err)
			}
			if got.ID != u.ID || got.Email != u.Email {
				t.Errorf("Me = %+v", got)
			}
		})
	}
}

func TestClient_MeUnauthorized(t *testing.T) {
	srv, _ := setupBackend(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Me(context.Background(), "bogus")
	if !IsUnauthorized(err) {
		t.Fatalf("ожидается 401, получено %v", err)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "без роли", body: `{"user":{"name":"A"}}`},
		{name: "не JSON", body: `ok`},
		{name: "массив", body: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)
			c := newTestClient(t, srv.URL)

			_, err := c.Me(context.Background(), "t")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("ожидается ErrMalformedResponse, получено %v", err)
			}
		})
	}
}

func TestClient_LoginMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	_, err := c.Login(context.Background(), model.Credentials{Identifier: "a", Password: "b"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("ожидается ErrMalformedResponse, получено %v", err)
	}
}

func TestClient_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Me(context.Background(), "t")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("ожидается ErrTransport, получено %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	srv, _ := setupBackend(t)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Me(ctx, "t")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("ожидается ErrTransport, получено %v", err)
	}
}

func TestClient_UpdateProfile(t *testing.T) {
	srv, u := setupBackend(t)
	c := newTestClient(t, srv.URL)
	token := srv.IssueToken(u.Email)

	got, err := c.UpdateProfile(context.Background(), token, model.ProfileUpdate{City: "Pune", Address: "MG Road 1"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.City != "Pune" || got.Address != "MG Road 1" {
		t.Errorf("UpdateProfile = %+v", got)
	}
	if got.Name != "Asha" {
		t.Errorf("незаданное поле изменилось: Name = %q", got.Name)
	}
}

func TestClient_ChangePassword(t *testing.T) {
	srv, u := setupBackend(t)
	c := newTestClient(t, srv.URL)
	token := srv.IssueToken(u.Email)
	ctx := context.Background()

	err := c.ChangePassword(ctx, token, model.PasswordChange{CurrentPassword: "wrong", NewPassword: "secret2", ConfirmPassword: "secret2"})
	if !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("ожидается 400, получено %v", err)
	}
	if Message(err) != "Current password is incorrect" {
		t.Errorf("Message = %q", Message(err))
	}

	if err := c.ChangePassword(ctx, token, model.PasswordChange{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := c.Login(ctx, model.Credentials{Identifier: u.Email, Password: "secret2"}); err != nil {
		t.Errorf("Login с новым паролем: %v", err)
	}
}

func TestClient_Logout(t *testing.T) {
	srv, u := setupBackend(t)
	c := newTestClient(t, srv.URL)
	token := srv.IssueToken(u.Email)

	if err := c.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if srv.TokenValid(token) {
		t.Error("токен остался действительным после logout")
	}
}

func TestClient_Call(t *testing.T) {
	srv, u := setupBackend(t)
	c := newTestClient(t, srv.URL)
	token := srv.IssueToken(u.Email)
	ctx := context.Background()

	resp, err := c.Call(ctx, token, http.MethodGet, "/api/user/dashboard", nil, "")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(resp.Body), "/api/user/dashboard") {
		t.Errorf("Call = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = c.Call(ctx, token, http.MethodGet, "/api/admin/dashboard", nil, "")
	if !IsForbidden(err) {
		t.Fatalf("ожидается 403, получено %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("ожидается Response со статусом 403")
	}

	if _, err := c.Call(ctx, token, http.MethodGet, "/etc/passwd", nil, ""); err == nil {
		t.Error("Call должен отклонять пути вне /api/")
	}
}

func TestClient_BearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	if _, err := c.Call(context.Background(), "abc", http.MethodGet, "/api/packages", nil, ""); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "Bearer abc" {
		t.Errorf("Authorization = %q, ожидается Bearer abc", got)
	}

	if _, err := c.Call(context.Background(), "", http.MethodGet, "/api/packages", nil, ""); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "" {
		t.Errorf("Authorization = %q, ожидается пустой заголовок без токена", got)
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{name: "message", body: `{"message":"Package not found"}`, status: 404, want: "Package not found"},
		{name: "error строкой", body: `{"error":"bad input"}`, status: 400, want: "bad input"},
		{name: "error объектом", body: `{"error":{"code":"X","message":"nested"}}`, status: 400, want: "nested"},
		{name: "message в приоритете", body: `{"message":"m","error":"e"}`, status: 400, want: "m"},
		{name: "пустое тело", body: ``, status: 502, want: "Bad Gateway"},
		{name: "html", body: `<html>oops</html>`, status: 500, want: "Internal Server Error"},
		{name: "текст", body: `Too many requests`, status: 429, want: "Too many requests"},
		{name: "json без полей", body: `{"ok":false}`, status: 409, want: "Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractMessage([]byte(tt.body), tt.status); got != tt.want {
				t.Errorf("extractMessage() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Message: "not found"}
	if err.Error() != "HTTP 404: not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := errors.Join(errors.New("ctx"), err)
	if !IsStatus(wrapped, 404) {
		t.Error("IsStatus не нашёл обёрнутую ошибку")
	}
	if IsStatus(wrapped, 500) {
		t.Error("IsStatus вернул true для другого кода")
	}
	if IsStatus(errors.New("plain"), 404) {
		t.Error("IsStatus вернул true для обычной ошибки")
	}
}

func TestClient_CheckReady(t *testing.T) {
	srv, _ := setupBackend(t)
	c := newTestClient(t, srv.URL)

	if status, _ := c.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = %q, ожидается ok", status)
	}

	srv.Override(http.MethodGet, PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if status, _ := c.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() при 503 = %q, ожидается fail", status)
	}

	srv.Override(http.MethodGet, PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if status, _ := c.CheckReady(); status != "degraded" {
		t.Errorf("CheckReady() при 404 = %q, ожидается degraded", status)
	}

	srv.Close()
	if status, _ := c.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() без backend = %q, ожидается fail", status)
	}
}
