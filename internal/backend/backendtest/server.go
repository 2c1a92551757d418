// Пакет backendtest — in-memory имитация REST API backend для тестов.
// Реализует auth API и несколько защищённых поверхностей (/api/user, /api/admin,
// /api/pending, /api/packages, /api/payments) с проверкой bearer-токена и роли.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// account — учётная запись в имитации backend.
type account struct {
	user     model.UserSummary
	password string
}

// Server — имитация backend поверх httptest.Server.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // по email
	tokens    map[string]string   // token → email
	calls     map[string]int      // "METHOD /path" → количество
	overrides map[string]http.HandlerFunc
	// bareUser — отдавать me/profile без конверта {user}
	bareUser bool
}

// New запускает имитацию backend и регистрирует остановку в t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:  make(map[string]*account),
		tokens:    make(map[string]string),
		calls:     make(map[string]int),
		overrides: make(map[string]http.HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// AddUser добавляет активную учётную запись. Пустой ID заполняется случайным.
func (s *Server) AddUser(u model.UserSummary, password string) model.UserSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.IsActive = true
	if u.ID == "" {
		u.ID = strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	}
	if u.Role == "" {
		u.Role = "user"
	}
	s.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return u
}

// IssueToken выдаёт токен для пользователя с указанным email.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(strings.ToLower(email))
}

func (s *Server) issueLocked(email string) string {
	token := "tok-" + uuid.NewString()
	s.tokens[token] = email
	return token
}

// RevokeToken делает токен недействительным (последующие запросы — 401).
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// TokenValid проверяет, действителен ли токен.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// User возвращает текущий снимок пользователя по email.
func (s *Server) User(email string) (model.UserSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return model.UserSummary{}, false
	}
	return acc.user, true
}

// Calls возвращает количество вызовов METHOD path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls возвращает общее количество запросов.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Override подменяет обработчик METHOD path.
func (s *Server) Override(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = h
}

// BareUser переключает формат ответа me/profile на голый объект пользователя.
func (s *Server) BareUser(bare bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bareUser = bare
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	s.mu.Lock()
	s.calls[key]++
	override := s.overrides[key]
	s.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}

	switch {
	case key == "GET /health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case key == "POST /api/auth/login":
		s.login(w, r)
	case key == "POST /api/auth/register":
		s.register(w, r)
	case key == "GET /api/auth/me":
		s.me(w, r)
	case key == "PUT /api/auth/profile":
		s.profile(w, r)
	case key == "PUT /api/auth/change-password":
		s.changePassword(w, r)
	case key == "POST /api/auth/logout":
		s.logout(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/admin/"), strings.HasPrefix(r.URL.Path, "/api/pending"):
		s.protected(w, r, "admin", "superadmin")
	case strings.HasPrefix(r.URL.Path, "/api/user/"):
		s.protected(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/packages"), strings.HasPrefix(r.URL.Path, "/api/payments"):
		s.protected(w, r)
	default:
		writeMessage(w, http.StatusNotFound, "Route not found")
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.findLocked(creds.Identifier)
	if acc == nil || acc.password != creds.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !acc.user.IsActive {
		writeMessage(w, http.StatusForbidden, "Account is deactivated")
		return
	}
	token := s.issueLocked(strings.ToLower(acc.user.Email))
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": wireUser(acc.user)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := body["confirmPassword"]; ok {
		writeMessage(w, http.StatusBadRequest, "confirmPassword is not accepted")
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	name, _ := body["name"].(string)
	phone, _ := body["phone"].(string)
	city, _ := body["city"].(string)
	address, _ := body["address"].(string)
	dob, _ := body["dateOfBirth"].(string)
	if email == "" || password == "" || name == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[strings.ToLower(email)]; exists {
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	}
	u := model.UserSummary{
		ID:                strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		Name:              name,
		Email:             email,
		Phone:             phone,
		Role:              "user",
		IsActive:          true,
		VirtualCardNumber: fmt.Sprintf("HLT-2024-%06d", len(s.accounts)+1),
		City:              city,
		Address:           address,
		DateOfBirth:       dob,
	}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	token := s.issueLocked(strings.ToLower(email))
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": wireUser(u)})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.authLocked(r)
	if acc == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	s.writeUserLocked(w, acc.user)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.authLocked(r)
	if acc == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	var upd map[string]any
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	apply := func(field string, dst *string) {
		v, present := upd[field]
		if !present {
			return
		}
		switch x := v.(type) {
		case string:
			*dst = x
		case nil:
			*dst = ""
		}
	}
	apply("name", &acc.user.Name)
	apply("phone", &acc.user.Phone)
	apply("city", &acc.user.City)
	apply("address", &acc.user.Address)
	apply("dateOfBirth", &acc.user.DateOfBirth)
	if email, ok := upd["email"].(string); ok && !strings.EqualFold(email, acc.user.Email) {
		oldKey := strings.ToLower(acc.user.Email)
		if _, taken := s.accounts[strings.ToLower(email)]; taken {
			writeMessage(w, http.StatusBadRequest, "Email already in use")
			return
		}
		acc.user.Email = email
		delete(s.accounts, oldKey)
		s.accounts[strings.ToLower(email)] = acc
		for tok, e := range s.tokens {
			if e == oldKey {
				s.tokens[tok] = strings.ToLower(email)
			}
		}
	}
	s.writeUserLocked(w, acc.user)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.authLocked(r)
	if acc == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := body["confirmPassword"]; ok {
		writeMessage(w, http.StatusBadRequest, "confirmPassword is not accepted")
		return
	}
	current, _ := body["currentPassword"].(string)
	next, _ := body["newPassword"].(string)
	if current != acc.password {
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	acc.password = next
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token := bearer(r); token != "" {
		delete(s.tokens, token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// protected обслуживает защищённые поверхности: 401 без токена, 403 при неподходящей роли.
func (s *Server) protected(w http.ResponseWriter, r *http.Request, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.authLocked(r)
	if acc == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	if len(roles) > 0 {
		allowed := false
		for _, role := range roles {
			if acc.user.Role == role {
				allowed = true
			}
		}
		if !allowed {
			writeMessage(w, http.StatusForbidden, "Access denied")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"userId": acc.user.ID,
	})
}

func (s *Server) findLocked(identifier string) *account {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if acc, ok := s.accounts[id]; ok {
		return acc
	}
	for _, acc := range s.accounts {
		if acc.user.Phone == identifier || strings.EqualFold(acc.user.VirtualCardNumber, identifier) {
			return acc
		}
	}
	return nil
}

func (s *Server) authLocked(r *http.Request) *account {
	token := bearer(r)
	if token == "" {
		return nil
	}
	email, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.accounts[email]
}

func (s *Server) writeUserLocked(w http.ResponseWriter, u model.UserSummary) {
	if s.bareUser {
		writeJSON(w, http.StatusOK, wireUser(u))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": wireUser(u)})
}

// wireUser сериализует пользователя так, как это делает backend (_id вместо id).
func wireUser(u model.UserSummary) map[string]any {
	m := map[string]any{
		"_id":               u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"phone":             u.Phone,
		"role":              u.Role,
		"isActive":          u.IsActive,
		"virtualCardNumber": u.VirtualCardNumber,
		"city":              u.City,
		"address":           u.Address,
		"monthsPaid":        u.MonthsPaid,
		"totalAmountPaid":   u.TotalAmountPaid,
	}
	if u.DateOfBirth != "" {
		m["dateOfBirth"] = u.DateOfBirth
	}
	return m
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
