// Пакет backend — HTTP-клиент REST API Lucky Trip.
// Поддерживает TLS с кастомным CA (LT_BACKEND_CA_CERT_PATH).
// Операции auth: Login, Register, Me, UpdateProfile, ChangePassword, Logout.
// Остальные поверхности (/api/packages, /api/payments, /api/admin, /api/user)
// доступны через Call.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// Пути auth API backend.
const (
	PathLogin          = "/api/auth/login"
	PathRegister       = "/api/auth/register"
	PathMe             = "/api/auth/me"
	PathProfile        = "/api/auth/profile"
	PathChangePassword = "/api/auth/change-password"
	PathLogout         = "/api/auth/logout"
	// PathHealth — проверка доступности backend
	PathHealth = "/health"
)

// maxBodySize — ограничение размера тела ответа backend.
const maxBodySize = 10 << 20

// maxMessageLen — ограничение длины текстового сообщения об ошибке.
const maxMessageLen = 512

var backendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lt_backend_requests_total",
		Help: "Количество запросов к backend по операциям и статусам",
	},
	[]string{"operation", "status"},
)

var backendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lt_backend_request_duration_seconds",
		Help:    "Длительность запросов к backend",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// Config — параметры подключения к backend.
type Config struct {
	// BaseURL — origin backend без завершающего слэша
	BaseURL string
	// Timeout — таймаут одного HTTP-запроса
	Timeout time.Duration
	// CACertPath — путь к CA-сертификату (пустая строка — системный пул)
	CACertPath string
}

// Response — сырой ответ backend (для Call).
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client — HTTP-клиент backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	contract   *Contract
	logger     *slog.Logger
}

// New создаёт клиент backend и загружает контракт ответов.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат backend добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	contract, err := LoadContract()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		contract:   contract,
		logger:     logger.With(slog.String("component", "backend_client")),
	}, nil
}

// BaseURL возвращает origin backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// Login выполняет вход. POST /api/auth/login → {token, user}.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	resp, err := c.doJSON(ctx, "login", http.MethodPost, PathLogin, "", creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	auth, err := c.decodeAuth(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return auth, nil
}

// Register регистрирует участника. POST /api/auth/register → {token, user}.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	resp, err := c.doJSON(ctx, "register", http.MethodPost, PathRegister, "", req)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	auth, err := c.decodeAuth(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return auth, nil
}

// Me возвращает текущего пользователя. GET /api/auth/me.
func (c *Client) Me(ctx context.Context, token string) (*model.UserSummary, error) {
	resp, err := c.doJSON(ctx, "me", http.MethodGet, PathMe, token, nil)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	user, err := c.decodeUser(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

// UpdateProfile обновляет профиль. PUT /api/auth/profile → {user} или user.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd model.ProfileUpdate) (*model.UserSummary, error) {
	resp, err := c.doJSON(ctx, "update_profile", http.MethodPut, PathProfile, token, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	user, err := c.decodeUser(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword меняет пароль. PUT /api/auth/change-password, тело ответа не используется.
func (c *Client) ChangePassword(ctx context.Context, token string, pc model.PasswordChange) error {
	if _, err := c.doJSON(ctx, "change_password", http.MethodPut, PathChangePassword, token, pc); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// Logout завершает сессию на backend. POST /api/auth/logout.
func (c *Client) Logout(ctx context.Context, token string) error {
	if _, err := c.doJSON(ctx, "logout", http.MethodPost, PathLogout, token, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Call выполняет произвольный запрос к API backend (путь должен начинаться с /api/).
// Для статуса >= 400 возвращает и Response, и *HTTPError.
func (c *Client) Call(ctx context.Context, token, method, path string, body io.Reader, contentType string) (*Response, error) {
	if !strings.HasPrefix(path, "/api/") {
		return nil, fmt.Errorf("call %s %s: путь должен начинаться с /api/", method, path)
	}
	resp, err := c.send(ctx, "call", method, path, token, body, contentType)
	if err != nil {
		return resp, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	return resp, nil
}

// CheckReady проверяет доступность backend через GET /health.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.send(ctx, "health", http.MethodGet, PathHealth, "", nil, "")
	switch {
	case err == nil:
		return "ok", "backend доступен"
	case resp != nil && resp.StatusCode < http.StatusInternalServerError:
		return "degraded", fmt.Sprintf("backend ответил %d", resp.StatusCode)
	default:
		return "fail", fmt.Sprintf("backend недоступен: %v", err)
	}
}

// doJSON сериализует in (если не nil) и выполняет запрос.
func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in any) (*Response, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, op, method, path, token, body, contentType)
}

// send выполняет HTTP-запрос и классифицирует результат:
// нет ответа — ErrTransport, статус >= 400 — *HTTPError.
func (c *Client) send(ctx context.Context, op, method, path, token string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	backendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		backendRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Warn("Запрос к backend не выполнен",
			slog.String("operation", op),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		backendRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("%w: чтение ответа: %v", ErrTransport, err)
	}
	backendRequestsTotal.WithLabelValues(op, strconv.Itoa(httpResp.StatusCode)).Inc()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       data,
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug("Backend вернул ошибку",
			slog.String("operation", op),
			slog.String("path", path),
			slog.Int("status", httpResp.StatusCode),
		)
		return resp, &HTTPError{
			StatusCode: httpResp.StatusCode,
			Message:    extractMessage(data, httpResp.StatusCode),
		}
	}
	return resp, nil
}

// decodeAuth проверяет и разбирает ответ login/register.
func (c *Client) decodeAuth(body []byte) (*model.AuthResponse, error) {
	if err := c.contract.Validate(SchemaAuthResponse, body); err != nil {
		return nil, err
	}
	var auth model.AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &auth, nil
}

// decodeUser принимает как конверт {user}, так и голый объект пользователя.
func (c *Client) decodeUser(body []byte) (*model.UserSummary, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if raw, ok := probe["user"]; ok && len(raw) > 0 && raw[0] == '{' {
		if err := c.contract.Validate(SchemaUserEnvelope, body); err != nil {
			return nil, err
		}
		body = raw
	} else if err := c.contract.Validate(SchemaUser, body); err != nil {
		return nil, err
	}

	var user model.UserSummary
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &user, nil
}

// extractMessage извлекает текст ошибки из поля message или error.
func extractMessage(body []byte, status int) string {
	var apiErr struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if s, ok := apiErr.Error.(string); ok && s != "" {
			return s
		}
		if m, ok := apiErr.Error.(map[string]any); ok {
			if s, ok := m["message"].(string); ok && s != "" {
				return s
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "{") {
		return http.StatusText(status)
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	return text
}
