// Пакет session — хранилище сессии: текущий bearer-токен и снимок пользователя.
//
// Store создаётся явно (без глобального состояния) для одного ключа
// хранилища токенов: portal:<sessionID> в портале или token в CLI.
// Жизненный цикл: New → Initialize → SetSession/ClearSession/UpdateUser → Teardown.
//
// Защита от устаревших ответов: перед сетевым вызовом берётся Ticket (Begin);
// каждое SetSession/ClearSession увеличивает поколение, и ответ с устаревшим
// билетом отбрасывается. Поздний ответ /api/auth/me после logout не
// восстанавливает очищенную сессию.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
)

// ErrClosed — Store уже освобождён через Teardown.
var ErrClosed = errors.New("хранилище сессии закрыто")

// Причины очистки сессии (лейбл reason метрики lt_session_cleared_total).
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
	ReasonExpired      = "expired"
	ReasonInvalid      = "invalid"
)

var sessionClearedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lt_session_cleared_total",
		Help: "Количество очисток сессии по причинам",
	},
	[]string{"reason"},
)

// UserFetcher запрашивает текущего пользователя по токену (GET /api/auth/me).
type UserFetcher interface {
	Me(ctx context.Context, token string) (*model.UserSummary, error)
}

// TokenInspector сообщает, доказуемо ли истёк токен (без обращения к backend).
type TokenInspector interface {
	Expired(token string) bool
}

// State — снимок сессии.
type State struct {
	Token   string
	User    *model.UserSummary
	Loading bool
}

// Authenticated возвращает true, если пользователь подтверждён backend.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// Role возвращает роль пользователя или пустую строку.
func (s State) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Ticket — маркер поколения сессии, взятый до сетевого вызова.
type Ticket struct {
	gen uint64
}

// Option — функциональная опция Store.
type Option func(*Store)

// WithInspector задаёт проверку срока действия токена.
func WithInspector(i TokenInspector) Option {
	return func(s *Store) { s.inspector = i }
}

// WithLogger задаёт logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store — хранилище сессии для одного ключа.
type Store struct {
	key       string
	tokens    tokenstore.Store
	fetcher   UserFetcher
	inspector TokenInspector
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	listeners map[int]func(ctx context.Context)
	nextID    int
	closed    bool
}

// New создаёт Store в состоянии {"" , nil, Loading: true}.
func New(key string, tokens tokenstore.Store, fetcher UserFetcher, opts ...Option) *Store {
	s := &Store{
		key:       key,
		tokens:    tokens,
		fetcher:   fetcher,
		logger:    slog.Default(),
		state:     State{Loading: true},
		listeners: make(map[int]func(ctx context.Context)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "session"))
	return s
}

// Key возвращает ключ хранилища токенов.
func (s *Store) Key() string {
	return s.key
}

// Initialize восстанавливает сессию из сохранённого токена.
//
// Нет токена — {"" , nil, false}. Токен доказуемо истёк — очищается без
// обращения к backend. Иначе GET /api/auth/me: успех — пользователь
// установлен; 4xx или некорректный ответ — токен удаляется; отсутствие
// ответа или 5xx — токен сохраняется, пользователь nil, возвращается ошибка.
// В любом случае Loading=false.
func (s *Store) Initialize(ctx context.Context) error {
	ticket, err := s.begin()
	if err != nil {
		return err
	}

	token, err := s.tokens.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			s.resolve(ticket, State{})
			return nil
		}
		s.resolve(ticket, State{})
		return fmt.Errorf("чтение токена сессии: %w", err)
	}

	if s.inspector != nil && s.inspector.Expired(token) {
		s.logger.Debug("Сохранённый токен истёк, сессия очищена без запроса к backend")
		return s.discard(ctx, ticket, ReasonExpired)
	}

	user, err := s.fetcher.Me(ctx, token)
	if err == nil {
		s.resolve(ticket, State{Token: token, User: user.Clone()})
		return nil
	}

	if keepsToken(err) {
		s.logger.Warn("Не удалось проверить сохранённый токен, токен сохранён",
			slog.String("error", err.Error()),
		)
		s.resolve(ticket, State{Token: token})
		return fmt.Errorf("проверка сессии: %w", err)
	}

	s.logger.Info("Сохранённый токен отклонён backend, сессия очищена",
		slog.String("error", err.Error()),
	)
	if derr := s.discard(ctx, ticket, ReasonInvalid); derr != nil {
		return derr
	}
	if errors.Is(err, backend.ErrMalformedResponse) {
		return fmt.Errorf("проверка сессии: %w", err)
	}
	return nil
}

// keepsToken — ошибка не доказывает недействительность токена.
func keepsToken(err error) bool {
	if errors.Is(err, backend.ErrTransport) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var httpErr *backend.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode >= http.StatusInternalServerError
}

// SetSession сохраняет токен, устанавливает пользователя и снимает Loading.
// При ошибке сохранения состояние не меняется.
func (s *Store) SetSession(ctx context.Context, token string, user *model.UserSummary) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.tokens.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("сохранение токена сессии: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State{Token: token, User: user.Clone()}
	return nil
}

// ClearSession удаляет сохранённый токен и сбрасывает пользователя. Идемпотентна.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.clear(ReasonLogout)
	if err := s.tokens.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("удаление токена сессии: %w", err)
	}
	return nil
}

// HandleUnauthorized очищает сессию после ответа 401 и уведомляет
// подписчиков OnCleared. Подписчики вызываются ровно один раз на живую
// сессию: повторные 401 после очистки их не вызывают.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	s.handleUnauthorized(ctx, nil)
}

// HandleUnauthorizedAt — как HandleUnauthorized, но только если билет
// запроса, получившего 401, не устарел. Возвращает true, если сессия очищена.
func (s *Store) HandleUnauthorizedAt(ctx context.Context, ticket Ticket) bool {
	return s.handleUnauthorized(ctx, &ticket)
}

func (s *Store) handleUnauthorized(ctx context.Context, ticket *Ticket) bool {
	s.mu.Lock()
	if s.closed || (ticket != nil && ticket.gen != s.gen) {
		s.mu.Unlock()
		return false
	}
	live := s.state.Token != ""
	s.gen++
	s.state = State{}
	var notify []func(ctx context.Context)
	if live {
		for _, fn := range s.listeners {
			notify = append(notify, fn)
		}
	}
	s.mu.Unlock()

	if !live {
		return false
	}

	sessionClearedTotal.WithLabelValues(ReasonUnauthorized).Inc()
	s.logger.Info("Backend ответил 401, сессия очищена")
	if err := s.tokens.Delete(ctx, s.key); err != nil {
		s.logger.Error("Ошибка удаления токена сессии", slog.String("error", err.Error()))
	}
	for _, fn := range notify {
		fn(ctx)
	}
	return true
}

// OnCleared регистрирует подписчика на очистку сессии по 401.
// Возвращает функцию отписки.
func (s *Store) OnCleared(fn func(ctx context.Context)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// UpdateUser обновляет снимок пользователя, если билет не устарел и
// сессия жива. Возвращает false, если обновление отброшено.
func (s *Store) UpdateUser(ticket Ticket, user *model.UserSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ticket.gen != s.gen || s.state.Token == "" || user == nil {
		return false
	}
	s.state.User = user.Clone()
	return true
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Token:   s.state.Token,
		User:    s.state.User.Clone(),
		Loading: s.state.Loading,
	}
}

// Begin возвращает билет текущего поколения сессии.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket{gen: s.gen}
}

// Current проверяет, не устарел ли билет.
func (s *Store) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && t.gen == s.gen
}

// Teardown освобождает подписчиков. После вызова Store не используется.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

func (s *Store) begin() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Ticket{}, ErrClosed
	}
	return Ticket{gen: s.gen}, nil
}

func (s *Store) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// resolve применяет результат Initialize, если билет не устарел.
func (s *Store) resolve(t Ticket, st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || t.gen != s.gen {
		s.logger.Debug("Устаревший результат инициализации отброшен")
		return false
	}
	st.Loading = false
	s.state = st
	return true
}

// discard очищает сессию по результату Initialize (если билет актуален)
// и удаляет сохранённый токен.
func (s *Store) discard(ctx context.Context, t Ticket, reason string) error {
	s.mu.Lock()
	if s.closed || t.gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.state = State{}
	s.mu.Unlock()

	sessionClearedTotal.WithLabelValues(reason).Inc()
	if err := s.tokens.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("удаление токена сессии: %w", err)
	}
	return nil
}

// clear сбрасывает состояние и увеличивает поколение.
func (s *Store) clear(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.state.Token != ""
	s.gen++
	s.state = State{}
	if live {
		sessionClearedTotal.WithLabelValues(reason).Inc()
	}
}
