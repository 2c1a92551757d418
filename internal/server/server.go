// Пакет server — HTTP-сервер Member Portal с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/luckytrip/internal/api/errors"
	apihandlers "github.com/bigkaa/luckytrip/internal/api/handlers"
	"github.com/bigkaa/luckytrip/internal/api/middleware"
	"github.com/bigkaa/luckytrip/internal/config"
	"github.com/bigkaa/luckytrip/internal/guard"
	uihandlers "github.com/bigkaa/luckytrip/internal/ui/handlers"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/static"
)

// Deps — обработчики и middleware портала.
type Deps struct {
	Health   *apihandlers.HealthHandler
	Session  *apihandlers.SessionHandler
	Proxy    *apihandlers.ProxyHandler
	Sessions *uimiddleware.Sessions
	Guard    *uimiddleware.Guard
	Public   *uihandlers.PublicHandler
	Auth     *uihandlers.AuthHandler
	Member   *uihandlers.MemberHandler
	Admin    *uihandlers.AdminHandler
}

// Server — HTTP-сервер Member Portal.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      Routes(logger, deps),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Routes собирает маршруты портала.
// Health, metrics и статика обслуживаются без сессии; остальные маршруты
// получают сессию запроса, защищённые группы проходят Route Guard.
func Routes(logger *slog.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(i18n.Middleware())

	router.Get("/health/live", deps.Health.HealthLive)
	router.Get("/health/ready", deps.Health.HealthReady)
	router.Get("/metrics", deps.Health.GetMetrics)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))
	router.Post("/lang", i18n.SetLanguage)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apierrors.NotFound(w, "маршрут не найден")
			return
		}
		deps.Public.NotFound(w, r)
	})

	router.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware())

		// Публичные страницы
		pub := deps.Public
		r.Get("/", pub.Page("page.home.title", "page.home.text"))
		r.Get("/about", pub.Page("page.about.title", "page.about.text"))
		r.Get("/contact", pub.Page("page.contact.title", "page.contact.text"))
		r.Get("/sitemap", pub.Sitemap)
		r.Get("/privacy-policy", pub.Page("page.privacy_policy.title", "page.privacy_policy.text"))
		r.Get("/member/packages", pub.Page("page.member_packages.title", "page.member_packages.text"))
		r.Get("/non-member/packages", pub.Page("page.non_member_packages.title", "page.non_member_packages.text"))

		r.Get("/login", deps.Auth.LoginPage)
		r.Post("/login", deps.Auth.Login)
		r.Get("/register", deps.Auth.RegisterPage)
		r.Post("/register", deps.Auth.Register)
		r.Post("/logout", deps.Auth.Logout)

		r.Get("/api/session", deps.Session.GetSession)
		r.Get("/api/nav", deps.Session.GetNav)
		r.Post("/api/proxy/contact", deps.Proxy.Proxy)

		// Участник
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Require(guard.Member()))
			r.Get("/dashboard", deps.Member.Dashboard)
			r.Get("/profile", deps.Member.Profile)
			r.Post("/profile", deps.Member.UpdateProfile)
			r.Post("/profile/password", deps.Member.ChangePassword)
			r.Get("/lucky-draw", pub.Page("page.lucky_draw.title", "page.lucky_draw.text"))
			r.Get("/live", deps.Member.Live)
			r.HandleFunc("/api/proxy/user/*", deps.Proxy.Proxy)
		})

		// Администратор
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Require(guard.Admin()))
			for _, s := range uihandlers.AdminSurfaces {
				r.Get(s.Path, deps.Admin.Surface(s))
			}
			r.HandleFunc("/api/proxy/admin/*", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/reports/*", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/pending", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/pending/*", deps.Proxy.Proxy)
		})

		// Любая аутентифицированная роль
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Require(guard.Authenticated()))
			r.HandleFunc("/api/proxy/packages", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/packages/*", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/payments", deps.Proxy.Proxy)
			r.HandleFunc("/api/proxy/payments/*", deps.Proxy.Proxy)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
