// Точка входа Member Portal — веб-портал участников Lucky Trip.
// Загружает конфигурацию, создаёт хранилище токенов (memory, redis или
// postgres с миграциями), клиент backend, сессии и Route Guard,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	apihandlers "github.com/bigkaa/luckytrip/internal/api/handlers"
	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/config"
	"github.com/bigkaa/luckytrip/internal/database"
	"github.com/bigkaa/luckytrip/internal/repository"
	"github.com/bigkaa/luckytrip/internal/server"
	"github.com/bigkaa/luckytrip/internal/service"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	uihandlers "github.com/bigkaa/luckytrip/internal/ui/handlers"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// redisKeyPrefix — префикс ключей токенов в Redis.
const redisKeyPrefix = "luckytrip:"

// tokenCleanupInterval — период удаления истёкших токенов (postgres).
const tokenCleanupInterval = 10 * time.Minute

// tokenLeeway — допуск часов при проверке exp токена.
const tokenLeeway = 30 * time.Second

func main() {
	// 0. .env (опционально, для локального запуска)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Member Portal запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.BackendURL),
		slog.String("token_store", cfg.TokenStore),
	)

	if os.Getenv("LT_DEPHEALTH_GROUP") == "" {
		logger.Warn("LT_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Хранилище токенов
	var (
		tokens       tokenstore.Store
		storeChecker apihandlers.ReadinessChecker
		pgDB         *sql.DB
	)
	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		client, err := tokenstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		redisStore := tokenstore.NewRedisStore(client, redisKeyPrefix, cfg.SessionTTL)
		tokens, storeChecker = redisStore, redisStore
		logger.Info("Хранилище токенов: Redis", slog.String("addr", cfg.RedisAddr))

	case config.TokenStorePostgres:
		db, err := database.Open(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		// *sql.DB поверх пула для topologymetrics (connection pool mode)
		pgDB = db.SQL

		pgStore := tokenstore.NewPostgresStore(repository.NewTokenRepository(db.Pool), cfg.SessionTTL, logger)
		go pgStore.RunCleanup(ctx, tokenCleanupInterval)
		tokens, storeChecker = pgStore, db
		logger.Info("Хранилище токенов: PostgreSQL", slog.String("host", cfg.DBHost))

	default:
		tokens = tokenstore.NewMemoryStore(cfg.MemoryStoreSize, cfg.SessionTTL)
		logger.Info("Хранилище токенов: память процесса",
			slog.Int("max_size", cfg.MemoryStoreSize),
		)
	}

	// 4. Клиент backend
	client, err := backend.New(backend.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout,
		CACertPath: cfg.BackendCACertPath,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Инспектор токенов (JWKS опционально)
	inspector, err := auth.NewTokenInspector(cfg.BackendJWKSURL, cfg.BackendJWKSRefreshInterval, tokenLeeway, logger)
	if err != nil {
		logger.Error("Ошибка создания инспектора токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.BackendJWKSURL != "" {
		logger.Info("Проверка подписи токенов включена", slog.String("jwks_url", cfg.BackendJWKSURL))
	}

	// 6. Сессии, i18n, страницы
	sessionMgr, err := uiauth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookie, cfg.SessionTTL)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("LT_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	bundle, err := i18n.NewDefaultBundle(logger)
	if err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	renderer, err := pages.NewRenderer(bundle)
	if err != nil {
		logger.Error("Ошибка разбора шаблонов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	base := uihandlers.NewBase(renderer, bundle, sessionMgr, logger)
	publicHandler := uihandlers.NewPublicHandler(base, logger)

	checkers := []apihandlers.NamedChecker{{Name: "backend", Checker: client}}
	if storeChecker != nil {
		checkers = append(checkers, apihandlers.NamedChecker{Name: "token_store", Checker: storeChecker})
	}

	deps := server.Deps{
		Health:   apihandlers.NewHealthHandler(checkers...),
		Session:  apihandlers.NewSessionHandler(bundle),
		Proxy:    apihandlers.NewProxyHandler(logger),
		Sessions: uimiddleware.NewSessions(sessionMgr, tokens, client, inspector, logger),
		Guard:    uimiddleware.NewGuard(sessionMgr, http.HandlerFunc(publicHandler.Loading), logger),
		Public:   publicHandler,
		Auth:     uihandlers.NewAuthHandler(base, logger),
		Member:   uihandlers.NewMemberHandler(base, logger),
		Admin:    uihandlers.NewAdminHandler(base, logger),
	}

	// 7. topologymetrics — мониторинг зависимостей (backend + PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "luckytrip-portal",
		Group:         cfg.DephealthGroup,
		BackendURL:    cfg.BackendURL,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, deps)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	cancel()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Member Portal остановлен")
}
