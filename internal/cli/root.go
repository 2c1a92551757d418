// Пакет cli — команды luckyctl: вход, регистрация, профиль, меню и
// произвольные запросы к API backend от имени сохранённой сессии.
//
// Токен хранится в ~/.luckytrip/token (права 0600). Адрес backend:
// флаг --api-url, затем LUCKYTRIP_API_URL, затем ~/.luckytrip/config.yaml.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/backend"
	"github.com/bigkaa/luckytrip/internal/session"
	"github.com/bigkaa/luckytrip/internal/tokenstore"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
)

// tokenLeeway — допуск при проверке срока действия сохранённого токена.
const tokenLeeway = 30 * time.Second

// Options — окружение команды. Пустые поля заменяются стандартными
// (os.Stdin, os.Stdout, os.Stderr, ~/.luckytrip, os.Getenv).
type Options struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Dir    string
	Getenv func(string) string
}

// app — состояние одного запуска luckyctl.
type app struct {
	opts Options

	// флаги
	apiURL     string
	configPath string
	lang       string
	verbose    bool

	cfg    Config
	logger *slog.Logger
	bundle *i18n.Bundle
	out    styles
	errOut styles
}

// Execute запускает luckyctl с аргументами процесса и возвращает код выхода.
func Execute() int {
	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// NewRootCommand собирает дерево команд luckyctl.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "luckyctl",
		Short: "Lucky Trip membership client",
		Long: `luckyctl works with the Lucky Trip membership backend from the terminal.

The session token is stored in ~/.luckytrip/token. The backend address is taken
from --api-url, then LUCKYTRIP_API_URL, then ~/.luckytrip/config.yaml.

Examples:
  luckyctl login -i asha@example.com --password-stdin
  luckyctl whoami
  luckyctl call GET /api/packages`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "backend URL (overrides "+EnvAPIURL+")")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.luckytrip/"+ConfigFileName+")")
	root.PersistentFlags().StringVar(&a.lang, "lang", "", "message language: en or ru")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.menuCmd(),
		a.profileCmd(),
		a.callCmd(),
	)
	return root
}

// setup загружает настройки, logger и каталоги переводов.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.opts.Err, &slog.HandlerOptions{Level: level}))

	dir, err := a.dir()
	if err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path = filepath.Join(dir, ConfigFileName)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.cfg.APIURL = ResolveAPIURL(a.apiURL, a.opts.Getenv, cfg)

	switch {
	case a.lang == "":
		a.lang = cfg.Lang
	case !i18n.Supported(a.lang):
		return fmt.Errorf("неподдерживаемый язык %q (en, ru)", a.lang)
	}

	bundle, err := i18n.NewDefaultBundle(a.logger)
	if err != nil {
		return fmt.Errorf("загрузка переводов: %w", err)
	}
	a.bundle = bundle
	a.out = newStyles(cmd.OutOrStdout())
	a.errOut = newStyles(cmd.ErrOrStderr())

	a.logger.Debug("luckyctl настроен",
		slog.String("api_url", a.cfg.APIURL),
		slog.String("config", path),
		slog.String("lang", a.lang),
	)
	return nil
}

// dir возвращает каталог токена и настроек.
func (a *app) dir() (string, error) {
	if a.opts.Dir != "" {
		return a.opts.Dir, nil
	}
	return tokenstore.DefaultDir()
}

// open создаёт хранилище сессии над файлом токена и восстанавливает сессию.
// Ошибка Initialize (backend недоступен) возвращается вместе с Gateway:
// токен при этом сохраняется.
func (a *app) open(ctx context.Context) (*auth.Gateway, error) {
	dir, err := a.dir()
	if err != nil {
		return nil, err
	}
	client, err := backend.New(backend.Config{BaseURL: a.cfg.APIURL, Timeout: a.cfg.Timeout}, a.logger)
	if err != nil {
		return nil, err
	}
	inspector, err := auth.NewTokenInspector("", 0, tokenLeeway, a.logger)
	if err != nil {
		return nil, err
	}

	store := session.New(tokenstore.DefaultKey, tokenstore.NewFileStore(dir), client,
		session.WithInspector(inspector),
		session.WithLogger(a.logger),
	)
	gw := auth.NewGateway(client, store, a.logger)
	return gw, store.Initialize(ctx)
}

// openLenient — open, допускающий непроверенную сессию (backend недоступен).
func (a *app) openLenient(ctx context.Context) (*auth.Gateway, error) {
	gw, err := a.open(ctx)
	if gw == nil {
		return nil, err
	}
	if err != nil {
		a.logger.Debug("Сохранённая сессия не проверена", slog.String("error", err.Error()))
	}
	return gw, nil
}

// requireSession — open, требующий подтверждённую сессию.
func (a *app) requireSession(ctx context.Context) (*auth.Gateway, error) {
	gw, err := a.open(ctx)
	if gw == nil {
		return nil, err
	}
	if err != nil {
		return nil, a.fail(auth.NoticeFor(err), err)
	}
	if !gw.Store().Snapshot().Authenticated() {
		return nil, &commandError{text: a.bundle.Translate(a.lang, "cli.not_logged_in"), err: auth.ErrNotAuthenticated}
	}
	return gw, nil
}

// text переводит уведомление; дословные сообщения backend не переводятся.
func (a *app) text(n auth.Notice, args ...any) string {
	if n.Key == "" {
		return n.Text
	}
	if _, ok := a.bundle.Lookup(a.lang, n.Key); !ok {
		return n.Text
	}
	return a.bundle.Translatef(a.lang, n.Key, args...)
}

// fail превращает уведомление в ошибку команды.
func (a *app) fail(n auth.Notice, err error) error {
	text := a.text(n)
	if text == "" && err != nil {
		text = err.Error()
	}
	return &commandError{text: text, err: err}
}

// commandError — ошибка команды с текстом для пользователя.
type commandError struct {
	text string
	err  error
}

func (e *commandError) Error() string { return e.text }

func (e *commandError) Unwrap() error { return e.err }

// printError выводит ошибку в stderr.
func printError(w io.Writer, err error) {
	s := newStyles(w)
	fmt.Fprintln(w, s.err.Render("Error:"), err.Error())
}
