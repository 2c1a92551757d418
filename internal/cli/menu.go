package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/ui/nav"
)

func (a *app) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the portal menu for the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := a.openLenient(cmd.Context())
			if err != nil {
				return err
			}
			a.writeMenu(cmd.OutOrStdout(), nav.ForState(gw.Store().Snapshot()))
			return nil
		},
	}
}

func (a *app) writeMenu(w io.Writer, m nav.Menu) {
	sections := []struct {
		key   string
		links []nav.Link
	}{
		{"menu.public", m.Public},
		{"menu.member", m.Member},
		{"menu.admin", m.Admin},
		{"menu.account", m.Account},
	}
	for _, s := range sections {
		if len(s.links) == 0 {
			continue
		}
		fmt.Fprintln(w, a.out.title.Render(a.bundle.Translate(a.lang, s.key)))
		for _, l := range s.links {
			fmt.Fprintf(w, "  %-22s %s\n", l.Path, a.bundle.Translate(a.lang, l.LabelKey))
		}
	}
}

// callMethods — методы, разрешённые в call.
var callMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

func (a *app) callCmd() *cobra.Command {
	var (
		data        string
		contentType string
	)
	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send a request to the backend API with the saved token",
		Long: `Send a request to the backend API with the saved session token.
PATH is relative to /api/ unless it starts with a slash. A 401 response
removes the saved token.

Examples:
  luckyctl call GET packages
  luckyctl call GET /api/user/dashboard
  luckyctl call POST /api/payments --data '{"packageId":"p1","amount":5000}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if !callMethods[method] {
				return fmt.Errorf("неподдерживаемый метод %s", args[0])
			}
			path, err := apiPath(args[1])
			if err != nil {
				return err
			}

			gw, err := a.openLenient(cmd.Context())
			if err != nil {
				return err
			}

			var body io.Reader
			ct := ""
			if data != "" {
				body = strings.NewReader(data)
				ct = contentType
			}
			resp, err := gw.Call(cmd.Context(), method, path, body, ct)
			if err != nil {
				return a.fail(auth.NoticeFor(err), err)
			}
			return writeBody(cmd.OutOrStdout(), resp.Body)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "request body content type")
	return cmd
}

// apiPath нормализует путь запроса: относительный путь дополняется /api/,
// переход вверх по каталогам запрещён.
func apiPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/api/" + p
	}
	route, _, _ := strings.Cut(p, "?")
	if strings.Contains(route, "..") || !strings.HasPrefix(route, "/api/") || route == "/api/" {
		return "", fmt.Errorf("недопустимый путь %q: ожидается /api/...", p)
	}
	return p, nil
}
