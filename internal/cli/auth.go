package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// dateLayout — формат даты рождения во флагах.
const dateLayout = "2006-01-02"

func (a *app) loginCmd() *cobra.Command {
	var (
		identifier    string
		password      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		Long: `Log in with an email, phone or virtual card number.

Examples:
  luckyctl login -i asha@example.com -p secret
  echo secret | luckyctl login -i HLT-2024-000001 --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				p, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			gw, err := a.openLenient(cmd.Context())
			if err != nil {
				return err
			}

			res := gw.Login(cmd.Context(), identifier, password)
			if !res.OK {
				return a.fail(res.Notice, res.Err)
			}
			a.welcome(cmd, gw)
			return nil
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "email, phone or virtual card number")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var (
		req model.RegisterRequest
		dob string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member account and log in",
		Long: `Create a member account. Name, email, phone, password, confirmation and
city are required; address and date of birth (YYYY-MM-DD) are optional.

Example:
  luckyctl register --name Asha --email asha@example.com --phone 9800000001 \
    --password secret --confirm-password secret --city Kathmandu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := parseDate(dob)
			if err != nil {
				return a.fail(auth.NoticeFor(err), err)
			}
			req.DateOfBirth = date

			gw, err := a.openLenient(cmd.Context())
			if err != nil {
				return err
			}

			res := gw.Register(cmd.Context(), req)
			if !res.OK {
				return a.fail(res.Notice, res.Err)
			}
			a.welcome(cmd, gw)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "full name")
	f.StringVar(&req.Email, "email", "", "email")
	f.StringVar(&req.Phone, "phone", "", "phone")
	f.StringVar(&req.Password, "password", "", "password")
	f.StringVar(&req.ConfirmPassword, "confirm-password", "", "password confirmation")
	f.StringVar(&req.City, "city", "", "city")
	f.StringVar(&req.Address, "address", "", "address")
	f.StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := a.openLenient(cmd.Context())
			if err != nil {
				return err
			}
			if err := gw.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.out.ok.Render(a.text(auth.Notice{Key: auth.NoticeLoggedOut, Text: "You have been logged out."})))
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeUser(cmd.OutOrStdout(), gw.Store().Snapshot().User, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

// welcome печатает приветствие после входа или регистрации.
func (a *app) welcome(cmd *cobra.Command, gw *auth.Gateway) {
	u := gw.Store().Snapshot().User
	if u == nil {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, a.out.ok.Render(a.text(auth.Notice{Key: auth.NoticeWelcome, Text: "Welcome, " + u.Name + "!"}, u.Name)))
	fmt.Fprintln(w, a.out.muted.Render(a.bundle.Translatef(a.lang, "cli.logged_in_as", u.Email, u.Role)))
}

// readSecret читает первую строку из r.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("чтение пароля: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseDate разбирает дату YYYY-MM-DD. Пустая строка — nil.
func parseDate(s string) (*types.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, &auth.ValidationError{Field: "dateOfBirth", Key: "validation.invalid", Message: "Invalid value"}
	}
	return &types.Date{Time: t}, nil
}
