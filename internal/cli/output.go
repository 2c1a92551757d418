package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// styles — оформление вывода. Цвета включаются только для терминала.
type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ade80")),
		label: r.NewStyle().Foreground(lipgloss.Color("245")).Width(14),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#4ade80")),
		err:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#f87171")),
		muted: r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Форматы вывода whoami.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// userView — пользователь в выводе json/yaml.
type userView struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Email             string  `json:"email" yaml:"email"`
	Phone             string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	Role              string  `json:"role" yaml:"role"`
	VirtualCardNumber string  `json:"virtualCardNumber,omitempty" yaml:"virtual_card_number,omitempty"`
	City              string  `json:"city,omitempty" yaml:"city,omitempty"`
	Address           string  `json:"address,omitempty" yaml:"address,omitempty"`
	DateOfBirth       string  `json:"dateOfBirth,omitempty" yaml:"date_of_birth,omitempty"`
	MonthsPaid        int     `json:"monthsPaid" yaml:"months_paid"`
	TotalAmountPaid   float64 `json:"totalAmountPaid" yaml:"total_amount_paid"`
}

func newUserView(u *model.UserSummary) userView {
	return userView{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Phone:             u.Phone,
		Role:              u.Role,
		VirtualCardNumber: u.VirtualCardNumber,
		City:              u.City,
		Address:           u.Address,
		DateOfBirth:       u.BirthDate(),
		MonthsPaid:        u.MonthsPaid,
		TotalAmountPaid:   u.TotalAmountPaid,
	}
}

// writeUser выводит пользователя в формате format.
func (a *app) writeUser(w io.Writer, u *model.UserSummary, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newUserView(u))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(newUserView(u))
	case formatText, "":
		a.writeUserText(w, u)
		return nil
	default:
		return fmt.Errorf("неизвестный формат %q (text, json, yaml)", format)
	}
}

func (a *app) writeUserText(w io.Writer, u *model.UserSummary) {
	fmt.Fprintln(w, a.out.title.Render(u.Name))
	rows := []struct{ key, value string }{
		{"form.email", u.Email},
		{"form.phone", u.Phone},
		{"user.role", u.Role},
		{"user.card_number", u.VirtualCardNumber},
		{"form.city", u.City},
		{"form.address", u.Address},
		{"form.date_of_birth", u.BirthDate()},
		{"user.months_paid", strconv.Itoa(u.MonthsPaid)},
		{"user.total_paid", strconv.FormatFloat(u.TotalAmountPaid, 'f', 2, 64)},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", a.out.label.Render(a.bundle.Translate(a.lang, row.key)), row.value)
	}
}

// writeBody выводит тело ответа backend: JSON с отступами, прочее как есть.
func writeBody(w io.Writer, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
