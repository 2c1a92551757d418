// Пакет pages — HTML-страницы портала (html/template, встроены в бинарник).
// Каждая страница — layout.html + собственный шаблон с блоком "content".
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	"github.com/bigkaa/luckytrip/internal/ui/nav"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Имена страниц (файлы templates/<name>.html).
const (
	PageInfo      = "info"
	PageSitemap   = "sitemap"
	PageLogin     = "login"
	PageRegister  = "register"
	PageDashboard = "dashboard"
	PageProfile   = "profile"
	PageAdmin     = "admin"
	PageLoading   = "loading"
)

// Notice — уведомление на странице (уже переведённое).
type Notice struct {
	Kind string
	Text string
}

// Table — табличное представление данных backend.
type Table struct {
	Columns []string
	Rows    [][]string
	// Raw — исходный JSON, если данные не сводятся к таблице
	Raw string
}

// Data — данные для рендеринга страницы.
type Data struct {
	Lang     string
	Path     string
	TitleKey string
	TextKey  string
	Menu     nav.Menu
	User     *model.UserSummary
	Notice   *Notice
	// Form — значения полей формы для повторного показа
	Form map[string]string
	// FieldErrors — поле формы → переведённое сообщение
	FieldErrors map[string]string
	Table       *Table
}

// Renderer рендерит страницы с переводом подписей через i18n.Bundle.
type Renderer struct {
	pages  map[string]*template.Template
	bundle *i18n.Bundle
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer(bundle *i18n.Bundle) (*Renderer, error) {
	funcs := template.FuncMap{
		"t": bundle.Translate,
		"tf": func(lang, key string, args ...any) string {
			return bundle.Translatef(lang, key, args...)
		},
		"date":       formatDate,
		"money":      func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"field":      func(form map[string]string, name string) string { return form[name] },
		"inputField": inputField,
	}

	names, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template), bundle: bundle}
	for _, file := range names {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		if name == "layout" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("шаблон %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render рендерит страницу name со статусом status.
// Страница собирается в буфер, чтобы ошибка шаблона не оставила частичный ответ.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data *Data) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("страница %q не найдена", name)
	}
	if data.Lang == "" {
		data.Lang = i18n.DefaultLang
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("рендеринг %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// InputField — поле формы для шаблона "input".
type InputField struct {
	Lang     string
	Name     string
	Type     string
	LabelKey string
	Value    string
	Error    string
}

// inputField собирает поле формы. Значения паролей не возвращаются в форму.
func inputField(d *Data, name, typ, labelKey string) InputField {
	f := InputField{Lang: d.Lang, Name: name, Type: typ, LabelKey: labelKey}
	if typ != "password" {
		f.Value = d.Form[name]
	}
	f.Error = d.FieldErrors[name]
	return f
}

// formatDate форматирует дату ISO (YYYY-MM-DD...) или *time.Time.
func formatDate(v any) string {
	switch d := v.(type) {
	case *time.Time:
		if d == nil {
			return ""
		}
		return d.Format("2006-01-02")
	case time.Time:
		return d.Format("2006-01-02")
	case string:
		if len(d) >= 10 {
			return d[:10]
		}
		return d
	default:
		return ""
	}
}
