package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
)

//go:embed templates
var templateFS embed.FS

type Page struct {
	Title   string
	User    *models.User
	Flashes []Flash
	CSRF    string
	Data    any
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
	"mul":  func(p float64, q int) float64 { return p * float64(q) },
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"list": func(v ...int) []int { return v },
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	layout, err := fs.ReadFile(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	err = fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Base(p) == "layout.html" {
			return err
		}
		body, err := fs.ReadFile(templateFS, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		t, err := template.New("layout").Funcs(funcs).Parse(string(layout))
		if err != nil {
			return fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(string(body)); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
