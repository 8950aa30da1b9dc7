package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"login", "register", "dashboard", "todos", "detail"}

// pageData is handed to every template.
type pageData struct {
	Title  string
	User   *models.User
	Toasts []controller.Toast
	Data   any
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// render executes page into a buffer first so a template error never
// produces a half-written response. Pending toasts of cs are drained.
func (h *Handler) render(w http.ResponseWriter, cs *clientState, page, title string, data any) {
	pd := pageData{Title: title, Data: data}
	if cs != nil {
		pd.User = cs.store.User()
		pd.Toasts = cs.toasts.Drain()
	}

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", pd); err != nil {
		h.log.Error("render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
