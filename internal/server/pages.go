package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"starling/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title      string
	Action     string
	Prediction []string
}

// pages knows every template file and the form target of each form page.
type pages struct {
	tmpl *template.Template
	meta map[string]pageData
}

func loadPages() (*pages, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pages{tmpl: t, meta: map[string]pageData{
		"index.html":                       {Title: "Recommendations"},
		"new_user_recommend_form.html":     {Title: "Popular users", Action: "/recommend"},
		"similar_user_recommend_form.html": {Title: "Similar users", Action: "/similar_recommend"},
		"article_recommend_form.html":      {Title: "Article recommendations", Action: "/post_recommend"},
		"recommend.html":                   {Title: "Popular users"},
		"similar_recommend.html":           {Title: "Similar users"},
		"article_recommend.html":           {Title: "Recommended articles"},
	}}, nil
}

// render executes into a buffer first so a template error never leaves a half-written page.
func (p *pages) render(w http.ResponseWriter, status int, name string, prediction []string) {
	data := p.meta[name]
	data.Prediction = prediction
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Error("template_error", map[string]any{"template": name, "error": err.Error()})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, http.StatusOK, name, nil)
	}
}
