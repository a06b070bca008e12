package http

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer renders html/template pages for echo.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses every file matching pattern in fsys.
func NewTemplateRenderer(fsys fs.FS, pattern string) (*TemplateRenderer, error) {
	t, err := template.ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
