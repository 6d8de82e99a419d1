package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates разбирает встроенные HTML-шаблоны.
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(FuncMap()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Static возвращает встроенные статические файлы (скрипты, стили).
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// Каталог встроен при сборке
		panic(err)
	}
	return sub
}

// FuncMap - функции, доступные в шаблонах.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"selected": func(selected *int, v int) bool {
			return selected != nil && *selected == v
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v)
		},
		"upper": strings.ToUpper,
		"inc": func(i int) int {
			return i + 1
		},
	}
}
