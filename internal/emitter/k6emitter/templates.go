package k6emitter

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var tmplFS embed.FS

var funcMap = template.FuncMap{
	"quote":     quote,
	"signature": signature,
}

var templates = template.Must(template.New("k6").Funcs(funcMap).ParseFS(tmplFS, "templates/*.tmpl"))

func (v modelView) IsEnum() bool  { return v.Kind == kindEnum }
func (v modelView) IsUnion() bool { return v.Kind == kindUnion }

// signature renders a method parameter list.
func signature(args []argView) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		opt := ""
		if a.Optional {
			opt = "?"
		}
		parts = append(parts, a.Name+opt+": "+a.Type)
	}
	return strings.Join(parts, ", ")
}
