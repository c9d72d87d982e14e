package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.tmpl static/*
var embedded embed.FS

var pages = []string{"home", "blog", "admin"}

// loadTemplates parses the document shell and partials once per page. An
// empty dir uses the templates compiled into the binary.
func loadTemplates(dir string) (map[string]*template.Template, error) {
	var fsys fs.FS
	if strings.TrimSpace(dir) != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	funcs := template.FuncMap{
		"join":  strings.Join,
		"lower": strings.ToLower,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "document.tmpl", "partials.tmpl", page+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}
