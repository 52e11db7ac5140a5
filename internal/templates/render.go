// Package templates renders the viewer page and the HTML fragments the
// Datastar handlers patch into it.
package templates

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io/fs"
	"sync"

	"github.com/rotisserie/eris"
)

// Patterns are the template files parsed from the web file system.
var Patterns = []string{"templates/fragments/*.html", "templates/pages/*.html"}

var funcMap = template.FuncMap{
	// dict builds a map from key/value pairs for nested templates.
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json embeds a value as a script literal.
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

// Renderer manages HTML templates.
type Renderer struct {
	mu        sync.RWMutex
	fsys      fs.FS
	patterns  []string
	templates *template.Template
}

// New parses the templates matching patterns in fsys, Patterns when none
// are given.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	if len(patterns) == 0 {
		patterns = Patterns
	}
	r := &Renderer{fsys: fsys, patterns: patterns}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.templates.ExecuteTemplate(buf, name, data); err != nil {
		return eris.Wrapf(err, "templates: render %s", name)
	}
	return nil
}

// Reload parses the templates again, e.g. from an os.DirFS during
// development.
func (r *Renderer) Reload() error {
	tmpl := template.New("").Funcs(funcMap)
	for _, p := range r.patterns {
		matches, err := fs.Glob(r.fsys, p)
		if err != nil {
			return eris.Wrapf(err, "templates: glob %s", p)
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFS(r.fsys, p); err != nil {
			return eris.Wrapf(err, "templates: parse %s", p)
		}
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}
