package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds every embedded mail template, parsed once. Each file defines subject, plainBody and htmlBody.
type Templates struct {
	set map[string]*template.Template
}

// Rendered is a mail ready to be addressed and sent.
type Rendered struct {
	Subject string
	Plain   string
	HTML    string
}

func LoadTemplates() (*Templates, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	t := &Templates{set: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		parsed, err := template.New("email").ParseFS(templateFS, name)
		if err != nil {
			return nil, fmt.Errorf("could not parse template %s: %w", name, err)
		}
		t.set[path.Base(name)] = parsed
	}

	return t, nil
}

func (t *Templates) Render(name string, data any) (*Rendered, error) {
	tmpl, ok := t.set[name]
	if !ok {
		return nil, fmt.Errorf("unknown mail template %q", name)
	}

	var parts [3]bytes.Buffer
	for i, block := range []string{"subject", "plainBody", "htmlBody"} {
		if err := tmpl.ExecuteTemplate(&parts[i], block, data); err != nil {
			return nil, fmt.Errorf("could not render %s of %s: %w", block, name, err)
		}
	}

	return &Rendered{Subject: parts[0].String(), Plain: parts[1].String(), HTML: parts[2].String()}, nil
}
