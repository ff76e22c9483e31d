package synth

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template names used by the synthesizer.
const (
	TmplRequirement           = "requirement"
	TmplAPIContract           = "api_contract"
	TmplDataContract          = "data_contract"
	TmplComponent             = "component"
	TmplChangeSpec            = "change_spec"
	TmplInteraction           = "interaction"
	TmplInteractionAcceptance = "interaction_acceptance"
	TmplTest                  = "test"
	TmplTestAcceptance        = "test_acceptance"
	TmplScenario              = "scenario"
	TmplTopicScenario         = "topic_scenario"
)

// View is the data every template is executed with.
type View struct {
	// ID is the id of the node being minted.
	ID string
	// Slug is the slug of ID.
	Slug string
	// ParentID and ParentStmt describe the node the new one hangs off.
	ParentID   string
	ParentStmt string
	// Op is the CRUD operation for interaction templates.
	Op string
	// Label is the topic label for topic scenarios.
	Label string
}

// Renderer produces statement text for minted nodes. Content is pluggable;
// the engine only cares that it is deterministic.
type Renderer interface {
	Render(name string, v View) (string, error)
}

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// TemplateRenderer renders text/template files. Built-in templates can be
// overridden by files of the same name in a directory.
type TemplateRenderer struct {
	t *template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": func(s string) string { return cases.Title(language.English).String(s) },
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

// NewTemplateRenderer loads the built-in templates, then any "*.tmpl" file
// in dir. An empty dir uses the built-ins alone.
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	t, err := template.New("plangraph").Funcs(templateFuncs()).ParseFS(defaultTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse built-in templates: %w", err)
	}
	if dir == "" {
		return &TemplateRenderer{t: t}, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates dir %s is not a directory", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	if len(matches) > 0 {
		if t, err = t.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("parse templates in %s: %w", dir, err)
		}
	}
	return &TemplateRenderer{t: t}, nil
}

// MustDefaultRenderer returns a renderer over the built-in templates. It
// panics only if the embedded templates are broken.
func MustDefaultRenderer() *TemplateRenderer {
	r, err := NewTemplateRenderer("")
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the named template and trims surrounding whitespace.
func (r *TemplateRenderer) Render(name string, v View) (string, error) {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name+".tmpl", v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
