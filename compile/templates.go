package compile

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates holds the fixed markup templates, parsed once per process.
// Parsed templates are read-only and safe to execute concurrently.
var templates = func() *template.Template {
	t, err := template.New("markup").
		Funcs(sprig.FuncMap()).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		// embedded templates are part of the build, failure here is a
		// programming error
		panic(fmt.Sprintf("unable to parse embedded templates: %v", err))
	}
	return t
}()

// expandTemplate fills the named fixed template with the given values. A
// referenced value missing from the mapping is a fatal substitution error.
func expandTemplate(name string, values map[string]any) (string, error) {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, name, values); err != nil {
		return "", fmt.Errorf("unable to expand template %s: %w", name, err)
	}
	return buf.String(), nil
}

// wrapTemplate expands a template with the usual contents/classes pair.
func wrapTemplate(name, contents, classes string) (string, error) {
	return expandTemplate(name, map[string]any{
		"contents": contents,
		"classes":  classes,
	})
}

// joinClasses joins non-empty class fragments with single spaces.
func joinClasses(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
