// Package styles carries the pre-compiled design-system stylesheet
// artifacts. Compiling the SCSS source is an external concern; what ships
// here is its output in the two modes the pipeline consumes: an expanded
// stylesheet for inlining and a compressed one for the head purge.
package styles

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed bootstrap-email.css
var expandedCSS []byte

//go:embed bootstrap-head.css
var headCSS []byte

// PurgeSeparator splits the head stylesheet into the always-kept default
// prefix and the purgeable suffix.
const PurgeSeparator = "/*! allow_purge_after */"

// Source holds the two stylesheet artifacts for one compiler instance.
// Contents are immutable once loaded and safe to share across calls.
type Source struct {
	expanded []byte
	head     []byte
}

// Default returns the embedded stylesheet artifacts.
func Default() *Source {
	return &Source{expanded: expandedCSS, head: headCSS}
}

// Load returns a Source with either artifact optionally replaced by a file
// on disk. Empty paths keep the embedded artifact.
func Load(expandedPath, headPath string) (*Source, error) {
	s := Default()
	if expandedPath != "" {
		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read stylesheet from %q: %w", expandedPath, err)
		}
		s.expanded = data
	}
	if headPath != "" {
		data, err := os.ReadFile(headPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read head stylesheet from %q: %w", headPath, err)
		}
		s.head = data
	}
	return s, nil
}

// Expanded returns the stylesheet used for inlining.
func (s *Source) Expanded() []byte {
	return s.expanded
}

// Head returns the stylesheet used for the head purge.
func (s *Source) Head() []byte {
	return s.head
}

// SplitHead partitions the head stylesheet at the purge separator. When the
// separator is absent the whole text is treated as purgeable.
func (s *Source) SplitHead() (defaultCSS, purgeable string) {
	text := string(s.head)
	if def, rest, found := strings.Cut(text, PurgeSeparator); found {
		return def, rest
	}
	return "", text
}
