package compile

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"bec/css"
	"bec/markup"
)

// SelectorMatcher decides whether a CSS selector applies anywhere in a
// document. The default implementation translates selectors into matchers
// over the parsed tree; tests substitute fixed answers.
type SelectorMatcher interface {
	Matches(selector string) (bool, error)
}

type documentMatcher struct {
	doc *markup.Document
}

func (m documentMatcher) Matches(selector string) (bool, error) {
	return markup.MatchAny(m.doc.Root(), selector)
}

// Dynamic pseudo-classes and pseudo-elements say nothing about whether the
// base selector has a target in the static document, so they are stripped
// before matching.
var pseudoRe = regexp.MustCompile(`::?[a-zA-Z-]+(\([^)]*\))?`)

// purger drops style rules whose selectors match nothing in the document.
type purger struct {
	matcher SelectorMatcher
	log     *zap.Logger
}

func newPurger(doc *markup.Document, log *zap.Logger) *purger {
	return &purger{matcher: documentMatcher{doc: doc}, log: log}
}

// purge returns a copy of the stylesheet without unused style rules,
// preserving the order of survivors. A media block is dropped once all of
// its rules are gone.
func (p *purger) purge(sheet *css.Stylesheet) (*css.Stylesheet, error) {
	out := &css.Stylesheet{}
	dropped := 0
	for _, item := range sheet.Items {
		switch {
		case item.Style != nil:
			used, err := p.used(item.Style.Selector)
			if err != nil {
				return nil, err
			}
			if used {
				out.Items = append(out.Items, item)
			} else {
				dropped++
			}
		case item.Media != nil:
			var kept []css.Rule
			for _, r := range item.Media.Rules {
				used, err := p.used(r.Selector)
				if err != nil {
					return nil, err
				}
				if used {
					kept = append(kept, r)
				} else {
					dropped++
				}
			}
			if len(kept) > 0 {
				out.Items = append(out.Items, css.Item{Media: &css.MediaRule{
					Condition: item.Media.Condition,
					Rules:     kept,
				}})
			}
		}
	}
	p.log.Debug("Purged unused style rules", zap.Int("dropped", dropped), zap.Int("kept", len(out.Items)))
	return out, nil
}

// used reports whether any selector of the (possibly comma separated) group
// has a match in the document.
func (p *purger) used(group string) (bool, error) {
	stripped := strings.TrimSpace(pseudoRe.ReplaceAllString(group, ""))
	if stripped == "" || stripped == "*" {
		return true, nil
	}
	return p.matcher.Matches(stripped)
}
