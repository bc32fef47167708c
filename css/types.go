// Package css models a stylesheet as an ordered rule sequence. Order is
// load-bearing: later rules override earlier ones of equal specificity, so
// removal must never reorder survivors.
package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single "property: value" pair. Value keeps the raw CSS
// text including any !important marker.
type Declaration struct {
	Property string
	Value    string
}

// Rule is a style rule: a raw selector (possibly a comma separated group)
// plus its declarations in source order.
type Rule struct {
	Selector     string
	Declarations []Declaration
}

// MediaRule is an @media block: the raw media condition plus nested style
// rules in source order.
type MediaRule struct {
	Condition string
	Rules     []Rule
}

// Item is a single top-level stylesheet entry. Exactly one of Style or
// Media is non-nil.
type Item struct {
	Style *Rule
	Media *MediaRule
}

// Stylesheet is the ordered list of top-level items.
type Stylesheet struct {
	Items []Item
}

// Rules returns all top-level style rules in source order, media blocks
// excluded.
func (s *Stylesheet) Rules() []Rule {
	var out []Rule
	for _, item := range s.Items {
		if item.Style != nil {
			out = append(out, *item.Style)
		}
	}
	return out
}

// WriteTo writes the stylesheet in compact form, one top-level item per
// line, preserving rule and declaration order. It implements io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, item := range s.Items {
		var (
			n   int
			err error
		)
		switch {
		case item.Style != nil:
			n, err = fmt.Fprintf(w, "%s\n", formatRule(item.Style))
		case item.Media != nil:
			n, err = fmt.Fprintf(w, "@media %s{%s}\n", item.Media.Condition, formatRules(item.Media.Rules))
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var b strings.Builder
	s.WriteTo(&b) //nolint:errcheck
	return b.String()
}

func formatRule(r *Rule) string {
	var b strings.Builder
	b.WriteString(r.Selector)
	b.WriteByte('{')
	for i, d := range r.Declarations {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(d.Property)
		b.WriteByte(':')
		b.WriteString(d.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func formatRules(rules []Rule) string {
	var b strings.Builder
	for i := range rules {
		b.WriteString(formatRule(&rules[i]))
	}
	return b.String()
}
