package markup

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// CompileSelector translates a CSS selector (possibly a comma separated
// group) into a node predicate. A selector the translator cannot handle is
// an error - silently keeping an untranslatable rule would corrupt purge
// results downstream.
func CompileSelector(selector string) (cascadia.SelectorGroup, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("unable to translate selector %q: %w", selector, err)
	}
	return group, nil
}

// Select returns all nodes under n matching the selector, in document order.
func Select(n *html.Node, selector string) ([]*html.Node, error) {
	group, err := CompileSelector(selector)
	if err != nil {
		return nil, err
	}
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && group.Match(c) {
			out = append(out, c)
		}
		return true
	})
	return out, nil
}

// MatchAny reports whether at least one node under n matches the selector.
// This is the single capability the CSS purger requires.
func MatchAny(n *html.Node, selector string) (bool, error) {
	group, err := CompileSelector(selector)
	if err != nil {
		return false, err
	}
	found := false
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && group.Match(c) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}
