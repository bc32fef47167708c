package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// OuterHTML serializes n including its own tag.
func OuterHTML(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("unable to serialize node: %w", err)
	}
	return b.String(), nil
}

// InnerHTML serializes the children of n, in order, without the enclosing
// tag.
func InnerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("unable to serialize node content: %w", err)
		}
	}
	return b.String(), nil
}

// Serialize renders the document's html element prefixed with the given
// doctype. Any doctype node present in the tree is ignored - the caller owns
// the doctype line.
func (d *Document) Serialize(doctype string) (string, error) {
	root := d.HTML()
	if root == nil {
		return "", fmt.Errorf("document has no html element")
	}
	body, err := OuterHTML(root)
	if err != nil {
		return "", err
	}
	if doctype == "" {
		return body, nil
	}
	return doctype + "\n" + body, nil
}

// SerializeASCII is Serialize with every non-ASCII rune emitted as a numeric
// character reference, so the result survives 7-bit transports unchanged.
func (d *Document) SerializeASCII(doctype string) (string, error) {
	out, err := d.Serialize(doctype)
	if err != nil {
		return "", err
	}
	return EscapeNonASCII(out), nil
}

// EscapeNonASCII replaces every rune outside the ASCII range with a decimal
// character reference. ASCII input is returned unchanged.
func EscapeNonASCII(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		} else {
			fmt.Fprintf(&b, "&#%d;", r)
		}
	}
	return b.String()
}
