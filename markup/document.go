// Package markup wraps golang.org/x/net/html with the small set of tree
// operations the compiler pipeline needs: fragment parsing, class handling,
// position-preserving splicing and selector queries.
package markup

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNoHead and ErrNoBody indicate a structurally broken document. The
	// pipeline treats them as fatal - it never runs on anything but the
	// expanded base template.
	ErrNoHead = errors.New("document has no head element")
	ErrNoBody = errors.New("document has no body element")
)

// Document is a mutable HTML tree. One Document belongs to one compile call,
// it is never shared.
type Document struct {
	root *html.Node // DocumentNode
}

// Parse builds a Document from a complete HTML text.
func Parse(text string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFragment parses text the way it would be parsed inside a body element
// and returns the resulting sibling nodes, detached and ready for splicing.
func ParseFragment(text string) ([]*html.Node, error) {
	return ParseFragmentIn(text, "body")
}

// ParseFragmentIn parses text in the insertion context of the given element.
// The context matters: a bare td parsed in body context would be dropped by
// the HTML5 parsing algorithm, so table pieces must be parsed with a tr or
// tbody context.
func ParseFragmentIn(text, context string) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     context,
		DataAtom: atom.Lookup([]byte(context)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(text), ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup fragment: %w", err)
	}
	return nodes, nil
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// HTML returns the html element of the document.
func (d *Document) HTML() *html.Node {
	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.DataAtom == atom.Html {
			return n
		}
	}
	return nil
}

// Head returns the head element or ErrNoHead.
func (d *Document) Head() (*html.Node, error) {
	if n := d.findFirstElement(atom.Head); n != nil {
		return n, nil
	}
	return nil, ErrNoHead
}

// Body returns the body element or ErrNoBody.
func (d *Document) Body() (*html.Node, error) {
	if n := d.findFirstElement(atom.Body); n != nil {
		return n, nil
	}
	return nil, ErrNoBody
}

func (d *Document) findFirstElement(a atom.Atom) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits n and all its descendants in document order. Returning false
// from fn stops the walk.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Elements collects all element nodes under n (inclusive) in document order.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ElementChildren returns the direct element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Tag returns the lower-case tag name of an element node, "" otherwise.
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr returns the value of the named attribute, "" when absent.
func Attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present.
func HasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// SetAttr sets or overwrites the named attribute in place.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr drops the named attribute if present.
func RemoveAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes splits the class attribute into its tokens.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// SetClasses replaces the class attribute. An empty list removes it.
func SetClasses(n *html.Node, classes []string) {
	if len(classes) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(classes, " "))
}

// HasClass reports whether the class set contains the exact token.
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// HasClassPrefix reports whether any class token equals prefix or starts
// with prefix. Token based on purpose: "stack-col" must not count as a
// "col" match and "colors" must not count as a "col-" match.
func HasClassPrefix(n *html.Node, prefix string) bool {
	for _, c := range Classes(n) {
		if c == prefix || strings.HasPrefix(c, prefix+"-") {
			return true
		}
		if strings.HasSuffix(prefix, "-") && strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// AddClass appends a token to the class set unless already present.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	SetClasses(n, append(Classes(n), class))
}

// NewElement creates a detached element node.
func NewElement(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// NewComment creates a detached comment node.
func NewComment(text string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: text}
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Replace splices repl into the position of old, preserving sibling order,
// and detaches old. Replacement nodes are detached from any previous parent
// first.
func Replace(old *html.Node, repl ...*html.Node) {
	parent := old.Parent
	if parent == nil {
		panic("markup: replacing a detached node")
	}
	for _, r := range repl {
		Detach(r)
		parent.InsertBefore(r, old)
	}
	parent.RemoveChild(old)
}

// InsertBefore places n immediately before anchor under the same parent.
func InsertBefore(anchor, n *html.Node) {
	Detach(n)
	anchor.Parent.InsertBefore(n, anchor)
}

// InsertAfter places n immediately after anchor under the same parent.
func InsertAfter(anchor, n *html.Node) {
	Detach(n)
	if anchor.NextSibling != nil {
		anchor.Parent.InsertBefore(n, anchor.NextSibling)
	} else {
		anchor.Parent.AppendChild(n)
	}
}

// PrependChild makes n the first child of parent.
func PrependChild(parent, n *html.Node) {
	Detach(n)
	if parent.FirstChild != nil {
		parent.InsertBefore(n, parent.FirstChild)
	} else {
		parent.AppendChild(n)
	}
}

// AppendChild makes n the last child of parent.
func AppendChild(parent, n *html.Node) {
	Detach(n)
	parent.AppendChild(n)
}

// Text returns the concatenated text content of n and its descendants.
func Text(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
