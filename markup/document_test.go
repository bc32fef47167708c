package markup

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return doc
}

func mustSelect(t *testing.T, doc *Document, selector string) []*html.Node {
	t.Helper()
	nodes, err := Select(doc.Root(), selector)
	if err != nil {
		t.Fatalf("Select(%q) error: %v", selector, err)
	}
	return nodes
}

func TestParseProvidesHeadAndBody(t *testing.T) {
	doc := mustParse(t, "<div>hello</div>")

	if _, err := doc.Head(); err != nil {
		t.Errorf("Head() error: %v", err)
	}
	body, err := doc.Body()
	if err != nil {
		t.Fatalf("Body() error: %v", err)
	}
	if len(ElementChildren(body)) != 1 {
		t.Errorf("expected single body child, got %d", len(ElementChildren(body)))
	}
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment(`<p>one</p><p>two</p>`)
	if err != nil {
		t.Fatalf("ParseFragment() error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if Tag(nodes[0]) != "p" || Tag(nodes[1]) != "p" {
		t.Errorf("unexpected tags: %s, %s", Tag(nodes[0]), Tag(nodes[1]))
	}
}

func TestParseFragmentInTableContext(t *testing.T) {
	// td parsed in body context would be dropped by the HTML5 algorithm
	nodes, err := ParseFragmentIn(`<td class="cell">A</td>`, "tr")
	if err != nil {
		t.Fatalf("ParseFragmentIn() error: %v", err)
	}
	var td *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			td = n
			break
		}
	}
	if td == nil || Tag(td) != "td" {
		t.Fatalf("expected td element, got %+v", nodes)
	}
	if Attr(td, "class") != "cell" {
		t.Errorf("expected class attribute to survive, got %q", Attr(td, "class"))
	}
}

func TestClasses(t *testing.T) {
	doc := mustParse(t, `<div class=" a  b c "></div>`)
	n := mustSelect(t, doc, "div")[0]

	got := Classes(n)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Classes() = %v", got)
	}

	if !HasClass(n, "b") {
		t.Error("HasClass(b) = false")
	}
	if HasClass(n, "d") {
		t.Error("HasClass(d) = true")
	}

	AddClass(n, "d")
	if !HasClass(n, "d") {
		t.Error("AddClass did not add the class")
	}
	AddClass(n, "d")
	if strings.Count(Attr(n, "class"), "d") != 1 {
		t.Errorf("AddClass duplicated the class: %q", Attr(n, "class"))
	}

	SetClasses(n, nil)
	if HasAttr(n, "class") {
		t.Error("SetClasses(nil) should remove the attribute")
	}
}

func TestHasClassPrefix(t *testing.T) {
	tests := []struct {
		class  string
		prefix string
		want   bool
	}{
		{"col-lg-6", "col", true},
		{"col", "col", true},
		{"col-6", "col", true},
		{"color-red", "col", false},
		{"stack-col", "col", false},
		{"bg-dark", "bg", true},
		{"bgx", "bg", false},
		{"s-5", "s", true},
	}
	for _, tc := range tests {
		doc := mustParse(t, `<div class="`+tc.class+`"></div>`)
		n := mustSelect(t, doc, "div")[0]
		if got := HasClassPrefix(n, tc.prefix); got != tc.want {
			t.Errorf("HasClassPrefix(%q, %q) = %v, want %v", tc.class, tc.prefix, got, tc.want)
		}
	}
}

func TestAttrOperations(t *testing.T) {
	doc := mustParse(t, `<table align="left"></table>`)
	n := mustSelect(t, doc, "table")[0]

	if Attr(n, "align") != "left" {
		t.Errorf("Attr(align) = %q", Attr(n, "align"))
	}
	SetAttr(n, "align", "center")
	if Attr(n, "align") != "center" {
		t.Errorf("SetAttr did not overwrite: %q", Attr(n, "align"))
	}
	SetAttr(n, "border", "0")
	if Attr(n, "border") != "0" {
		t.Errorf("SetAttr did not add: %q", Attr(n, "border"))
	}
	RemoveAttr(n, "align")
	if HasAttr(n, "align") {
		t.Error("RemoveAttr left the attribute behind")
	}
}

func TestReplacePreservesPosition(t *testing.T) {
	doc := mustParse(t, `<div><span id="a"></span><span id="b"></span><span id="c"></span></div>`)
	b := mustSelect(t, doc, "#b")[0]

	repl := NewElement("em")
	Replace(b, repl)

	div := mustSelect(t, doc, "div")[0]
	kids := ElementChildren(div)
	if len(kids) != 3 {
		t.Fatalf("expected 3 children, got %d", len(kids))
	}
	if Tag(kids[1]) != "em" {
		t.Errorf("replacement not in place: %v", Tag(kids[1]))
	}
}

func TestReplaceWithMultiple(t *testing.T) {
	doc := mustParse(t, `<div><span id="x"></span></div>`)
	x := mustSelect(t, doc, "#x")[0]

	Replace(x, NewElement("em"), NewElement("strong"))

	div := mustSelect(t, doc, "div")[0]
	kids := ElementChildren(div)
	if len(kids) != 2 || Tag(kids[0]) != "em" || Tag(kids[1]) != "strong" {
		t.Errorf("unexpected children after Replace: %v", kids)
	}
}

func TestInsertBeforeAfter(t *testing.T) {
	doc := mustParse(t, `<div><span id="m"></span></div>`)
	m := mustSelect(t, doc, "#m")[0]

	InsertBefore(m, NewElement("em"))
	InsertAfter(m, NewElement("strong"))

	div := mustSelect(t, doc, "div")[0]
	kids := ElementChildren(div)
	if len(kids) != 3 || Tag(kids[0]) != "em" || Tag(kids[1]) != "span" || Tag(kids[2]) != "strong" {
		got := make([]string, len(kids))
		for i, k := range kids {
			got[i] = Tag(k)
		}
		t.Errorf("unexpected sibling order: %v", got)
	}
}

func TestPrependChild(t *testing.T) {
	doc := mustParse(t, `<div><span></span></div>`)
	div := mustSelect(t, doc, "div")[0]

	PrependChild(div, NewElement("em"))
	kids := ElementChildren(div)
	if len(kids) != 2 || Tag(kids[0]) != "em" {
		t.Errorf("PrependChild did not insert at front")
	}
}

func TestText(t *testing.T) {
	doc := mustParse(t, `<div>one <b>two</b> three</div>`)
	div := mustSelect(t, doc, "div")[0]
	if got := Text(div); got != "one two three" {
		t.Errorf("Text() = %q", got)
	}
}

func TestSelectDocumentOrder(t *testing.T) {
	doc := mustParse(t, `<div><p id="a"></p><section><p id="b"></p></section><p id="c"></p></div>`)
	nodes := mustSelect(t, doc, "p")
	if len(nodes) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(nodes))
	}
	order := []string{Attr(nodes[0], "id"), Attr(nodes[1], "id"), Attr(nodes[2], "id")}
	if order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("matches out of document order: %v", order)
	}
}

func TestMatchAny(t *testing.T) {
	doc := mustParse(t, `<div class="foo"></div>`)

	ok, err := MatchAny(doc.Root(), ".foo")
	if err != nil || !ok {
		t.Errorf("MatchAny(.foo) = %v, %v", ok, err)
	}
	ok, err = MatchAny(doc.Root(), ".bar")
	if err != nil || ok {
		t.Errorf("MatchAny(.bar) = %v, %v", ok, err)
	}
}

func TestCompileSelectorFailure(t *testing.T) {
	if _, err := CompileSelector("td:["); err == nil {
		t.Error("expected error for malformed selector")
	}
}

func TestSerializeWithDoctype(t *testing.T) {
	doc := mustParse(t, `<div>x</div>`)
	out, err := doc.Serialize("<!DOCTYPE test>")
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	if !strings.HasPrefix(out, "<!DOCTYPE test>\n<html>") {
		t.Errorf("unexpected serialization start: %q", out[:40])
	}
}

func TestEscapeNonASCII(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain ascii", "plain ascii"},
		{"a b", "a&#160;b"},
		{"͏", "&#847;"},
		{"mix ‌ end", "mix &#8204; end"},
	}
	for _, tc := range tests {
		if got := EscapeNonASCII(tc.in); got != tc.want {
			t.Errorf("EscapeNonASCII(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSerializeASCII(t *testing.T) {
	doc := mustParse(t, "<div>café</div>")
	out, err := doc.SerializeASCII("")
	if err != nil {
		t.Fatalf("SerializeASCII() error: %v", err)
	}
	if strings.Contains(out, "é") {
		t.Errorf("non-ASCII rune left in output: %q", out)
	}
	if !strings.Contains(out, "&#233;") {
		t.Errorf("expected numeric reference in output: %q", out)
	}
}
