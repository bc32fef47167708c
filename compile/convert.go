package compile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"bec/markup"
)

// Preview text is padded so mail clients do not pull following markup into
// the inbox snippet. The filler is one invisible unit per missing character.
const (
	previewTargetLength = 278
	previewFiller       = "͏ ‌   "
)

// wrapper templates are expanded with empty contents and parsed into a
// scaffold first, then live nodes are moved into the innermost slot. Going
// through strings instead would let the HTML5 parser foster-parent content
// that sits inside table rows.
var wrapperSlot = map[string]string{
	"body.html":           "td",
	"table.html":          "td",
	"table-left.html":     "td",
	"container.html":      "td",
	"table-to-tr.html":    "tr",
	"table-to-tbody.html": "tbody",
	"tr.html":             "td",
	"td.html":             "",
	"div.html":            "",
}

var wrapperContext = map[string]string{
	"td.html": "tr",
	"tr.html": "tbody",
}

type converter struct {
	doc *markup.Document
	log *zap.Logger
}

// convertDocument rewrites the parsed document in place, turning layout
// classes into nested table markup. Pass order matters: wrappers produced by
// an earlier pass are input to the later ones.
func convertDocument(doc *markup.Document, log *zap.Logger) error {
	cv := &converter{doc: doc, log: log}
	passes := []struct {
		name string
		run  func() error
	}{
		{"body", cv.convertBody},
		{"block", cv.convertBlock},
		{"button", cv.convertButton},
		{"badge", cv.convertBadge},
		{"alert", cv.convertAlert},
		{"card", cv.convertCard},
		{"hr", cv.convertHr},
		{"container", cv.convertContainer},
		{"grid", cv.convertGrid},
		{"stack", cv.convertStack},
		{"color", cv.convertColor},
		{"spacing", cv.convertSpacing},
		{"margin", cv.convertMargin},
		{"spacer", cv.convertSpacer},
		{"align", cv.convertAlign},
		{"padding", cv.convertPadding},
		{"preview", cv.convertPreview},
		{"table", cv.convertTable},
	}
	for _, p := range passes {
		if err := p.run(); err != nil {
			return fmt.Errorf("unable to convert %s markup: %w", p.name, err)
		}
	}
	return nil
}

// scaffold expands a wrapper template with empty contents, parses it in the
// proper insertion context and returns the wrapper root along with the node
// that should receive the wrapped content.
func scaffold(name, classes string) (root, slot *html.Node, err error) {
	text, err := wrapTemplate(name, "", classes)
	if err != nil {
		return nil, nil, err
	}
	context, ok := wrapperContext[name]
	if !ok {
		context = "body"
	}
	nodes, err := markup.ParseFragmentIn(text, context)
	if err != nil {
		return nil, nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			root = n
			break
		}
	}
	if root == nil {
		return nil, nil, fmt.Errorf("template %s produced no element", name)
	}
	if classes == "" {
		markup.RemoveAttr(root, "class")
	}
	slot = root
	if tag := wrapperSlot[name]; tag != "" {
		markup.Walk(root, func(n *html.Node) bool {
			if n.Type == html.ElementNode && markup.Tag(n) == tag {
				slot = n
				return false
			}
			return true
		})
	}
	return root, slot, nil
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		markup.Detach(c)
		markup.AppendChild(to, c)
		c = next
	}
}

// wrapChildren replaces n with a wrapper template holding n's former
// children. The element itself disappears from the tree.
func (cv *converter) wrapChildren(n *html.Node, name, classes string) error {
	root, slot, err := scaffold(name, classes)
	if err != nil {
		return err
	}
	moveChildren(n, slot)
	markup.Replace(n, root)
	return nil
}

// wrapNode puts the wrapper template around n, keeping n in the tree.
func (cv *converter) wrapNode(n *html.Node, name, classes string) (*html.Node, error) {
	root, slot, err := scaffold(name, classes)
	if err != nil {
		return nil, err
	}
	markup.InsertBefore(n, root)
	markup.Detach(n)
	markup.AppendChild(slot, n)
	return root, nil
}

func removeClass(n *html.Node, class string) {
	classes := markup.Classes(n)
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	markup.SetClasses(n, kept)
}

func classAttr(n *html.Node) string {
	return strings.Join(markup.Classes(n), " ")
}

// elementsWith walks the whole document and snapshots elements the predicate
// accepts, in document order, before any of them is mutated.
func (cv *converter) elementsWith(accept func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range markup.Elements(cv.doc.Root()) {
		if accept(n) {
			out = append(out, n)
		}
	}
	return out
}

func (cv *converter) selectAll(selector string) ([]*html.Node, error) {
	return markup.Select(cv.doc.Root(), selector)
}

// convertBody moves everything under body into a full-width table so that
// background and width rules survive in table-only clients.
func (cv *converter) convertBody() error {
	body, err := cv.doc.Body()
	if err != nil {
		return err
	}
	root, slot, err := scaffold("body.html", joinClasses(markup.Attr(body, "class"), "body"))
	if err != nil {
		return err
	}
	moveChildren(body, slot)
	markup.AppendChild(body, root)
	return nil
}

func (cv *converter) convertBlock() error {
	nodes, err := cv.selectAll("block, .to-table")
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := cv.wrapChildren(n, "table.html", classAttr(n)); err != nil {
			return err
		}
	}
	return nil
}

// convertButton keeps the element itself (it is usually an anchor) and wraps
// it into a table that carries the former classes.
func (cv *converter) convertButton() error {
	return cv.convertWrapped(".btn", "table.html")
}

func (cv *converter) convertBadge() error {
	return cv.convertWrapped(".badge", "table-left.html")
}

func (cv *converter) convertAlert() error {
	return cv.convertWrapped(".alert", "table.html")
}

func (cv *converter) convertWrapped(selector, template string) error {
	nodes, err := cv.selectAll(selector)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		classes := classAttr(n)
		markup.RemoveAttr(n, "class")
		if _, err := cv.wrapNode(n, template, classes); err != nil {
			return err
		}
	}
	cv.log.Debug("Converted components", zap.String("selector", selector), zap.Int("count", len(nodes)))
	return nil
}

func (cv *converter) convertCard() error {
	for _, selector := range []string{".card", ".card-body"} {
		nodes, err := cv.selectAll(selector)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := cv.wrapChildren(n, "table.html", classAttr(n)); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertHr turns horizontal rules into bordered table rows, with a default
// vertical margin unless the author set one.
func (cv *converter) convertHr() error {
	nodes, err := cv.selectAll("hr")
	if err != nil {
		return err
	}
	for _, n := range nodes {
		margin := "my-5"
		if hasVerticalMarginClass(n) {
			margin = ""
		}
		root, _, err := scaffold("table.html", joinClasses(margin, "hr", classAttr(n)))
		if err != nil {
			return err
		}
		markup.Replace(n, root)
	}
	return nil
}

func (cv *converter) convertContainer() error {
	nodes, err := cv.selectAll(".container")
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := cv.wrapChildren(n, "container.html", classAttr(n)); err != nil {
			return err
		}
	}
	fluid, err := cv.selectAll(".container-fluid")
	if err != nil {
		return err
	}
	for _, n := range fluid {
		if err := cv.wrapChildren(n, "table.html", classAttr(n)); err != nil {
			return err
		}
	}
	return nil
}

// convertGrid rewrites rows into single-row tables and column elements into
// their cells. A row holding responsive columns is marked so the stylesheet
// can stack it on small screens.
func (cv *converter) convertGrid() error {
	rows, err := cv.selectAll(".row")
	if err != nil {
		return err
	}
	for _, row := range rows {
		responsive := false
		markup.Walk(row, func(n *html.Node) bool {
			if n != row && n.Type == html.ElementNode && markup.HasClassPrefix(n, "col-lg") {
				responsive = true
				return false
			}
			return true
		})
		if responsive {
			markup.AddClass(row, "row-responsive")
		}
		tbl, slot, err := scaffold("table-to-tr.html", "")
		if err != nil {
			return err
		}
		moveChildren(row, slot)
		div, _, err := scaffold("div.html", classAttr(row))
		if err != nil {
			return err
		}
		markup.AppendChild(div, tbl)
		markup.Replace(row, div)
	}

	cols := cv.elementsWith(func(n *html.Node) bool {
		return markup.HasClassPrefix(n, "col")
	})
	for _, n := range cols {
		if err := cv.wrapChildren(n, "td.html", classAttr(n)); err != nil {
			return err
		}
	}
	return nil
}

// convertStack lays the children of a stack out as sibling cells (stack-row)
// or sibling rows (stack-col) of one table.
func (cv *converter) convertStack() error {
	rows, err := cv.selectAll(".stack-row")
	if err != nil {
		return err
	}
	for _, n := range rows {
		tbl, slot, err := scaffold("table-to-tr.html", classAttr(n))
		if err != nil {
			return err
		}
		for _, child := range markup.ElementChildren(n) {
			td, tdSlot, err := scaffold("td.html", "stack-cell")
			if err != nil {
				return err
			}
			markup.Detach(child)
			markup.AppendChild(tdSlot, child)
			markup.AppendChild(slot, td)
		}
		markup.Replace(n, tbl)
	}

	cols, err := cv.selectAll(".stack-col")
	if err != nil {
		return err
	}
	for _, n := range cols {
		tbl, slot, err := scaffold("table-to-tbody.html", classAttr(n))
		if err != nil {
			return err
		}
		for _, child := range markup.ElementChildren(n) {
			tr, trSlot, err := scaffold("tr.html", "stack-cell")
			if err != nil {
				return err
			}
			markup.Detach(child)
			markup.AppendChild(trSlot, child)
			markup.AppendChild(slot, tr)
		}
		markup.Replace(n, tbl)
	}
	return nil
}

// convertColor replaces background-colored divs with full-width tables,
// since div backgrounds are unreliable in mail clients.
func (cv *converter) convertColor() error {
	nodes := cv.elementsWith(func(n *html.Node) bool {
		return markup.Tag(n) == "div" && markup.HasClassPrefix(n, "bg")
	})
	for _, n := range nodes {
		if err := cv.wrapChildren(n, "table.html", joinClasses(classAttr(n), "w-full")); err != nil {
			return err
		}
	}
	return nil
}

// convertSpacing expands space-y-N into bottom margins on every gap between
// the element's children. Children already converted into a table get the
// margin one cell level down.
func (cv *converter) convertSpacing() error {
	nodes := cv.elementsWith(func(n *html.Node) bool {
		_, ok := spaceYToken(n)
		return ok
	})
	for _, n := range nodes {
		tok, _ := spaceYToken(n)
		margin := "mb-" + tok.sizeToken()

		var targets []*html.Node
		targets = append(targets, allButLast(markup.ElementChildren(n))...)
		for _, tbody := range markup.ElementChildren(n) {
			if markup.Tag(tbody) != "tbody" {
				continue
			}
			for _, tr := range markup.ElementChildren(tbody) {
				if markup.Tag(tr) != "tr" {
					continue
				}
				for _, td := range markup.ElementChildren(tr) {
					if markup.Tag(td) != "td" {
						continue
					}
					targets = append(targets, allButLast(markup.ElementChildren(td))...)
				}
			}
		}
		for _, t := range targets {
			if !hasMarginBottomClass(t) {
				markup.AddClass(t, margin)
			}
		}
	}
	return nil
}

func allButLast(nodes []*html.Node) []*html.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[:len(nodes)-1]
}

// convertMargin strips vertical margin classes and plants spacer divs around
// the element instead. The snapshot is walked in reverse so spacers created
// for an element do not shift what an enclosing element sees.
func (cv *converter) convertMargin() error {
	nodes := cv.elementsWith(func(n *html.Node) bool {
		top, bottom := marginTokens(n)
		return top != nil || bottom != nil
	})
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		top, bottom := marginTokens(n)
		stripMarginClasses(n)
		if top != nil {
			spacer, _, err := scaffold("div.html", "s-"+top.sizeToken())
			if err != nil {
				return err
			}
			markup.InsertBefore(n, spacer)
		}
		if bottom != nil {
			spacer, _, err := scaffold("div.html", "s-"+bottom.sizeToken())
			if err != nil {
				return err
			}
			markup.InsertAfter(n, spacer)
		}
	}
	cv.log.Debug("Expanded margins", zap.Int("count", len(nodes)))
	return nil
}

// convertSpacer materializes s-N elements as fixed-height tables holding a
// non-breaking space, the only construct that keeps its height everywhere.
func (cv *converter) convertSpacer() error {
	nodes := cv.elementsWith(hasSpacerClass)
	for _, n := range nodes {
		root, slot, err := scaffold("table.html", joinClasses(classAttr(n), "w-full"))
		if err != nil {
			return err
		}
		markup.AppendChild(slot, markup.NewText(" "))
		markup.Replace(n, root)
	}
	return nil
}

// convertAlign maps ax-left/ax-center/ax-right onto the align attribute,
// wrapping elements that cannot carry it themselves.
func (cv *converter) convertAlign() error {
	for _, dir := range []string{"left", "center", "right"} {
		marker := "ax-" + dir
		nodes, err := cv.selectAll("." + marker)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			removeClass(n, marker)
			switch markup.Tag(n) {
			case "table", "td":
				markup.SetAttr(n, "align", dir)
			default:
				root, err := cv.wrapNode(n, "table.html", marker)
				if err != nil {
					return err
				}
				markup.SetAttr(root, "align", dir)
			}
		}
	}
	return nil
}

// convertPadding moves padding classes off elements that cannot render
// padding reliably onto a wrapping table, where the stylesheet applies them
// to the inner cell.
func (cv *converter) convertPadding() error {
	nodes := cv.elementsWith(func(n *html.Node) bool {
		switch markup.Tag(n) {
		case "table", "td", "a":
			return false
		}
		return len(paddingClasses(n)) > 0
	})
	for _, n := range nodes {
		tokens := paddingClasses(n)
		stripPaddingClasses(n)
		if _, err := cv.wrapNode(n, "table.html", strings.Join(tokens, " ")); err != nil {
			return err
		}
	}
	return nil
}

// convertPreview replaces the preview element with an invisible div at the
// very top of the body, padded out so mail clients do not continue the inbox
// snippet with whatever markup follows.
func (cv *converter) convertPreview() error {
	nodes, err := cv.selectAll("preview")
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	n := nodes[0]
	text := markup.Text(n)
	if missing := previewTargetLength - utf8.RuneCountInString(text); missing > 0 {
		text += strings.Repeat(previewFiller, missing)
	}
	div, _, err := scaffold("div.html", "preview")
	if err != nil {
		return err
	}
	markup.AppendChild(div, markup.NewText(text))
	body, err := cv.doc.Body()
	if err != nil {
		return err
	}
	markup.PrependChild(body, div)
	markup.Detach(n)
	return nil
}

// convertTable forces zero border, cellpadding and cellspacing on every
// table so client defaults never leak into the layout.
func (cv *converter) convertTable() error {
	tables := cv.elementsWith(func(n *html.Node) bool {
		return markup.Tag(n) == "table"
	})
	for _, n := range tables {
		markup.SetAttr(n, "border", "0")
		markup.SetAttr(n, "cellpadding", "0")
		markup.SetAttr(n, "cellspacing", "0")
	}
	return nil
}
