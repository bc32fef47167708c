package compile

import (
	"fmt"

	"golang.org/x/net/html"

	"bec/markup"
)

// requiredMeta lists meta tags every compiled message carries, in the order
// they should appear at the front of head. Each is only added when the
// document does not already declare it.
var requiredMeta = []struct {
	key, value, content string
}{
	{"http-equiv", "x-ua-compatible", "ie=edge"},
	{"name", "x-apple-disable-message-reformatting", ""},
	{"name", "viewport", "width=device-width, initial-scale=1"},
	{"name", "format-detection", "telephone=no, date=no, address=no, email=no, url=no"},
}

// normalizeHead backfills client-behavior meta tags, stamps the generator
// comment and appends the final stylesheet to head.
func normalizeHead(doc *markup.Document, generator, style string) error {
	head, err := doc.Head()
	if err != nil {
		return err
	}
	addMissingMeta(head)
	if generator != "" {
		markup.PrependChild(head, markup.NewComment(fmt.Sprintf(" Compiled with %s ", generator)))
	}
	if style != "" {
		el := markup.NewElement("style")
		markup.SetAttr(el, "type", "text/css")
		markup.AppendChild(el, markup.NewText(style))
		markup.AppendChild(head, el)
	}
	return nil
}

// addMissingMeta front-inserts absent meta tags in reverse so the final
// order matches the requiredMeta list.
func addMissingMeta(head *html.Node) {
	for i := len(requiredMeta) - 1; i >= 0; i-- {
		m := requiredMeta[i]
		if hasMeta(head, m.key, m.value) {
			continue
		}
		el := markup.NewElement("meta")
		markup.SetAttr(el, m.key, m.value)
		if m.content != "" {
			markup.SetAttr(el, "content", m.content)
		}
		markup.PrependChild(head, el)
	}
}

func hasMeta(head *html.Node, key, value string) bool {
	for _, n := range markup.ElementChildren(head) {
		if markup.Tag(n) == "meta" && markup.Attr(n, key) == value {
			return true
		}
	}
	return false
}
