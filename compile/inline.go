package compile

import (
	"fmt"

	"github.com/vanng822/go-premailer/premailer"
	"go.uber.org/zap"

	"bec/markup"
)

// Inliner moves a stylesheet into style attributes of the document. The
// production implementation delegates to premailer; tests substitute a
// pass-through.
type Inliner interface {
	Inline(doc *markup.Document, style string) (*markup.Document, error)
}

type premailerInliner struct {
	log *zap.Logger
}

// NewInliner returns the premailer-backed Inliner.
func NewInliner(log *zap.Logger) Inliner {
	return &premailerInliner{log: log.Named("inline")}
}

// Inline injects the stylesheet into head, runs premailer over the
// serialized document and reparses the result. Leftover style elements are
// removed afterwards: whatever premailer could not inline (media queries,
// pseudo-classes) belongs in the separately injected head stylesheet, not
// here.
func (p *premailerInliner) Inline(doc *markup.Document, style string) (*markup.Document, error) {
	head, err := doc.Head()
	if err != nil {
		return nil, err
	}
	el := markup.NewElement("style")
	markup.SetAttr(el, "type", "text/css")
	markup.AppendChild(el, markup.NewText(style))
	markup.AppendChild(head, el)

	text, err := doc.Serialize("")
	if err != nil {
		return nil, err
	}

	opts := premailer.NewOptions()
	opts.RemoveClasses = false
	opts.CssToAttributes = false
	opts.KeepBangImportant = true
	prem, err := premailer.NewPremailerFromString(text, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare style inliner: %w", err)
	}
	inlined, err := prem.Transform()
	if err != nil {
		return nil, fmt.Errorf("unable to inline styles: %w", err)
	}

	out, err := markup.Parse(inlined)
	if err != nil {
		return nil, fmt.Errorf("unable to parse inlined document: %w", err)
	}
	outHead, err := out.Head()
	if err != nil {
		return nil, err
	}
	for _, n := range markup.ElementChildren(outHead) {
		if markup.Tag(n) == "style" {
			markup.Detach(n)
		}
	}
	return out, nil
}

// nopInliner leaves the document untouched. Used when inlining is disabled
// from configuration.
type nopInliner struct{}

func (nopInliner) Inline(doc *markup.Document, _ string) (*markup.Document, error) {
	return doc, nil
}
