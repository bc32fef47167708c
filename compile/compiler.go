// Package compile turns an HTML fragment written with utility classes into
// self-contained, table-based mail markup: structural conversion, style
// inlining, head stylesheet purge and ASCII serialization.
package compile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bec/config"
	"bec/css"
	"bec/markup"
	"bec/styles"
)

// Compiler drives the full pipeline. It is immutable after construction and
// safe for concurrent use; every Compile call parses its own document.
type Compiler struct {
	styles    *styles.Source
	inliner   Inliner
	generator string
	rpt       *config.Report
	log       *zap.Logger
}

// NewCompiler creates a compiler over the given stylesheet source. The
// generator string, when not empty, is stamped into the head as a comment.
// rpt may be nil - intermediate snapshots are then not collected.
func NewCompiler(src *styles.Source, inliner Inliner, generator string, rpt *config.Report, log *zap.Logger) *Compiler {
	return &Compiler{
		styles:    src,
		inliner:   inliner,
		generator: generator,
		rpt:       rpt,
		log:       log,
	}
}

// Compile runs the pipeline over a single fragment and returns the final
// document text.
func (c *Compiler) Compile(in string) (string, error) {
	text, err := expandTemplate("base.html", map[string]any{"contents": in})
	if err != nil {
		return "", err
	}
	doc, err := markup.Parse(text)
	if err != nil {
		return "", err
	}

	if err := convertDocument(doc, c.log); err != nil {
		return "", err
	}
	c.snapshot("converted.html", doc)

	doc, err = c.inliner.Inline(doc, string(c.styles.Expanded()))
	if err != nil {
		return "", err
	}
	c.snapshot("inlined.html", doc)

	style, err := c.headStyle(doc)
	if err != nil {
		return "", err
	}
	if err := normalizeHead(doc, c.generator, style); err != nil {
		return "", err
	}

	out, err := finalizeDocument(doc)
	if err != nil {
		return "", err
	}
	c.rpt.StoreData("final.html", []byte(out))
	return out, nil
}

// headStyle builds the stylesheet that stays in head: the default prefix
// kept byte for byte, followed by whatever purgeable rules the document
// actually uses.
func (c *Compiler) headStyle(doc *markup.Document) (string, error) {
	def, purgeable := c.styles.SplitHead()
	if strings.TrimSpace(purgeable) == "" {
		return strings.TrimSpace(def), nil
	}
	sheet, err := css.NewParser(c.log).Parse([]byte(purgeable), "head stylesheet")
	if err != nil {
		return "", fmt.Errorf("unable to parse head stylesheet: %w", err)
	}
	pruned, err := newPurger(doc, c.log).purge(sheet)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimSpace(def) + "\n" + pruned.String()), nil
}

func (c *Compiler) snapshot(name string, doc *markup.Document) {
	if c.rpt == nil {
		return
	}
	text, err := doc.Serialize("")
	if err != nil {
		c.log.Debug("Unable to snapshot document", zap.String("name", name), zap.Error(err))
		return
	}
	c.rpt.StoreData(name, []byte(text))
}
