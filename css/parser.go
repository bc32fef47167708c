package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	cssparse "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS text into an order-preserving Stylesheet.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. The optional source parameter
// identifies what is being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	sheet := &Stylesheet{}

	input := parse.NewInput(bytes.NewReader(data))
	parser := cssparse.NewParser(input, false)

	// comma separated selectors of one ruleset arrive one by one as
	// qualified rules before the final BeginRulesetGrammar
	var pending []string

	for {
		gt, _, gdata := parser.Next()

		switch gt {
		case cssparse.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
			}
			return sheet, nil

		case cssparse.CommentGrammar:
			// comments carry no rules, skip

		case cssparse.BeginAtRuleGrammar:
			atRule := string(gdata)
			if atRule == "@media" {
				condition := joinTokens(parser.Values())
				rules, err := p.parseMediaRules(parser)
				if err != nil {
					return nil, err
				}
				p.log.Debug("Parsed @media block", zap.String("condition", condition), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, Item{
					Media: &MediaRule{Condition: condition, Rules: rules},
				})
				continue
			}
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			p.skipAtRuleBlock(parser)

		case cssparse.AtRuleGrammar:
			// simple @-rule without a block (@import, @charset) - the
			// compiled design stylesheet never needs those preserved
			p.log.Debug("Skipping @-rule", zap.String("rule", string(gdata)))

		case cssparse.QualifiedRuleGrammar:
			pending = append(pending, selectorText(gdata, parser.Values()))

		case cssparse.BeginRulesetGrammar:
			selector := groupSelector(append(pending, selectorText(gdata, parser.Values())))
			pending = nil
			decls, err := p.parseDeclarations(parser)
			if err != nil {
				return nil, err
			}
			sheet.Items = append(sheet.Items, Item{
				Style: &Rule{Selector: selector, Declarations: decls},
			})
		}
	}
}

// groupSelector joins the selectors of one ruleset back into a comma
// separated group.
func groupSelector(selectors []string) string {
	return strings.Join(selectors, ",")
}

// parseDeclarations collects declarations in source order until the ruleset
// ends.
func (p *Parser) parseDeclarations(parser *cssparse.Parser) ([]Declaration, error) {
	var decls []Declaration
	for {
		gt, _, gdata := parser.Next()
		switch gt {
		case cssparse.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to parse declarations: %w", err)
			}
			return decls, nil
		case cssparse.EndRulesetGrammar:
			return decls, nil
		case cssparse.DeclarationGrammar:
			decls = append(decls, Declaration{
				Property: string(gdata),
				Value:    joinTokens(parser.Values()),
			})
		case cssparse.CustomPropertyGrammar:
			// custom properties cannot survive email clients anyway
		}
	}
}

// parseMediaRules collects the nested style rules of an @media block.
func (p *Parser) parseMediaRules(parser *cssparse.Parser) ([]Rule, error) {
	var (
		rules   []Rule
		pending []string
	)
	for {
		gt, _, gdata := parser.Next()
		switch gt {
		case cssparse.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to parse media block: %w", err)
			}
			return rules, nil
		case cssparse.EndAtRuleGrammar:
			return rules, nil
		case cssparse.QualifiedRuleGrammar:
			pending = append(pending, selectorText(gdata, parser.Values()))
		case cssparse.BeginRulesetGrammar:
			selector := groupSelector(append(pending, selectorText(gdata, parser.Values())))
			pending = nil
			decls, err := p.parseDeclarations(parser)
			if err != nil {
				return nil, err
			}
			rules = append(rules, Rule{Selector: selector, Declarations: decls})
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *cssparse.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case cssparse.ErrorGrammar:
			return
		case cssparse.BeginAtRuleGrammar, cssparse.BeginRulesetGrammar:
			depth++
		case cssparse.EndAtRuleGrammar, cssparse.EndRulesetGrammar:
			depth--
		}
	}
}

// selectorText rebuilds the raw selector from the leading data and the
// remaining value tokens, collapsing whitespace runs to single spaces.
func selectorText(data []byte, values []cssparse.Token) string {
	var b strings.Builder
	b.Write(data)
	for _, v := range values {
		if v.TokenType == cssparse.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(v.Data)
	}
	// the token stream of a grouped selector may carry its trailing comma
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(b.String()), ","))
}

// joinTokens rebuilds a raw value/condition string from tokens.
func joinTokens(values []cssparse.Token) string {
	var b strings.Builder
	for _, v := range values {
		if v.TokenType == cssparse.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}
