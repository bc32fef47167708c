package compile

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"bec/css"
	"bec/markup"
)

// fixedMatcher answers from a canned table and records what it was asked.
type fixedMatcher struct {
	answers map[string]bool
	asked   []string
	err     error
}

func (m *fixedMatcher) Matches(selector string) (bool, error) {
	m.asked = append(m.asked, selector)
	if m.err != nil {
		return false, m.err
	}
	return m.answers[selector], nil
}

func styleItem(selector string) css.Item {
	return css.Item{Style: &css.Rule{
		Selector:     selector,
		Declarations: []css.Declaration{{Property: "color", Value: "red"}},
	}}
}

func TestPurgeDropsUnmatchedRules(t *testing.T) {
	m := &fixedMatcher{answers: map[string]bool{".used": true}}
	p := &purger{matcher: m, log: zap.NewNop()}

	sheet := &css.Stylesheet{Items: []css.Item{
		styleItem(".used"),
		styleItem(".unused"),
		styleItem(".used"),
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatalf("purge() error: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("kept %d items, want 2", len(out.Items))
	}
	for _, item := range out.Items {
		if item.Style.Selector != ".used" {
			t.Errorf("kept unmatched rule %q", item.Style.Selector)
		}
	}
}

func TestPurgeEmptiesMediaBlocks(t *testing.T) {
	m := &fixedMatcher{answers: map[string]bool{".keep": true}}
	p := &purger{matcher: m, log: zap.NewNop()}

	sheet := &css.Stylesheet{Items: []css.Item{
		{Media: &css.MediaRule{
			Condition: "screen and (max-width: 600px)",
			Rules: []css.Rule{
				{Selector: ".keep"},
				{Selector: ".drop"},
			},
		}},
		{Media: &css.MediaRule{
			Condition: "print",
			Rules:     []css.Rule{{Selector: ".drop"}},
		}},
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatalf("purge() error: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("kept %d items, want 1", len(out.Items))
	}
	media := out.Items[0].Media
	if media == nil || media.Condition != "screen and (max-width: 600px)" {
		t.Fatal("surviving item should be the screen media block")
	}
	if len(media.Rules) != 1 || media.Rules[0].Selector != ".keep" {
		t.Errorf("media rules = %+v", media.Rules)
	}
}

func TestPurgePreservesOrder(t *testing.T) {
	m := &fixedMatcher{answers: map[string]bool{".a": true, ".c": true}}
	p := &purger{matcher: m, log: zap.NewNop()}

	sheet := &css.Stylesheet{Items: []css.Item{
		styleItem(".a"),
		styleItem(".b"),
		styleItem(".c"),
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if out.Items[0].Style.Selector != ".a" || out.Items[1].Style.Selector != ".c" {
		t.Errorf("order not preserved: %+v", out.Items)
	}
}

func TestPurgeStripsPseudos(t *testing.T) {
	m := &fixedMatcher{answers: map[string]bool{".btn a": true}}
	p := &purger{matcher: m, log: zap.NewNop()}

	sheet := &css.Stylesheet{Items: []css.Item{
		styleItem(".btn a:hover"),
		styleItem(".btn a::after"),
		styleItem(".btn a:not(.disabled)"),
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 3 {
		t.Fatalf("kept %d items, want 3", len(out.Items))
	}
	for _, asked := range m.asked {
		if asked != ".btn a" {
			t.Errorf("matcher asked %q, want pseudo-free selector", asked)
		}
	}
}

func TestPurgeKeepsUniversalAndBareSelectors(t *testing.T) {
	m := &fixedMatcher{answers: map[string]bool{}}
	p := &purger{matcher: m, log: zap.NewNop()}

	sheet := &css.Stylesheet{Items: []css.Item{
		styleItem("*"),
		styleItem(":root"),
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("kept %d items, want 2", len(out.Items))
	}
	if len(m.asked) != 0 {
		t.Errorf("matcher should not be consulted for %v", m.asked)
	}
}

func TestPurgePropagatesMatcherErrors(t *testing.T) {
	wantErr := errors.New("bad selector")
	p := &purger{matcher: &fixedMatcher{err: wantErr}, log: zap.NewNop()}

	_, err := p.purge(&css.Stylesheet{Items: []css.Item{styleItem(".x")}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("purge() error = %v, want %v", err, wantErr)
	}
}

func TestPurgeAgainstDocument(t *testing.T) {
	doc, err := markup.Parse(`<html><head></head><body><table class="btn"><tbody><tr><td><a href="#">Go</a></td></tr></tbody></table></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	p := newPurger(doc, zap.NewNop())

	sheet := &css.Stylesheet{Items: []css.Item{
		styleItem(".btn td"),
		styleItem(".btn a:hover"),
		styleItem(".card td"),
	}}
	out, err := p.purge(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("kept %d items, want 2", len(out.Items))
	}
	if out.Items[0].Style.Selector != ".btn td" || out.Items[1].Style.Selector != ".btn a:hover" {
		t.Errorf("kept rules = %q, %q", out.Items[0].Style.Selector, out.Items[1].Style.Selector)
	}
}

func TestPurgeFailsOnUntranslatableSelector(t *testing.T) {
	doc, err := markup.Parse(`<html><head></head><body></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	p := newPurger(doc, zap.NewNop())

	_, err = p.purge(&css.Stylesheet{Items: []css.Item{styleItem("td:[")}})
	if err == nil {
		t.Fatal("expected translation failure to surface")
	}
}
