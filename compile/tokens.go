package compile

import (
	"regexp"
	"strconv"

	"golang.org/x/net/html"

	"bec/markup"
)

// Utility class tokens are parsed by pattern, never looked up in a
// stylesheet. A token matching a family prefix but failing the full grammar
// (for example "mt-huge") stays untouched on the element.

type tokenFamily int

const (
	famOther tokenFamily = iota
	famMargin
	famPadding
	famSpaceY
	famSpacer
)

// utilityToken is a single parsed class token.
type utilityToken struct {
	raw    string
	family tokenFamily
	side   byte // margin: t|b|y, padding: 0 (all sides) or t|r|b|l|x|y
	lg     bool // large-breakpoint variant ("-lg-")
	size   int
}

var (
	marginPattern  = regexp.MustCompile(`^m([tby])-(lg-)?(\d+)$`)
	paddingPattern = regexp.MustCompile(`^p([trblxy]?)-(lg-)?(\d+)$`)
	spaceYPattern  = regexp.MustCompile(`^space-y-(lg-)?(\d+)$`)
	spacerPattern  = regexp.MustCompile(`^s-(lg-)?(\d+)$`)
)

// parseToken classifies one raw class token.
func parseToken(raw string) utilityToken {
	t := utilityToken{raw: raw, family: famOther}

	if m := marginPattern.FindStringSubmatch(raw); m != nil {
		t.family = famMargin
		t.side = m[1][0]
		t.lg = m[2] != ""
		t.size, _ = strconv.Atoi(m[3])
		return t
	}
	if m := paddingPattern.FindStringSubmatch(raw); m != nil {
		t.family = famPadding
		if m[1] != "" {
			t.side = m[1][0]
		}
		t.lg = m[2] != ""
		t.size, _ = strconv.Atoi(m[3])
		return t
	}
	if m := spaceYPattern.FindStringSubmatch(raw); m != nil {
		t.family = famSpaceY
		t.lg = m[1] != ""
		t.size, _ = strconv.Atoi(m[2])
		return t
	}
	if m := spacerPattern.FindStringSubmatch(raw); m != nil {
		t.family = famSpacer
		t.lg = m[1] != ""
		t.size, _ = strconv.Atoi(m[2])
		return t
	}
	return t
}

// classTokens parses the full class attribute of a node.
func classTokens(n *html.Node) []utilityToken {
	classes := markup.Classes(n)
	out := make([]utilityToken, 0, len(classes))
	for _, c := range classes {
		out = append(out, parseToken(c))
	}
	return out
}

// sizeToken renders the size part of a token, keeping the breakpoint
// prefix: "5" or "lg-5".
func (t utilityToken) sizeToken() string {
	if t.lg {
		return "lg-" + strconv.Itoa(t.size)
	}
	return strconv.Itoa(t.size)
}

func (t utilityToken) isMarginTop() bool {
	return t.family == famMargin && (t.side == 't' || t.side == 'y')
}

func (t utilityToken) isMarginBottom() bool {
	return t.family == famMargin && (t.side == 'b' || t.side == 'y')
}

// hasMarginTopClass reports a well-formed top margin token on the node.
func hasMarginTopClass(n *html.Node) bool {
	for _, t := range classTokens(n) {
		if t.isMarginTop() {
			return true
		}
	}
	return false
}

// hasMarginBottomClass reports a well-formed bottom margin token on the node.
func hasMarginBottomClass(n *html.Node) bool {
	for _, t := range classTokens(n) {
		if t.isMarginBottom() {
			return true
		}
	}
	return false
}

// hasVerticalMarginClass reports any vertical margin token on the node.
func hasVerticalMarginClass(n *html.Node) bool {
	return hasMarginTopClass(n) || hasMarginBottomClass(n)
}

// marginTokens extracts the first top and bottom margin tokens of a node,
// nil when absent.
func marginTokens(n *html.Node) (top, bottom *utilityToken) {
	for _, t := range classTokens(n) {
		t := t
		if top == nil && t.isMarginTop() {
			top = &t
		}
		if bottom == nil && t.isMarginBottom() {
			bottom = &t
		}
	}
	return top, bottom
}

// stripMarginClasses removes all well-formed margin tokens from the node's
// class set, leaving every other token (malformed ones included) in place.
func stripMarginClasses(n *html.Node) {
	var kept []string
	for _, t := range classTokens(n) {
		if t.family == famMargin {
			continue
		}
		kept = append(kept, t.raw)
	}
	markup.SetClasses(n, kept)
}

// spaceYToken returns the first space-y token of a node.
func spaceYToken(n *html.Node) (utilityToken, bool) {
	for _, t := range classTokens(n) {
		if t.family == famSpaceY {
			return t, true
		}
	}
	return utilityToken{}, false
}

// hasSpacerClass reports a spacer marker (s-N, s-lg-N) on the node.
func hasSpacerClass(n *html.Node) bool {
	for _, t := range classTokens(n) {
		if t.family == famSpacer {
			return true
		}
	}
	return false
}

// paddingClasses returns the raw padding tokens of a node in class order.
func paddingClasses(n *html.Node) []string {
	var out []string
	for _, t := range classTokens(n) {
		if t.family == famPadding {
			out = append(out, t.raw)
		}
	}
	return out
}

// stripPaddingClasses removes all well-formed padding tokens from the
// node's class set.
func stripPaddingClasses(n *html.Node) {
	var kept []string
	for _, t := range classTokens(n) {
		if t.family == famPadding {
			continue
		}
		kept = append(kept, t.raw)
	}
	markup.SetClasses(n, kept)
}
