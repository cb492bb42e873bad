package css

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// NormalizeSelector normalizes a CSS selector for consistent matching.
//
// Whitespace runs collapse to one space and the >, + and ~ combinators are
// surrounded by exactly one space. Text inside brackets, parentheses and
// strings is only whitespace-collapsed.
func NormalizeSelector(selector string) string {
	l := css.NewLexer(parse.NewInputString(selector))

	var (
		sb           strings.Builder
		depth        int
		pendingSpace bool
	)
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}

		switch tt {
		case css.WhitespaceToken:
			pendingSpace = true
			continue
		case css.CommentToken:
			continue
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		}

		if depth == 0 && tt == css.DelimToken && isCombinator(data) {
			if sb.Len() > 0 && !endsWithSpace(&sb) {
				sb.WriteByte(' ')
			}
			sb.Write(data)
			sb.WriteByte(' ')
			pendingSpace = false
			continue
		}

		if pendingSpace && sb.Len() > 0 && !endsWithSpace(&sb) {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.Write(data)
	}
	return strings.TrimSpace(sb.String())
}

func isCombinator(data []byte) bool {
	return len(data) == 1 && (data[0] == '>' || data[0] == '+' || data[0] == '~')
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	return len(s) > 0 && s[len(s)-1] == ' '
}

// Key returns the selector identity key: normalized selectors joined in order.
// Two rules are the same rule for write-back when their keys are equal.
func Key(selectors []string) string {
	return strings.Join(selectors, ", ")
}

// SplitSelectors splits a selector group on top-level commas and normalizes
// every part, dropping empty ones.
func SplitSelectors(group string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range group {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, group[start:i])
			start = i + 1
		}
	}
	parts = append(parts, group[start:])

	selectors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = NormalizeSelector(p); p != "" {
			selectors = append(selectors, p)
		}
	}
	return selectors
}
