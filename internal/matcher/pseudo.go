package matcher

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// statePseudo lists pseudo-classes which depend on user interaction or
// navigation and never hold for a static element.
var statePseudo = map[string]bool{
	"hover":         true,
	"focus":         true,
	"focus-within":  true,
	"focus-visible": true,
	"active":        true,
	"visited":       true,
	"link":          true,
	"target":        true,
}

// legacyPseudoElements may be written with a single colon
var legacyPseudoElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-line":   true,
	"first-letter": true,
}

type token struct {
	tt   css.TokenType
	data string
}

func tokenize(selector string) []token {
	l := css.NewLexer(parse.NewInputString(selector))
	var tokens []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			return tokens
		}
		tokens = append(tokens, token{tt: tt, data: string(data)})
	}
}

// IsStatePseudo checks if a selector uses user action pseudo-classes outside
// of functional pseudo-classes.
func IsStatePseudo(selector string) bool {
	return rewriteSelector(selector, true, false) != rewriteSelector(selector, false, false)
}

// rewriteSelector optionally removes top level state pseudo-classes and
// converts single colon pseudo-elements to their double colon form. A
// compound left with nothing but the removed pseudo-class becomes '*'.
func rewriteSelector(selector string, stripState, legacyElements bool) string {
	if !stripState && !legacyElements {
		return selector
	}

	tokens := tokenize(selector)
	var (
		sb    strings.Builder
		depth int
	)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.ColonToken:
			if depth != 0 || i+1 >= len(tokens) || tokens[i+1].tt != css.IdentToken {
				break
			}
			if i > 0 && tokens[i-1].tt == css.ColonToken {
				break
			}
			name := strings.ToLower(tokens[i+1].data)
			if stripState && statePseudo[name] {
				if compoundStart(sb.String()) {
					sb.WriteString("*")
				}
				i++
				continue
			}
			if legacyElements && legacyPseudoElements[name] {
				sb.WriteString("::")
				sb.WriteString(name)
				i++
				continue
			}
		}
		sb.WriteString(t.data)
	}
	return strings.TrimSpace(sb.String())
}

func compoundStart(s string) bool {
	if s == "" {
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '>', '+', '~', ',':
		return true
	}
	return false
}
