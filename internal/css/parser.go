package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// ErrUnexpectedEOF is reported when a block is still open at the end of input
var ErrUnexpectedEOF = errors.New("unexpected end of stylesheet")

// ParseError is returned when stylesheet text does not parse
type ParseError struct {
	Near string // offending text, if known
	Err  error
}

func (e *ParseError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("invalid CSS near %q: %v", e.Near, e.Err)
	}
	return fmt.Sprintf("invalid CSS: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errSyntax = errors.New("syntax error")

// Parser handles CSS parsing into a Stylesheet AST
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
//
// Empty input yields an empty stylesheet. Any syntax error, including a block
// left open at the end of input, aborts parsing with *ParseError: the result
// is used for write-back and a partially understood stylesheet must never be
// written.
func (p *Parser) Parse(cssText string) (*Stylesheet, error) {
	sheet := &Stylesheet{Nodes: make([]*Node, 0)}
	if strings.TrimSpace(cssText) == "" {
		return sheet, nil
	}

	gp := css.NewParser(parse.NewInputString(cssText), false)
	top, err := p.parseBlock(gp, cssText, false)
	if err != nil {
		p.log.Debug("CSS parse error", zap.Error(err))
		return nil, err
	}
	sheet.Nodes = top.nodes

	p.log.Debug("Parsed stylesheet", zap.Int("bytes", len(cssText)), zap.Int("nodes", len(sheet.Nodes)))
	return sheet, nil
}

// block is the content of the stylesheet or of one at-rule block
type block struct {
	nodes []*Node
	decls []Declaration
	raw   strings.Builder
}

// parseBlock reads nodes until the end of input (top level) or until the
// closing brace of the enclosing at-rule. The grammar parser only reports
// comments at the top level, inside blocks they are recovered from src.
func (p *Parser) parseBlock(gp *css.Parser, src string, inAtRule bool) (*block, error) {
	var (
		b       = &block{}
		pending []string
	)
	for {
		from := gp.Offset()
		gt, tt, data := gp.Next()

		var lead, trail []Declaration
		if inAtRule && gt != css.TokenGrammar {
			lead, trail = comments(src, from, gp.Offset())
		}

		switch gt {
		case css.ErrorGrammar:
			if err := grammarError(gp, data); err != nil {
				return nil, err
			}
			if inAtRule {
				return nil, &ParseError{Err: ErrUnexpectedEOF}
			}
			return b, nil

		case css.CommentGrammar:
			b.nodes = append(b.nodes, &Node{Kind: KindComment, Text: string(data)})

		case css.AtRuleGrammar, css.BeginAtRuleGrammar:
			b.nodes = append(b.nodes, commentNodes(lead)...)
			node, err := p.atRule(gp, src, gt, data)
			if err != nil {
				return nil, err
			}
			b.nodes = append(b.nodes, node)

		case css.EndAtRuleGrammar:
			if !inAtRule {
				return nil, &ParseError{Near: string(data), Err: errSyntax}
			}
			if tt == css.ErrorToken {
				return nil, &ParseError{Err: ErrUnexpectedEOF}
			}
			if b.raw.Len() > 0 {
				for _, c := range lead {
					b.raw.WriteString(c.Comment)
				}
			} else if len(b.decls) > 0 {
				b.decls = append(b.decls, lead...)
			} else {
				b.nodes = append(b.nodes, commentNodes(lead)...)
			}
			return b, nil

		case css.QualifiedRuleGrammar:
			b.nodes = append(b.nodes, commentNodes(lead)...)
			pending = append(pending, joinTokens(data, gp.Values()))

		case css.BeginRulesetGrammar:
			b.nodes = append(b.nodes, commentNodes(lead)...)
			group := strings.Join(append(pending, joinTokens(data, gp.Values())), ",")
			pending = nil

			rule := &Node{Kind: KindRule, Selectors: SplitSelectors(group)}
			if len(rule.Selectors) == 0 {
				return nil, &ParseError{Near: group + "{", Err: errors.New("rule without selector")}
			}
			if err := p.parseRuleBody(gp, src, rule); err != nil {
				return nil, err
			}
			b.nodes = append(b.nodes, rule)

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if !inAtRule {
				return nil, &ParseError{Near: string(data), Err: errors.New("declaration outside of a rule")}
			}
			b.decls = append(b.decls, lead...)
			b.decls = append(b.decls, p.declaration(gt, data, gp.Values()))
			b.decls = append(b.decls, trail...)

		case css.TokenGrammar:
			// body of an at-rule the grammar parser does not know, kept as
			// written
			if inAtRule {
				b.raw.WriteString(src[from:gp.Offset()])
				continue
			}
			if s := strings.TrimSpace(string(data)); s == "" || s == "<!--" || s == "-->" {
				continue
			}
			return nil, &ParseError{Near: string(data), Err: errSyntax}

		default:
			return nil, &ParseError{Near: string(data), Err: errSyntax}
		}
	}
}

// atRule builds an at-rule node, reading its block when it has one
func (p *Parser) atRule(gp *css.Parser, src string, gt css.GrammarType, data []byte) (*Node, error) {
	node := &Node{
		Kind:    KindAtRule,
		Name:    strings.ToLower(string(data)),
		Prelude: joinTokens(nil, gp.Values()),
	}
	if gt != css.BeginAtRuleGrammar {
		return node, nil
	}
	node.HasBlock = true
	inner, err := p.parseBlock(gp, src, true)
	if err != nil {
		return nil, err
	}
	node.Children, node.Declarations = inner.nodes, inner.decls
	node.Text = strings.TrimSpace(inner.raw.String())
	return node, nil
}

// parseRuleBody reads the declarations of a style rule up to its closing
// brace. Nested rules and at-rules are kept as children of the rule.
func (p *Parser) parseRuleBody(gp *css.Parser, src string, rule *Node) error {
	rule.Declarations = make([]Declaration, 0)
	for {
		from := gp.Offset()
		gt, tt, data := gp.Next()
		lead, trail := comments(src, from, gp.Offset())

		switch gt {
		case css.EndRulesetGrammar:
			// the grammar parser closes open rulesets at the end of input
			if tt == css.ErrorToken {
				return &ParseError{Near: Key(rule.Selectors) + " {", Err: ErrUnexpectedEOF}
			}
			if len(rule.Children) > 0 {
				rule.Children = append(rule.Children, commentNodes(lead)...)
			} else {
				rule.Declarations = append(rule.Declarations, lead...)
			}
			return nil

		case css.ErrorGrammar:
			if err := grammarError(gp, data); err != nil {
				return err
			}
			return &ParseError{Near: Key(rule.Selectors) + " {", Err: ErrUnexpectedEOF}

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			rule.Declarations = append(rule.Declarations, lead...)
			rule.Declarations = append(rule.Declarations, p.declaration(gt, data, gp.Values()))
			rule.Declarations = append(rule.Declarations, trail...)

		case css.BeginRulesetGrammar:
			rule.Children = append(rule.Children, commentNodes(lead)...)
			selector := joinTokens(data, gp.Values())
			nested := &Node{Kind: KindRule, Selectors: SplitSelectors(selector)}
			if len(nested.Selectors) == 0 {
				return &ParseError{Near: selector + "{", Err: errors.New("rule without selector")}
			}
			if err := p.parseRuleBody(gp, src, nested); err != nil {
				return err
			}
			rule.Children = append(rule.Children, nested)

		case css.AtRuleGrammar, css.BeginAtRuleGrammar:
			rule.Children = append(rule.Children, commentNodes(lead)...)
			node, err := p.atRule(gp, src, gt, data)
			if err != nil {
				return err
			}
			rule.Children = append(rule.Children, node)

		default:
			return &ParseError{Near: joinTokens(data, gp.Values()), Err: errSyntax}
		}
	}
}

func (p *Parser) declaration(gt css.GrammarType, name []byte, values []css.Token) Declaration {
	decl := Declaration{Property: strings.TrimSpace(string(name))}
	if gt == css.DeclarationGrammar {
		values, decl.Important = trimImportant(values)
	}
	decl.Value = joinTokens(nil, values)
	return decl
}

// trimImportant strips a trailing "!important" from declaration values. The
// grammar parser already dropped whitespace around the '!' delimiter.
func trimImportant(values []css.Token) ([]css.Token, bool) {
	n := len(values)
	for n > 0 && values[n-1].TokenType == css.WhitespaceToken {
		n--
	}
	if n < 2 {
		return values, false
	}
	bang, ident := values[n-2], values[n-1]
	if bang.TokenType != css.DelimToken || string(bang.Data) != "!" ||
		ident.TokenType != css.IdentToken || !strings.EqualFold(string(ident.Data), "important") {
		return values, false
	}
	return values[:n-2], true
}

// comments returns the comments found in src[from:to], split into those
// before and after the first other token.
func comments(src string, from, to int) (lead, trail []Declaration) {
	if from < 0 || to > len(src) || from >= to {
		return nil, nil
	}
	l := css.NewLexer(parse.NewInputString(src[from:to]))
	seen := false
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return lead, trail
		case css.CommentToken:
			c := Declaration{Comment: string(data)}
			if seen {
				trail = append(trail, c)
			} else {
				lead = append(lead, c)
			}
		case css.WhitespaceToken:
		default:
			seen = true
		}
	}
}

func commentNodes(decls []Declaration) []*Node {
	nodes := make([]*Node, 0, len(decls))
	for _, d := range decls {
		nodes = append(nodes, &Node{Kind: KindComment, Text: d.Comment})
	}
	return nodes
}

// grammarError converts parser state after ErrorGrammar into an error,
// returning nil for a clean end of input.
func grammarError(gp *css.Parser, data []byte) error {
	err := gp.Err()
	switch {
	case err == io.EOF:
		return nil
	case err != nil:
		return &ParseError{Near: string(data), Err: err}
	default:
		return &ParseError{Near: joinTokens(data, gp.Values()), Err: errSyntax}
	}
}

// joinTokens concatenates token data collapsing whitespace tokens to one
// space. String tokens are copied untouched.
func joinTokens(data []byte, tokens []css.Token) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(string(data)))
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if s := sb.String(); len(s) > 0 && s[len(s)-1] != ' ' {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}
