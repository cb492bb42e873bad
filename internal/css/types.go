package css

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a top-level stylesheet node
type Kind int

const (
	// KindRule is a style rule: selector group plus declaration block
	KindRule Kind = iota
	// KindAtRule is an @-rule, with or without a block
	KindAtRule
	// KindComment is a comment between rules
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindAtRule:
		return "at-rule"
	case KindComment:
		return "comment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Declaration represents a single CSS property declaration, or a comment
// written between declarations when Comment is set.
type Declaration struct {
	Property  string // CSS property name as written
	Value     string // CSS property value, whitespace collapsed
	Important bool   // !important flag
	Comment   string // full comment text, other fields are empty
}

// IsComment reports whether the entry is a comment
func (d Declaration) IsComment() bool {
	return d.Comment != ""
}

func (d Declaration) String() string {
	if d.IsComment() {
		return d.Comment
	}
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Node is one entry of a stylesheet.
//
// Style rules use Selectors and Declarations, rules nested in a style rule
// are kept in Children and never matched on their own. At-rules use Name, Prelude and,
// when they carry a block, either Children (@media, @supports, @keyframes) or
// Declarations (@font-face, @page). Comments keep their full text in Text.
type Node struct {
	Kind         Kind
	Selectors    []string
	Declarations []Declaration

	Name     string // "@media", "@import", ...
	Prelude  string
	HasBlock bool
	Children []*Node

	Text string // comment text, or the raw body of an unrecognized at-rule block
}

// NewRule creates a style rule node. Selectors are normalized.
func NewRule(selectors []string, declarations ...Declaration) *Node {
	norm := make([]string, 0, len(selectors))
	for _, s := range selectors {
		if s = NormalizeSelector(s); s != "" {
			norm = append(norm, s)
		}
	}
	return &Node{Kind: KindRule, Selectors: norm, Declarations: declarations}
}

// Key returns the selector identity key of a style rule, empty for other kinds
func (n *Node) Key() string {
	if n.Kind != KindRule {
		return ""
	}
	return Key(n.Selectors)
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	c := *n
	c.Selectors = append([]string(nil), n.Selectors...)
	c.Declarations = append([]Declaration(nil), n.Declarations...)
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return &c
}

// Stylesheet represents a parsed stylesheet with all nodes in source order
type Stylesheet struct {
	Nodes []*Node
}

// Rules returns top-level style rules in source order
func (s *Stylesheet) Rules() []*Node {
	if s == nil {
		return nil
	}
	rules := make([]*Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.Kind == KindRule {
			rules = append(rules, n)
		}
	}
	return rules
}

// Clone returns a deep copy of the stylesheet
func (s *Stylesheet) Clone() *Stylesheet {
	c := &Stylesheet{Nodes: make([]*Node, len(s.Nodes))}
	for i, n := range s.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}

// String serializes the stylesheet back to CSS text
func (s *Stylesheet) String() string {
	if s == nil || len(s.Nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, n := range s.Nodes {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeNode(&sb, n, "")
	}
	return sb.String()
}

// String serializes a single node
func (n *Node) String() string {
	var sb strings.Builder
	writeNode(&sb, n, "")
	return sb.String()
}

// writeNode uses the layout of one selector group per line followed by
// one declaration per line, indented by two spaces for every nesting level.
func writeNode(sb *strings.Builder, n *Node, indent string) {
	switch n.Kind {
	case KindComment:
		sb.WriteString(indent)
		sb.WriteString(n.Text)
		sb.WriteString("\n")

	case KindRule:
		sb.WriteString(indent)
		sb.WriteString(Key(n.Selectors))
		sb.WriteString(" {\n")
		writeDeclarations(sb, n.Declarations, indent+"  ")
		for _, ch := range n.Children {
			writeNode(sb, ch, indent+"  ")
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")

	case KindAtRule:
		sb.WriteString(indent)
		sb.WriteString(n.Name)
		if n.Prelude != "" {
			sb.WriteString(" ")
			sb.WriteString(n.Prelude)
		}
		if !n.HasBlock {
			sb.WriteString(";\n")
			return
		}
		sb.WriteString(" {\n")
		if n.Text != "" {
			sb.WriteString(indent + "  ")
			sb.WriteString(n.Text)
			sb.WriteString("\n")
		}
		writeDeclarations(sb, n.Declarations, indent+"  ")
		for _, ch := range n.Children {
			writeNode(sb, ch, indent+"  ")
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")
	}
}

func writeDeclarations(sb *strings.Builder, decls []Declaration, indent string) {
	for _, d := range decls {
		sb.WriteString(indent)
		sb.WriteString(d.String())
		if !d.IsComment() {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
}
