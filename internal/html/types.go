package html

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Node represents an HTML element as seen by selector matching.
// This interface can be implemented by any HTML parsing library
type Node interface {
	TagName() string
	ID() string
	Classes() []string
	Children() []Node
}

// Span is a byte range in the document source. Both ends are -1 for elements
// the parser implied without any source text (html, head, body, tbody...).
type Span struct {
	Start int
	End   int
}

// Element is one element of a parsed document. Elements are never modified
// after the list they belong to has been built.
type Element struct {
	tag      string
	id       string
	classes  []string
	children []*Element
	span     Span
}

// TagName returns the lower-case tag name
func (e *Element) TagName() string { return e.tag }

// ID returns the element's id attribute
func (e *Element) ID() string { return e.id }

// Classes returns the element's class list
func (e *Element) Classes() []string { return slices.Clone(e.classes) }

// Span returns the element's source range
func (e *Element) Span() Span { return e.span }

// Children returns child elements in document order
func (e *Element) Children() []Node {
	nodes := make([]Node, len(e.children))
	for i, c := range e.children {
		nodes[i] = c
	}
	return nodes
}

// Record is the plain data projection of an element passed across process
// boundaries.
type Record struct {
	Index   int    `json:"index" yaml:"index"`
	TagName string `json:"tagName" yaml:"tagName"`
	ID      string `json:"id" yaml:"id"`
	Class   string `json:"class" yaml:"class"`
}

// Ref is an indexed element reference. It is only meaningful for the element
// list of the same generation. uuid.Nil generation means "whatever list the
// reference is resolved against" and is only bounds checked.
type Ref struct {
	Generation uuid.UUID `json:"generation" yaml:"generation"`
	Index      int       `json:"index" yaml:"index"`
}

func (e *Element) record(index int) Record {
	return Record{
		Index:   index,
		TagName: e.tag,
		ID:      e.id,
		Class:   strings.Join(e.classes, " "),
	}
}
