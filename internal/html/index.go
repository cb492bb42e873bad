package html

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// ErrStaleSelection is returned for references which do not belong to the
// element list they are resolved against.
var ErrStaleSelection = errors.New("stale element selection")

// generationSpace namespaces element list generations.
var generationSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stylepick:elements"))

// Generation returns the element list generation for a document source.
// Identical sources produce identical trees and therefore share a generation.
func Generation(source string) uuid.UUID {
	return uuid.NewSHA1(generationSpace, []byte(source))
}

// ElementList is the flattened element list of one parse
type ElementList struct {
	Generation uuid.UUID
	elements   []*Element
}

// Len returns number of elements in the list
func (l *ElementList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elements)
}

// Ref returns a reference to the element at index i of this list
func (l *ElementList) Ref(i int) Ref {
	return Ref{Generation: l.Generation, Index: i}
}

// Resolve returns the element a reference points to. References from other
// generations and out of range indexes are rejected with ErrStaleSelection.
func (l *ElementList) Resolve(ref Ref) (*Element, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: no element list", ErrStaleSelection)
	}
	if ref.Generation != uuid.Nil && ref.Generation != l.Generation {
		return nil, fmt.Errorf("%w: reference from %s, document is now %s", ErrStaleSelection, ref.Generation, l.Generation)
	}
	if ref.Index < 0 || ref.Index >= len(l.elements) {
		return nil, fmt.Errorf("%w: index %d out of range, document has %d elements", ErrStaleSelection, ref.Index, len(l.elements))
	}
	return l.elements[ref.Index], nil
}

// Records returns the serializable projection of the list
func (l *ElementList) Records() []Record {
	records := make([]Record, 0, l.Len())
	for i, e := range l.elements {
		records = append(records, e.record(i))
	}
	return records
}

// Index flattens the tree under root into its elements in document pre-order.
// root itself is included when it is an element node.
func Index(root *html.Node) []*Element {
	return index(root, nil)
}

func index(root *html.Node, align *aligner) []*Element {
	elements := make([]*Element, 0)
	if root == nil {
		return elements
	}

	var walk func(n *html.Node, parent *Element)
	walk = func(n *html.Node, parent *Element) {
		next := parent
		if n.Type == html.ElementNode {
			e := newElement(n)
			if align != nil {
				e.span = align.next(e.tag)
			}
			elements = append(elements, e)
			if parent != nil {
				parent.children = append(parent.children, e)
			}
			next = e
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, next)
		}
	}
	walk(root, nil)
	return elements
}

func newElement(n *html.Node) *Element {
	e := &Element{
		tag:  strings.ToLower(n.Data),
		span: Span{Start: -1, End: -1},
	}
	for _, attr := range n.Attr {
		if attr.Namespace != "" {
			continue
		}
		switch strings.ToLower(attr.Key) {
		case "id":
			e.id = attr.Val
		case "class":
			e.classes = strings.Fields(attr.Val)
		}
	}
	return e
}
