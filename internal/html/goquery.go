package html

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseError is returned when HTML text cannot be turned into a document
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document wraps goquery.Document together with the source it was built from
type Document struct {
	doc    *goquery.Document
	source string
	log    *zap.Logger
}

// Parser builds documents using goquery on top of golang.org/x/net/html
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new GoQuery-based HTML parser
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("html-parser")}
}

// Parse parses HTML string into a Document. Sources with a doctype or an
// html, head or body tag are parsed as complete documents, everything else as
// the content of <body> so no wrapper elements are implied.
func (p *Parser) Parse(src string) (*Document, error) {
	var doc *goquery.Document
	if hasDocumentMarkup(src) {
		d, err := goquery.NewDocumentFromReader(strings.NewReader(src))
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		doc = d
	} else {
		context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		nodes, err := html.ParseFragment(strings.NewReader(src), context)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		root := &html.Node{Type: html.DocumentNode}
		for _, n := range nodes {
			root.AppendChild(n)
		}
		doc = goquery.NewDocumentFromNode(root)
		p.log.Debug("Parsed as fragment", zap.Int("nodes", len(nodes)))
	}
	return &Document{doc: doc, source: src, log: p.log}, nil
}

// ParseFile parses HTML file into a Document
func (p *Parser) ParseFile(filename string) (*Document, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return p.Parse(string(content))
}

// Source returns the text the document was parsed from
func (d *Document) Source() string {
	return d.source
}

// Root returns the document node of the parse tree
func (d *Document) Root() *html.Node {
	return d.doc.Get(0)
}

// Elements flattens the document into its element list. Each call builds a
// fresh list, callers keep the one they resolve references against.
func (d *Document) Elements() *ElementList {
	list := &ElementList{
		Generation: Generation(d.source),
		elements:   index(d.Root(), newAligner(d.source)),
	}
	d.log.Debug("Indexed document",
		zap.Int("elements", len(list.elements)),
		zap.Stringer("generation", list.Generation))
	return list
}

// StylesheetLinks returns href of every <link rel="stylesheet"> in document order
func (d *Document) StylesheetLinks() []string {
	var links []string
	d.doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !hasToken(rel, "stylesheet") {
			return
		}
		href, _ := s.Attr("href")
		if href = strings.TrimSpace(href); href != "" {
			links = append(links, href)
		}
	})
	return links
}

// hasToken checks whitespace separated attribute value for token, ignoring case
func hasToken(value, token string) bool {
	for _, f := range strings.Fields(value) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// Project builds a detached parse tree holding only the tag, id and class of
// n and its descendants. The returned root has no parent and no siblings.
func Project(n Node) *html.Node {
	tag := strings.ToLower(n.TagName())
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if id := n.ID(); id != "" {
		node.Attr = append(node.Attr, html.Attribute{Key: "id", Val: id})
	}
	if classes := n.Classes(); len(classes) > 0 {
		node.Attr = append(node.Attr, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
	}
	for _, child := range n.Children() {
		node.AppendChild(Project(child))
	}
	return node
}
