package html

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type sourceTag struct {
	name string
	span Span
}

// scanTags lists the start tags present in the source in order, with the
// range each element covers: from '<' of the start tag to the end of the
// matching end tag, or to the end of the start tag when there is none.
func scanTags(source string) []sourceTag {
	l := html.NewLexer(parse.NewInputString(source))

	var (
		tags []sourceTag
		open []int
		cur  = -1
		off  int // end of the last token in source
	)
	for {
		tt, data := l.Next()
		if tt == html.StartTagCloseToken || tt == html.StartTagVoidToken {
			// whitespace before the tag end belongs to no token
			for off < len(source) && isSpace(source[off]) {
				off++
			}
		}
		start := off
		off += len(data)
		switch tt {
		case html.ErrorToken:
			return tags

		case html.StartTagToken:
			tags = append(tags, sourceTag{
				name: strings.ToLower(string(l.Text())),
				span: Span{Start: start, End: -1},
			})
			cur = len(tags) - 1

		case html.StartTagCloseToken:
			if cur < 0 {
				continue
			}
			tags[cur].span.End = off
			if !voidElements[tags[cur].name] {
				open = append(open, cur)
			}
			cur = -1

		case html.StartTagVoidToken:
			if cur >= 0 {
				tags[cur].span.End = off
			}
			cur = -1

		case html.SVGToken, html.MathToken:
			// the lexer returns foreign content as a single token
			name := "svg"
			if tt == html.MathToken {
				name = "math"
			}
			tags = append(tags, sourceTag{name: name, span: Span{Start: start, End: off}})

		case html.EndTagToken:
			name := strings.ToLower(string(l.Text()))
			for i := len(open) - 1; i >= 0; i-- {
				if tags[open[i]].name == name {
					tags[open[i]].span.End = off
					open = open[:i]
					break
				}
			}
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// aligner hands out source spans to elements created in pre-order. An
// element only takes the next source tag when the names agree, elements the
// tree builder implied get no span.
type aligner struct {
	tags []sourceTag
	pos  int
}

func newAligner(source string) *aligner {
	return &aligner{tags: scanTags(source)}
}

func (a *aligner) next(tag string) Span {
	if a.pos < len(a.tags) && a.tags[a.pos].name == tag {
		s := a.tags[a.pos].span
		a.pos++
		return s
	}
	return Span{Start: -1, End: -1}
}

// hasDocumentMarkup reports whether the source carries a doctype or any of
// the html, head or body tags.
func hasDocumentMarkup(source string) bool {
	l := html.NewLexer(parse.NewInputString(source))
	for {
		tt, _ := l.Next()
		switch tt {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken:
			switch strings.ToLower(string(l.Text())) {
			case "html", "head", "body":
				return true
			}
		}
	}
}
