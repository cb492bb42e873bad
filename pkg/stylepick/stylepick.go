package stylepick

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"stylepick/internal/config"
	"stylepick/internal/css"
	"stylepick/internal/html"
	"stylepick/internal/matcher"
	"stylepick/internal/merge"
	"stylepick/internal/workspace"
)

// Placeholder is shown instead of rules when there is no usable stylesheet
const Placeholder = "/* No stylesheet found */"

// ErrNotHTML is returned for documents which are not HTML files
var ErrNotHTML = errors.New("not an HTML file")

// Editor connects element selection, rule matching and write back
type Editor struct {
	config     *config.Config
	cssParser  *css.Parser
	htmlParser *html.Parser
	matcher    *matcher.Matcher
	store      *workspace.Store
	log        *zap.Logger
}

// New creates a new editor with the given configuration
func New(cfg *config.Config, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	root := cfg.Workspace.Root
	if root != "" {
		root = filepath.Clean(root)
	}
	return &Editor{
		config:     cfg,
		cssParser:  css.NewParser(log),
		htmlParser: html.NewParser(log),
		matcher: matcher.New(matcher.Options{
			IgnoreStatePseudo: cfg.Match.IgnoreStatePseudo,
			PseudoElements:    cfg.Match.PseudoElements,
		}, log),
		store: workspace.New(workspace.Options{
			Root:          root,
			Fallback:      cfg.Workspace.FallbackStylesheets,
			SkipUnchanged: cfg.Workspace.SkipUnchanged,
		}, log),
		log: log,
	}
}

// Page is a parsed HTML file together with its element list. Element
// references are resolved against this list only.
type Page struct {
	Path     string
	Document *html.Document
	Elements *html.ElementList
}

// IsHTML checks file extension
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Open reads and parses an HTML file
func (e *Editor) Open(path string) (*Page, error) {
	if !IsHTML(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, path)
	}
	doc, err := e.htmlParser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &Page{Path: path, Document: doc, Elements: doc.Elements()}, nil
}

// Select parses HTML text and returns its element list
func (e *Editor) Select(htmlText string) (*html.ElementList, error) {
	doc, err := e.htmlParser.Parse(htmlText)
	if err != nil {
		return nil, err
	}
	return doc.Elements(), nil
}

// Match returns rules of cssText applying to the referenced element. Empty
// text is not an error, it has no rules.
func (e *Editor) Match(list *html.ElementList, ref html.Ref, cssText string) ([]*css.Node, error) {
	target, err := list.Resolve(ref)
	if err != nil {
		return nil, err
	}
	sheet, err := e.cssParser.Parse(cssText)
	if err != nil {
		return nil, err
	}
	return e.matcher.Match(sheet, target), nil
}

// RulesResult is what Rules found for one element
type RulesResult struct {
	Element     html.Record
	Stylesheets []string
	Rules       []*css.Node
	// CSS is the text presented for editing, Placeholder when no stylesheet
	// was found
	CSS string
}

// Stylesheets returns the stylesheets in scope for a page
func (e *Editor) Stylesheets(ctx context.Context, page *Page) ([]string, error) {
	return e.store.Discover(ctx, page.Path, page.Document.StylesheetLinks())
}

// Rules returns the rules of the page stylesheets which apply to the
// referenced element. When paths is empty stylesheets are discovered.
func (e *Editor) Rules(ctx context.Context, page *Page, ref html.Ref, paths []string) (*RulesResult, error) {
	target, err := page.Elements.Resolve(ref)
	if err != nil {
		return nil, err
	}
	records := page.Elements.Records()
	res := &RulesResult{Element: records[ref.Index]}

	if len(paths) == 0 {
		paths, err = e.Stylesheets(ctx, page)
		if errors.Is(err, workspace.ErrNoStylesheet) {
			e.log.Info("No stylesheet in scope", zap.String("file", page.Path))
			res.CSS = Placeholder
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to discover stylesheets: %w", err)
		}
	}
	res.Stylesheets = paths

	sources, err := e.store.Read(ctx, paths)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(sources))
	for _, src := range sources {
		texts = append(texts, src.Text)
	}

	sheet, err := e.cssParser.Parse(strings.Join(texts, "\n"))
	if err != nil {
		return nil, err
	}
	res.Rules = e.matcher.Match(sheet, target)
	res.CSS = (&css.Stylesheet{Nodes: res.Rules}).String()
	return res, nil
}

// ApplyResult describes write back of one stylesheet
type ApplyResult struct {
	Path    string
	Report  merge.Report
	Changed bool
	Outcome workspace.Outcome
	Text    string
}

// Apply merges edited rules into the page stylesheets. Stylesheets are read
// again at this point, not reused from Rules. Nothing is written if any text
// fails to parse or when dryRun is set. A failure to write one file does not
// prevent writing others, the returned error combines all failures.
func (e *Editor) Apply(ctx context.Context, page *Page, editedText string, paths []string, dryRun bool) ([]ApplyResult, error) {
	edited, err := e.cssParser.Parse(editedText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edited rules: %w", err)
	}

	if len(paths) == 0 {
		if paths, err = e.Stylesheets(ctx, page); err != nil {
			return nil, err
		}
	}
	sources, err := e.store.Read(ctx, paths)
	if err != nil {
		return nil, err
	}

	files := make([]merge.File, 0, len(sources))
	for _, src := range sources {
		sheet, err := e.cssParser.Parse(src.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stylesheet %s: %w", src.Path, err)
		}
		files = append(files, merge.File{Path: src.Path, Sheet: sheet})
	}

	merged := merge.MergeFiles(files, edited, 0, e.log)

	results := make([]ApplyResult, len(merged))
	var writes []workspace.Source
	var slots []int
	for i, m := range merged {
		results[i] = ApplyResult{Path: m.Path, Report: m.Report, Changed: m.Changed, Outcome: workspace.Unchanged}
		if !m.Changed {
			continue
		}
		results[i].Text = m.Sheet.String()
		writes = append(writes, workspace.Source{Path: m.Path, Text: results[i].Text})
		slots = append(slots, i)
	}
	if dryRun || len(writes) == 0 {
		return results, nil
	}

	outcomes, err := e.store.Write(ctx, writes)
	for j, o := range outcomes {
		results[slots[j]].Outcome = o
	}
	return results, err
}
