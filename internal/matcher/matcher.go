package matcher

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	nethtml "golang.org/x/net/html"

	"stylepick/internal/css"
	"stylepick/internal/html"
)

// Options controls how selectors are prepared before evaluation. The zero
// value evaluates selectors as written.
type Options struct {
	// IgnoreStatePseudo drops user action pseudo-classes (:hover, :focus...)
	// so rules styling interactive states are reported for their element.
	IgnoreStatePseudo bool
	// PseudoElements lets p::before match the p it is generated for.
	PseudoElements bool
}

// DefaultOptions returns the options used when nothing is configured: every
// reported rule has a selector that matches the element as it is.
func DefaultOptions() Options {
	return Options{}
}

// SelectorEvaluationError describes a selector which could not be compiled or
// evaluated. It only affects the one selector.
type SelectorEvaluationError struct {
	Selector string
	Err      error
}

func (e *SelectorEvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorEvaluationError) Unwrap() error {
	return e.Err
}

// Matcher finds stylesheet rules applying to a single element
type Matcher struct {
	log  *zap.Logger
	opts Options
}

// New creates a new matcher
func New(opts Options, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{log: log.Named("matcher"), opts: opts}
}

// Match returns top-level style rules of sheet with at least one selector
// matching target, in stylesheet order.
//
// Selectors are evaluated against a detached copy of target and its
// descendants only. Ancestors and siblings of target are not visible, so
// selectors which depend on them (".card h1" for the h1) do not match.
func (m *Matcher) Match(sheet *css.Stylesheet, target html.Node) []*css.Node {
	if target == nil {
		return nil
	}
	root := html.Project(target)

	var matched []*css.Node
	for _, rule := range sheet.Rules() {
		for _, selector := range rule.Selectors {
			ok, err := m.matches(root, selector)
			if err != nil {
				m.log.Warn("Selector ignored", zap.String("rule", rule.Key()), zap.Error(err))
				continue
			}
			if ok {
				matched = append(matched, rule)
				break
			}
		}
	}

	m.log.Debug("Matched rules",
		zap.String("element", target.TagName()),
		zap.Int("rules", len(matched)))
	return matched
}

// Matches reports whether a single selector matches target
func (m *Matcher) Matches(selector string, target html.Node) (bool, error) {
	return m.matches(html.Project(target), selector)
}

func (m *Matcher) matches(root *nethtml.Node, selector string) (ok bool, err error) {
	prepared := rewriteSelector(selector, m.opts.IgnoreStatePseudo, m.opts.PseudoElements)

	sel, err := cascadia.ParseWithPseudoElement(prepared)
	if err != nil {
		return false, &SelectorEvaluationError{Selector: selector, Err: err}
	}
	if sel.PseudoElement() != "" && !m.opts.PseudoElements {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &SelectorEvaluationError{Selector: selector, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return sel.Match(root), nil
}
