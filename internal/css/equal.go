package css

import (
	"fmt"
	"strings"

	dcss "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Equivalent reports whether two stylesheet texts carry the same rules in the
// same order. Formatting, comments and selector spacing are ignored.
func Equivalent(a, b string) (bool, error) {
	sa, err := parser.Parse(a)
	if err != nil {
		return false, fmt.Errorf("failed to parse stylesheet: %w", err)
	}
	sb, err := parser.Parse(b)
	if err != nil {
		return false, fmt.Errorf("failed to parse stylesheet: %w", err)
	}
	return rulesEquivalent(sa.Rules, sb.Rules), nil
}

func rulesEquivalent(a, b []*dcss.Rule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ruleEquivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

func ruleEquivalent(a, b *dcss.Rule) bool {
	if a.Kind != b.Kind || !strings.EqualFold(a.Name, b.Name) {
		return false
	}
	if a.Kind == dcss.QualifiedRule {
		if Key(normalizeAll(a.Selectors)) != Key(normalizeAll(b.Selectors)) {
			return false
		}
	} else if stripSpace(a.Prelude) != stripSpace(b.Prelude) {
		return false
	}

	if len(a.Declarations) != len(b.Declarations) {
		return false
	}
	for i, da := range a.Declarations {
		db := b.Declarations[i]
		if !strings.EqualFold(da.Property, db.Property) ||
			da.Important != db.Important ||
			collapseSpace(da.Value) != collapseSpace(db.Value) {
			return false
		}
	}
	return rulesEquivalent(a.Rules, b.Rules)
}

func normalizeAll(selectors []string) []string {
	out := make([]string, 0, len(selectors))
	for _, s := range selectors {
		if s = NormalizeSelector(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
