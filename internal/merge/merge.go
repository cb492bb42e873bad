// Package merge writes an edited set of style rules back into stylesheets.
//
// Rules are identified by their selector key. A rule of the edited set
// replaces the first rule of the original with the same key, in place, or is
// appended when no such rule exists. Everything else in the original, other
// rules, comments and at-rules, keeps its position and content. Renaming a
// selector therefore produces a new rule and leaves the old one untouched.
package merge

import (
	"go.uber.org/zap"

	"stylepick/internal/css"
)

// Report describes what a merge did
type Report struct {
	Replaced []string // keys replaced in place
	Appended []string // keys added at the end
	Dropped  int      // edited rules without selectors
}

// Changed reports whether any rule was written
func (r Report) Changed() bool {
	return len(r.Replaced) > 0 || len(r.Appended) > 0
}

// Merge returns a new stylesheet with edited rules merged into original.
// Neither argument is modified.
func Merge(original, edited *css.Stylesheet, log *zap.Logger) (*css.Stylesheet, Report) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("merge")

	out := &css.Stylesheet{}
	if original != nil {
		out = original.Clone()
	}

	slots := make(map[string]int)
	for i, n := range out.Nodes {
		if n.Kind != css.KindRule {
			continue
		}
		if _, ok := slots[n.Key()]; !ok {
			slots[n.Key()] = i
		}
	}

	var (
		report   Report
		replaced = make(map[string]bool)
	)
	for _, n := range nodesOf(edited) {
		if n.Kind != css.KindRule {
			log.Debug("Ignoring edited node", zap.Stringer("kind", n.Kind), zap.String("name", n.Name))
			continue
		}
		key := n.Key()
		if key == "" {
			log.Warn("Dropping edited rule without selectors", zap.Int("declarations", len(n.Declarations)))
			report.Dropped++
			continue
		}
		if pos, ok := slots[key]; ok {
			out.Nodes[pos] = n.Clone()
			if !replaced[key] {
				replaced[key] = true
				report.Replaced = append(report.Replaced, key)
			}
			continue
		}
		out.Nodes = append(out.Nodes, n.Clone())
		report.Appended = append(report.Appended, key)
	}

	log.Debug("Merged rules",
		zap.Strings("replaced", report.Replaced),
		zap.Strings("appended", report.Appended),
		zap.Int("dropped", report.Dropped))
	return out, report
}

func nodesOf(s *css.Stylesheet) []*css.Node {
	if s == nil {
		return nil
	}
	return s.Nodes
}
