package merge

import (
	"go.uber.org/zap"

	"stylepick/internal/css"
)

// File is one stylesheet taking part in a multi-file merge
type File struct {
	Path  string
	Sheet *css.Stylesheet
}

// FileResult is the outcome of a multi-file merge for a single file
type FileResult struct {
	Path    string
	Sheet   *css.Stylesheet
	Report  Report
	Changed bool
}

// MergeFiles merges edited into each of files. A rule goes to every file
// already holding a rule with its key. Rules whose key no file holds go to
// files[fallback] only. Files which receive nothing are returned unchanged
// with Changed set to false.
func MergeFiles(files []File, edited *css.Stylesheet, fallback int, log *zap.Logger) []FileResult {
	if len(files) == 0 {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if fallback < 0 || fallback >= len(files) {
		log.Warn("Fallback stylesheet out of range, using first", zap.Int("fallback", fallback), zap.Int("files", len(files)))
		fallback = 0
	}

	keys := make([]map[string]bool, len(files))
	for i, f := range files {
		keys[i] = make(map[string]bool)
		for _, r := range f.Sheet.Rules() {
			keys[i][r.Key()] = true
		}
	}

	subsets := make([]*css.Stylesheet, len(files))
	for i := range subsets {
		subsets[i] = &css.Stylesheet{}
	}
	for _, n := range nodesOf(edited) {
		if n.Kind != css.KindRule {
			continue
		}
		key := n.Key()
		placed := false
		for i := range files {
			if key != "" && keys[i][key] {
				subsets[i].Nodes = append(subsets[i].Nodes, n)
				placed = true
			}
		}
		if !placed {
			// rules without selectors end up here to be reported as dropped
			subsets[fallback].Nodes = append(subsets[fallback].Nodes, n)
		}
	}

	results := make([]FileResult, len(files))
	for i, f := range files {
		flog := log.With(zap.String("file", f.Path))
		if len(subsets[i].Nodes) == 0 {
			flog.Debug("No edited rules for file")
			results[i] = FileResult{Path: f.Path, Sheet: f.Sheet}
			continue
		}
		sheet, report := Merge(f.Sheet, subsets[i], flog)
		results[i] = FileResult{
			Path:    f.Path,
			Sheet:   sheet,
			Report:  report,
			Changed: report.Changed(),
		}
	}
	return results
}
