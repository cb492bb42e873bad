package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"stylepick/internal/css"
)

// WriteError reports a stylesheet which could not be written
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Source is stylesheet text as found on disk
type Source struct {
	Path string
	Text string
}

// Read loads stylesheets in the given order
func (s *Store) Read(ctx context.Context, paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read stylesheet %s: %w", p, err)
		}
		sources = append(sources, Source{Path: p, Text: string(data)})
	}
	return sources, nil
}

// Outcome describes what happened to one file during Write
type Outcome int

const (
	// Written means new content was stored
	Written Outcome = iota
	// Unchanged means the content on disk was already equivalent
	Unchanged
	// Failed means the write did not happen
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case Unchanged:
		return "unchanged"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Write stores every source and returns per-file outcomes in input order.
// A failing file does not stop the others, all failures are combined into
// the returned error as *WriteError values.
func (s *Store) Write(ctx context.Context, sources []Source) ([]Outcome, error) {
	var (
		outcomes = make([]Outcome, len(sources))
		errs     error
	)
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(sources); j++ {
				outcomes[j] = Failed
			}
			return outcomes, multierr.Append(errs, err)
		}
		if s.opts.SkipUnchanged && s.unchanged(src) {
			s.log.Debug("Skipping unchanged stylesheet", zap.String("file", src.Path))
			outcomes[i] = Unchanged
			continue
		}
		if err := writeFile(src.Path, src.Text); err != nil {
			s.log.Error("Unable to write stylesheet", zap.String("file", src.Path), zap.Error(err))
			outcomes[i] = Failed
			errs = multierr.Append(errs, &WriteError{Path: src.Path, Err: err})
			continue
		}
		s.log.Info("Stylesheet written", zap.String("file", src.Path), zap.Int("bytes", len(src.Text)))
		outcomes[i] = Written
	}
	return outcomes, errs
}

func (s *Store) unchanged(src Source) bool {
	current, err := os.ReadFile(src.Path)
	if err != nil {
		return false
	}
	eq, err := css.Equivalent(string(current), src.Text)
	if err != nil {
		s.log.Debug("Unable to compare stylesheets", zap.String("file", src.Path), zap.Error(err))
		return false
	}
	return eq
}

// writeFile replaces the file content keeping its permissions
func writeFile(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stylepick-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
