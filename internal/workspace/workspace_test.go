package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"stylepick/internal/workspace"
)

func touch(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var fallback = []string{"style.css", "styles.css", "main.css"}

func TestDiscover_Links(t *testing.T) {
	dir := t.TempDir()
	page := touch(t, filepath.Join(dir, "site", "index.html"), "")
	a := touch(t, filepath.Join(dir, "site", "css", "a.css"), "")
	b := touch(t, filepath.Join(dir, "shared", "b.css"), "")
	c := touch(t, filepath.Join(dir, "root.css"), "")

	s := workspace.New(workspace.Options{Root: dir, Fallback: fallback}, zaptest.NewLogger(t))
	got, err := s.Discover(context.Background(), page, []string{
		"css/a.css?v=3",
		"https://cdn.example.com/x.css",
		"//cdn.example.com/y.css",
		"../shared/b.css#frag",
		"./css/a.css",
		"/root.css",
		"missing.css",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, got)
}

func TestDiscover_Fallback(t *testing.T) {
	dir := t.TempDir()
	page := touch(t, filepath.Join(dir, "index.html"), "")
	touch(t, filepath.Join(dir, "page10", "style.css"), "")
	touch(t, filepath.Join(dir, "page2", "style.css"), "")
	touch(t, filepath.Join(dir, "main.css"), "")
	touch(t, filepath.Join(dir, "other.css"), "")
	touch(t, filepath.Join(dir, "node_modules", "pkg", "style.css"), "")
	touch(t, filepath.Join(dir, ".cache", "style.css"), "")

	s := workspace.New(workspace.Options{Fallback: fallback}, nil)
	got, err := s.Discover(context.Background(), page, []string{"https://cdn.example.com/x.css"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "main.css"),
		filepath.Join(dir, "page2", "style.css"),
		filepath.Join(dir, "page10", "style.css"),
	}, got)
}

func TestDiscover_NoStylesheet(t *testing.T) {
	dir := t.TempDir()
	page := touch(t, filepath.Join(dir, "index.html"), "")

	_, err := workspace.New(workspace.Options{Fallback: fallback}, nil).Discover(context.Background(), page, nil)
	assert.ErrorIs(t, err, workspace.ErrNoStylesheet)
}

func TestDiscover_Cancelled(t *testing.T) {
	dir := t.TempDir()
	page := touch(t, filepath.Join(dir, "index.html"), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := workspace.New(workspace.Options{Fallback: fallback}, nil).Discover(ctx, page, []string{"a.css"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.css"), ".a{color:red}")
	s := workspace.New(workspace.Options{}, nil)

	sources, err := s.Read(context.Background(), []string{a})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, ".a{color:red}", sources[0].Text)

	outcomes, err := s.Write(context.Background(), []workspace.Source{{Path: a, Text: ".a {\n  color: green;\n}\n"}})
	require.NoError(t, err)
	assert.Equal(t, []workspace.Outcome{workspace.Written}, outcomes)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, ".a {\n  color: green;\n}\n", string(data))

	_, err = s.Read(context.Background(), []string{filepath.Join(dir, "missing.css")})
	assert.Error(t, err)
}

func TestStore_WriteErrorsAreCollected(t *testing.T) {
	dir := t.TempDir()
	good := touch(t, filepath.Join(dir, "good.css"), "")
	bad1 := filepath.Join(dir, "no", "such", "dir", "a.css")
	bad2 := filepath.Join(dir, "no", "such", "dir", "b.css")

	outcomes, err := workspace.New(workspace.Options{}, nil).Write(context.Background(), []workspace.Source{
		{Path: bad1, Text: ".a{}"},
		{Path: good, Text: ".g{}"},
		{Path: bad2, Text: ".b{}"},
	})
	require.Error(t, err)
	assert.Equal(t, []workspace.Outcome{workspace.Failed, workspace.Written, workspace.Failed}, outcomes)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	var we *workspace.WriteError
	require.ErrorAs(t, errs[0], &we)
	assert.Equal(t, bad1, we.Path)
	require.ErrorAs(t, errs[1], &we)
	assert.Equal(t, bad2, we.Path)

	data, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, ".g{}", string(data))
}

func TestStore_SkipUnchanged(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.css"), ".a{color:red}")

	s := workspace.New(workspace.Options{SkipUnchanged: true}, nil)
	outcomes, err := s.Write(context.Background(), []workspace.Source{{Path: a, Text: ".a {\n  color: red;\n}\n"}})
	require.NoError(t, err)
	assert.Equal(t, []workspace.Outcome{workspace.Unchanged}, outcomes)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, ".a{color:red}", string(data))
}
