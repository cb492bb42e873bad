package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"stylepick/internal/html"
	"stylepick/internal/state"
	"stylepick/pkg/stylepick"
)

const testPage = `<html><head><link rel="stylesheet" href="site.css"></head>
<body><div class="card"><h1 id="title">Hi</h1></div></body></html>`

const testCSS = `.card { padding: 4px }
#title { font-weight: bold }
`

func workspaceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(testPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.css"), []byte(testCSS), 0o644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(state.ContextWithEnv(context.Background()), append([]string{"stylepick", "-c", quietConfig(t)}, args...))
	return out.String(), err
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stylepick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nlogging:\n  console:\n    level: none\n"), 0o644))
	return path
}

func TestElements_Text(t *testing.T) {
	dir := workspaceDir(t)
	out, err := run(t, "", "elements", filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	assert.Contains(t, out, "generation "+html.Generation(testPage).String())
	assert.Contains(t, out, "    5  h1#title\n")
	assert.Contains(t, out, "    4  div.card\n")
}

func TestElements_JSON(t *testing.T) {
	dir := workspaceDir(t)
	out, err := run(t, "", "--format", "json", "elements", filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	var res elementsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, html.Generation(testPage).String(), res.Generation)
	require.Len(t, res.Elements, 6)
	assert.Equal(t, html.Record{Index: 5, TagName: "h1", ID: "title"}, res.Elements[5])
}

func TestElements_NotHTML(t *testing.T) {
	dir := workspaceDir(t)
	_, err := run(t, "", "elements", filepath.Join(dir, "site.css"))
	assert.ErrorIs(t, err, stylepick.ErrNotHTML)
}

func TestRules(t *testing.T) {
	dir := workspaceDir(t)
	out, err := run(t, "", "rules", filepath.Join(dir, "index.html"), "5")
	require.NoError(t, err)
	assert.Equal(t, "#title {\n  font-weight: bold;\n}\n", out)
}

func TestRules_YAML(t *testing.T) {
	dir := workspaceDir(t)
	out, err := run(t, "", "-f", "yaml", "rules", "--generation", html.Generation(testPage).String(), filepath.Join(dir, "index.html"), "4")
	require.NoError(t, err)

	var res rulesOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "div", res.Element.TagName)
	assert.Equal(t, []string{filepath.Join(dir, "site.css")}, res.Stylesheets)
	assert.Contains(t, res.CSS, ".card {")
}

func TestRules_StaleGeneration(t *testing.T) {
	dir := workspaceDir(t)
	stale := html.Generation("<p>older version</p>").String()
	_, err := run(t, "", "rules", "--generation", stale, filepath.Join(dir, "index.html"), "1")
	assert.ErrorIs(t, err, html.ErrStaleSelection)

	_, err = run(t, "", "rules", filepath.Join(dir, "index.html"), "42")
	assert.ErrorIs(t, err, html.ErrStaleSelection)

	_, err = run(t, "", "rules", filepath.Join(dir, "index.html"), "x")
	assert.Error(t, err)
}

func TestRules_BrokenStylesheet(t *testing.T) {
	dir := workspaceDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.css"), []byte(".card { padding 4px }"), 0o644))

	out, err := run(t, "", "rules", filepath.Join(dir, "index.html"), "4")
	require.NoError(t, err)
	assert.Equal(t, stylepick.Placeholder+"\n", out)
}

func TestApply(t *testing.T) {
	dir := workspaceDir(t)
	out, err := run(t, "#title { font-weight: 300 }", "apply", filepath.Join(dir, "index.html"), "-")
	require.NoError(t, err)
	assert.Contains(t, out, "written")
	assert.Contains(t, out, "(replaced 1, appended 0)")

	data, err := os.ReadFile(filepath.Join(dir, "site.css"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "font-weight: 300;")
	assert.Contains(t, string(data), "padding: 4px;")
}

func TestApply_DryRun(t *testing.T) {
	dir := workspaceDir(t)
	edited := filepath.Join(dir, "edited.css")
	require.NoError(t, os.WriteFile(edited, []byte(".new { margin: 0 }"), 0o644))

	out, err := run(t, "", "apply", "--dry-run", filepath.Join(dir, "index.html"), edited)
	require.NoError(t, err)
	assert.Contains(t, out, "/* "+filepath.Join(dir, "site.css")+" */")
	assert.Contains(t, out, ".new {\n  margin: 0;\n}")

	data, err := os.ReadFile(filepath.Join(dir, "site.css"))
	require.NoError(t, err)
	assert.Equal(t, testCSS, string(data))
}

func TestDumpConfig(t *testing.T) {
	out, err := run(t, "", "dumpconfig", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1")

	dest := filepath.Join(t.TempDir(), "actual.yaml")
	_, err = run(t, "", "dumpconfig", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level: none")
}
