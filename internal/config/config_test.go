package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Version)
	assert.False(t, cfg.Match.IgnoreStatePseudo)
	assert.False(t, cfg.Match.PseudoElements)
	assert.Equal(t, []string{"style.css", "styles.css", "main.css"}, cfg.Workspace.FallbackStylesheets)
	assert.True(t, cfg.Workspace.SkipUnchanged)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "normal", cfg.Logging.ConsoleLogger.Level)
	assert.Equal(t, "none", cfg.Logging.FileLogger.Level)
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stylepick.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: 1
match:
  ignore_state_pseudo: true
workspace:
  fallback_stylesheets: [site.css]
output:
  format: json
`), 0o644))

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.True(t, cfg.Match.IgnoreStatePseudo)
	assert.False(t, cfg.Match.PseudoElements, "values absent from the file keep defaults")
	assert.Equal(t, []string{"site.css"}, cfg.Workspace.FallbackStylesheets)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadConfiguration_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stylepick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nmatch:\n  fuzzy: true\n"), 0o644))

	_, err := LoadConfiguration(path)
	assert.Error(t, err)
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := map[string]string{
		"format":  "version: 1\noutput:\n  format: xml\n",
		"version": "version: 2\n",
		"level":   "version: 1\nlogging:\n  console:\n    level: loud\n",
		"file":    "version: 1\nlogging:\n  file:\n    level: debug\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stylepick.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadConfiguration(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfiguration_MissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPrepareAndDump(t *testing.T) {
	data, err := Prepare()
	require.NoError(t, err)
	assert.Contains(t, string(data), "fallback_stylesheets")

	cfg, err := LoadConfiguration("")
	require.NoError(t, err)
	dump, err := Dump(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(dump), "format: text")
	assert.Contains(t, string(dump), "ignore_state_pseudo: false")
}

func TestLogger_ConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	conf := LoggingConfig{ConsoleLogger: ConsoleLoggerConfig{Level: "normal"}, FileLogger: LoggerConfig{Level: "none"}}
	log, err := conf.prepare(&buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), AppName)

	buf.Reset()
	conf.ConsoleLogger.Level = "none"
	log, err = conf.prepare(&buf)
	require.NoError(t, err)
	log.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestLogger_File(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "logs", "stylepick.log")
	conf := LoggingConfig{
		ConsoleLogger: ConsoleLoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: dest, MaxSize: 1},
	}
	log, err := conf.prepare(&bytes.Buffer{})
	require.NoError(t, err)

	log.Debug("to file")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
