// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/observability"
)

// executeCommand runs a fresh root command with the given arguments and
// captures its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(observability.ResetForTest)

	rootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeProject creates a small Node-flavored tree with known findings.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"package.json": `{"name": "fixture", "dependencies": {"express": "^4.0.0"}}`,
		"src/server.js": "const express = require('express')\n" +
			"console.log('booting')\n",
		"src/db.js": "const apiKey = \"sk-live-1234567890abcdef\"\n",
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestVersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)

	out, err = executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "transmogrify")
	require.Error(t, err)
}

func TestAuditWritesReportFile(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "report.json")

	_, err := executeCommand(t, "audit", root,
		"--no-history", "--format", "json", "--output", output,
		"--fail-on-severity", "CRITICAL")
	// The fixture contains a hardcoded secret, so the threshold trips.
	require.ErrorIs(t, err, errAuditFailed)

	payload, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	assert.Contains(t, string(payload), "no-hardcoded-secrets")
	assert.Contains(t, string(payload), "no-console-log")
}

func TestAuditPassesUnderThreshold(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "report.json")

	_, err := executeCommand(t, "audit", root,
		"--no-history", "--format", "json", "--output", output,
		"--disable-rule", "no-hardcoded-secrets",
		"--fail-on-severity", "CRITICAL")
	require.NoError(t, err)

	payload, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	assert.NotContains(t, string(payload), "no-hardcoded-secrets")
}

func TestAuditRejectsInvalidSeverity(t *testing.T) {
	root := writeProject(t)
	_, err := executeCommand(t, "audit", root, "--no-history", "--min-severity", "APOCALYPTIC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--min-severity")
}

func TestRulesListsCatalog(t *testing.T) {
	root := writeProject(t)
	out, err := executeCommand(t, "rules", root)
	require.NoError(t, err)
	assert.Contains(t, out, "no-hardcoded-secrets")
	assert.Contains(t, out, "no-console-log")
	assert.Contains(t, out, "enabled")
}

func TestRulesReflectsDisabledConfiguration(t *testing.T) {
	root := writeProject(t)
	project := filepath.Join(root, ".warden.yaml")
	require.NoError(t, os.WriteFile(project, []byte("disabled_rules:\n  - no-console-log\n"), 0o644))

	out, err := executeCommand(t, "rules", root)
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
}

func TestReportRequiresSelector(t *testing.T) {
	root := writeProject(t)
	_, err := executeCommand(t, "report", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to render")
}

func TestAuditThenReportRoundTrip(t *testing.T) {
	// -- Setup --
	root := writeProject(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	projectConfig := "history:\n  enabled: true\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".warden.yaml"), []byte(projectConfig), 0o644))

	// -- Execution --
	_, err := executeCommand(t, "audit", root, "--format", "json",
		"--output", filepath.Join(t.TempDir(), "out.json"))
	require.NoError(t, err)

	listOut, err := executeCommand(t, "report", root, "--list")
	require.NoError(t, err)

	replayPath := filepath.Join(t.TempDir(), "replay.json")
	_, err = executeCommand(t, "report", root, "--last", "--format", "json", "--output", replayPath)
	require.NoError(t, err)

	// -- Assertions --
	replay, readErr := os.ReadFile(replayPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(replay), "no-hardcoded-secrets")
	assert.Contains(t, listOut, "RUN ID")
	assert.Contains(t, listOut, root)
}

func TestWatchRejectsMissingFeed(t *testing.T) {
	root := writeProject(t)
	_, err := executeCommand(t, "watch", root, "--feed", filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
}

func TestPublishNeedsCommit(t *testing.T) {
	// The fixture is not a git repository and no SHA is given.
	root := writeProject(t)
	_, err := executeCommand(t, "publish", root, "--owner", "o", "--repo", "r", "--token", "tkn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no commit to publish")
}

func TestExplainNeedsAPIKey(t *testing.T) {
	t.Setenv("WARDEN_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	root := writeProject(t)
	_, err := executeCommand(t, "explain", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestLoadConfigHonorsFileLoggingSection(t *testing.T) {
	t.Cleanup(observability.ResetForTest)
	observability.ResetForTest()

	root := t.TempDir()
	project := "logging:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".warden.yaml"), []byte(project), 0o644))

	opts := &rootOptions{logLevel: "warn", logFormat: "console"}
	opts.loadConfig(root, config.Layer{})
	assert.True(t, observability.GetLogger().Core().Enabled(zapcore.DebugLevel),
		"file-sourced level must take effect when the flag is left at its default")

	observability.ResetForTest()
	opts = &rootOptions{logLevel: "warn", logFormat: "console", logLevelSet: true}
	opts.loadConfig(root, config.Layer{})
	assert.False(t, observability.GetLogger().Core().Enabled(zapcore.DebugLevel),
		"an explicitly set --log-level still beats the file")
}
