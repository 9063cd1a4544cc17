// File: internal/assist/assist_test.go
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/api/schemas"
)

// fakeGenerator records the prompt it is handed and returns a canned reply.
type fakeGenerator struct {
	reply  string
	err    error
	prompt string
	closed bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeGenerator) Close() error {
	f.closed = true
	return nil
}

func auditResult(violations []schemas.Violation) *schemas.AuditResult {
	return &schemas.AuditResult{
		RunID:         "run-1",
		Root:          "/repo",
		Started:       time.Now(),
		Violations:    violations,
		Summary:       schemas.Summarize(violations),
		FilesScanned:  3,
		RulesExecuted: 2,
	}
}

func TestExplainBuildsDigestPrompt(t *testing.T) {
	t.Parallel()
	// -- Setup --
	gen := &fakeGenerator{reply: "  Fix the secret first.\n"}
	advisor, err := New(gen, zaptest.NewLogger(t))
	require.NoError(t, err)

	violations := []schemas.Violation{{
		RuleID:      "no-hardcoded-secrets",
		RuleName:    "No Hardcoded Secrets",
		Category:    schemas.CategorySecurity,
		Severity:    schemas.SeverityCritical,
		FilePath:    "src/db.js",
		Line:        14,
		Snippet:     `apiKey = "sk-live"`,
		Suggestion:  "Move the key into the environment.",
		Explanation: "Credentials in source end up in every clone.",
	}}

	// -- Execution --
	advice, err := advisor.Explain(context.Background(), auditResult(violations))

	// -- Assertions --
	require.NoError(t, err)
	assert.Equal(t, "Fix the secret first.", advice, "advice is trimmed")
	assert.Contains(t, gen.prompt, "no-hardcoded-secrets")
	assert.Contains(t, gen.prompt, "src/db.js:14")
	assert.Contains(t, gen.prompt, "[CRITICAL]")
	assert.Contains(t, gen.prompt, "Credentials in source end up in every clone.")
	assert.Contains(t, gen.prompt, `apiKey = \"sk-live\"`)
}

func TestExplainCleanRunSkipsModel(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{reply: "should not be called"}
	advisor, err := New(gen, zaptest.NewLogger(t))
	require.NoError(t, err)

	advice, err := advisor.Explain(context.Background(), auditResult(nil))
	require.NoError(t, err)
	assert.Contains(t, advice, "clean")
	assert.Empty(t, gen.prompt, "no prompt sent for a clean run")
}

func TestExplainDigestIsCapped(t *testing.T) {
	t.Parallel()
	violations := make([]schemas.Violation, 0, maxDigestViolations+15)
	for i := 0; i < maxDigestViolations+15; i++ {
		violations = append(violations, schemas.Violation{
			RuleID:      "no-console-log",
			RuleName:    "No Console Logging",
			Category:    schemas.CategoryStyle,
			Severity:    schemas.SeverityLow,
			FilePath:    fmt.Sprintf("src/f%d.js", i),
			Line:        1,
			Suggestion:  "s",
			Explanation: "e",
		})
	}
	gen := &fakeGenerator{reply: "ok"}
	advisor, err := New(gen, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = advisor.Explain(context.Background(), auditResult(violations))
	require.NoError(t, err)

	assert.Equal(t, maxDigestViolations, strings.Count(gen.prompt, "- ["))
	assert.Contains(t, gen.prompt, "15 more findings omitted")
}

func TestExplainPropagatesGeneratorError(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	advisor, err := New(gen, zaptest.NewLogger(t))
	require.NoError(t, err)

	violations := []schemas.Violation{{
		RuleID: "r", RuleName: "R", Category: schemas.CategoryStyle,
		Severity: schemas.SeverityLow, FilePath: "a.js",
		Suggestion: "s", Explanation: "e",
	}}
	_, err = advisor.Explain(context.Background(), auditResult(violations))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAdvisorCloseReleasesGenerator(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{}
	advisor, err := New(gen, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, advisor.Close())
	assert.True(t, gen.closed)
}

func TestNewRequiresGenerator(t *testing.T) {
	t.Parallel()
	_, err := New(nil, zaptest.NewLogger(t))
	require.Error(t, err)
}
