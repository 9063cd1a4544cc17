// File: internal/publish/publish_test.go
package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/api/schemas"
)

// fakeChecks records every Checks API call instead of hitting the network.
type fakeChecks struct {
	createErr error
	updateErr error

	created []github.CreateCheckRunOptions
	updated []github.UpdateCheckRunOptions
}

func (f *fakeChecks) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, *github.Response, error) {
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	f.created = append(f.created, opts)
	return &github.CheckRun{ID: github.Int64(42)}, nil, nil
}

func (f *fakeChecks) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, *github.Response, error) {
	if f.updateErr != nil {
		return nil, nil, f.updateErr
	}
	f.updated = append(f.updated, opts)
	return &github.CheckRun{ID: github.Int64(checkRunID)}, nil, nil
}

func newTestPublisher(t *testing.T, checks ChecksService) *Publisher {
	t.Helper()
	p, err := New(checks, "codewarden", "fixture", zaptest.NewLogger(t))
	require.NoError(t, err)
	// Tests should not sleep between batches.
	p.limiter.SetLimit(1e6)
	return p
}

func violationAt(i int, sev schemas.Severity) schemas.Violation {
	return schemas.Violation{
		RuleID:      "no-console-log",
		RuleName:    "No Console Logging",
		Category:    schemas.CategoryStyle,
		Severity:    sev,
		FilePath:    fmt.Sprintf("src/file%d.js", i),
		Line:        i + 1,
		Suggestion:  "Remove the console call.",
		Explanation: "Console output leaks into production logs.",
	}
}

func resultWith(violations []schemas.Violation) *schemas.AuditResult {
	return &schemas.AuditResult{
		RunID:         "run-1",
		Root:          "/repo",
		Started:       time.Now(),
		Violations:    violations,
		Summary:       schemas.Summarize(violations),
		FilesScanned:  len(violations),
		RulesExecuted: 1,
	}
}

func TestPublishBatchesAnnotations(t *testing.T) {
	t.Parallel()
	// -- Setup --
	violations := make([]schemas.Violation, 0, 120)
	for i := 0; i < 120; i++ {
		violations = append(violations, violationAt(i, schemas.SeverityLow))
	}
	checks := &fakeChecks{}
	p := newTestPublisher(t, checks)

	// -- Execution --
	err := p.Publish(context.Background(), resultWith(violations), "abc123", false)
	require.NoError(t, err)

	// -- Assertions --
	require.Len(t, checks.created, 1)
	assert.Equal(t, "abc123", checks.created[0].HeadSHA)
	assert.Equal(t, "in_progress", checks.created[0].GetStatus())

	// Three annotation batches (50 + 50 + 20) plus the completing update.
	require.Len(t, checks.updated, 4)
	assert.Len(t, checks.updated[0].Output.Annotations, 50)
	assert.Len(t, checks.updated[1].Output.Annotations, 50)
	assert.Len(t, checks.updated[2].Output.Annotations, 20)

	final := checks.updated[3]
	assert.Equal(t, "completed", final.GetStatus())
	assert.Equal(t, "success", final.GetConclusion())
}

func TestPublishConclusionFollowsFailureDecision(t *testing.T) {
	t.Parallel()
	checks := &fakeChecks{}
	p := newTestPublisher(t, checks)

	violations := []schemas.Violation{violationAt(0, schemas.SeverityCritical)}
	err := p.Publish(context.Background(), resultWith(violations), "def456", true)
	require.NoError(t, err)

	final := checks.updated[len(checks.updated)-1]
	assert.Equal(t, "failure", final.GetConclusion())
}

func TestPublishAnnotationShape(t *testing.T) {
	t.Parallel()
	checks := &fakeChecks{}
	p := newTestPublisher(t, checks)

	v := violationAt(0, schemas.SeverityCritical)
	v.Line = 0 // Findings without a line still need a pinned annotation.
	v.Snippet = "console.log(secret)"
	err := p.Publish(context.Background(), resultWith([]schemas.Violation{v}), "aaa111", true)
	require.NoError(t, err)

	require.Len(t, checks.updated[0].Output.Annotations, 1)
	a := checks.updated[0].Output.Annotations[0]
	assert.Equal(t, "src/file0.js", a.GetPath())
	assert.Equal(t, 1, a.GetStartLine())
	assert.Equal(t, 1, a.GetEndLine())
	assert.Equal(t, "failure", a.GetAnnotationLevel())
	assert.Contains(t, a.GetTitle(), "no-console-log")
	assert.Contains(t, a.GetMessage(), "Remove the console call.")
	assert.Equal(t, "console.log(secret)", a.GetRawDetails())
}

func TestPublishLevelMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		severity schemas.Severity
		level    string
	}{
		{schemas.SeverityCritical, "failure"},
		{schemas.SeverityHigh, "failure"},
		{schemas.SeverityMedium, "warning"},
		{schemas.SeverityLow, "notice"},
		{schemas.SeveritySuggestion, "notice"},
	}
	for _, tc := range cases {
		t.Run(string(tc.severity), func(t *testing.T) {
			a := annotationFor(violationAt(0, tc.severity))
			assert.Equal(t, tc.level, a.GetAnnotationLevel())
		})
	}
}

func TestPublishPropagatesCreateFailure(t *testing.T) {
	t.Parallel()
	checks := &fakeChecks{createErr: errors.New("403 forbidden")}
	p := newTestPublisher(t, checks)

	err := p.Publish(context.Background(), resultWith(nil), "abc123", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating check run")
}

func TestPublishRequiresIdentity(t *testing.T) {
	t.Parallel()
	_, err := New(&fakeChecks{}, "", "repo", zaptest.NewLogger(t))
	require.Error(t, err)

	_, err = NewFromToken("", "o", "r", zaptest.NewLogger(t))
	require.Error(t, err)

	p := newTestPublisher(t, &fakeChecks{})
	err = p.Publish(context.Background(), resultWith(nil), "", false)
	require.Error(t, err)
}

func TestSummaryMarkdown(t *testing.T) {
	t.Parallel()
	violations := []schemas.Violation{
		violationAt(0, schemas.SeverityCritical),
		violationAt(1, schemas.SeverityLow),
	}
	md := summaryMarkdown(resultWith(violations), true)
	assert.Contains(t, md, "Audit **failed**")
	assert.Contains(t, md, "| CRITICAL | 1 |")
	assert.Contains(t, md, "| LOW | 1 |")
	assert.NotContains(t, md, "| MEDIUM |")
}
