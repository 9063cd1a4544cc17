// File: internal/publish/publish.go

// Package publish posts finished audit results to GitHub as check runs so
// violations show up inline on pull requests. The Checks API caps output at
// fifty annotations per request, so large runs are flushed in batches against
// the same check run.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codewarden/warden-cli/api/schemas"
)

// maxAnnotationsPerCall is the GitHub Checks API limit per request.
const maxAnnotationsPerCall = 50

const checkRunName = "warden audit"

// ChecksService is the slice of the GitHub Checks API the publisher needs.
// *github.ChecksService satisfies it.
type ChecksService interface {
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, *github.Response, error)
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, *github.Response, error)
}

// Publisher creates one check run per audit and attaches every violation as
// an annotation.
type Publisher struct {
	checks  ChecksService
	owner   string
	repo    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a publisher over an existing Checks service. The limiter keeps
// the annotation batches well inside GitHub's secondary rate limits.
func New(checks ChecksService, owner, repo string, logger *zap.Logger) (*Publisher, error) {
	if checks == nil {
		return nil, fmt.Errorf("checks service is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		checks:  checks,
		owner:   owner,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger.Named("Publish"),
	}, nil
}

// NewFromToken builds a publisher backed by an authenticated GitHub client.
func NewFromToken(token, owner, repo string, logger *zap.Logger) (*Publisher, error) {
	if token == "" {
		return nil, fmt.Errorf("a GitHub token is required")
	}
	client := github.NewClient(nil).WithAuthToken(token)
	return New(client.Checks, owner, repo, logger)
}

// Publish creates the check run for headSHA, streams annotations in batches,
// and completes the run with a conclusion derived from the failure decision.
func (p *Publisher) Publish(ctx context.Context, result *schemas.AuditResult, headSHA string, shouldFail bool) error {
	if headSHA == "" {
		return fmt.Errorf("a head commit SHA is required")
	}

	title := fmt.Sprintf("%d violation(s) in %d file(s)", result.Summary.Total, result.FilesScanned)
	summary := summaryMarkdown(result, shouldFail)

	annotations := make([]*github.CheckRunAnnotation, 0, len(result.Violations))
	for _, v := range result.Violations {
		annotations = append(annotations, annotationFor(v))
	}

	run, _, err := p.checks.CreateCheckRun(ctx, p.owner, p.repo, github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: headSHA,
		Status:  github.String("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   github.String(title),
			Summary: github.String(summary),
		},
	})
	if err != nil {
		return fmt.Errorf("creating check run: %w", err)
	}
	p.logger.Info("Check run created.",
		zap.Int64("id", run.GetID()),
		zap.String("sha", headSHA),
		zap.Int("annotations", len(annotations)))

	// Annotations accumulate on the run across updates, so each batch only
	// carries its own slice.
	for start := 0; start < len(annotations); start += maxAnnotationsPerCall {
		end := start + maxAnnotationsPerCall
		if end > len(annotations) {
			end = len(annotations)
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting on rate limiter: %w", err)
		}
		_, _, err := p.checks.UpdateCheckRun(ctx, p.owner, p.repo, run.GetID(), github.UpdateCheckRunOptions{
			Name: checkRunName,
			Output: &github.CheckRunOutput{
				Title:       github.String(title),
				Summary:     github.String(summary),
				Annotations: annotations[start:end],
			},
		})
		if err != nil {
			return fmt.Errorf("uploading annotations %d-%d: %w", start, end, err)
		}
	}

	conclusion := "success"
	if shouldFail {
		conclusion = "failure"
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting on rate limiter: %w", err)
	}
	_, _, err = p.checks.UpdateCheckRun(ctx, p.owner, p.repo, run.GetID(), github.UpdateCheckRunOptions{
		Name:        checkRunName,
		Status:      github.String("completed"),
		Conclusion:  github.String(conclusion),
		CompletedAt: &github.Timestamp{Time: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("completing check run: %w", err)
	}

	p.logger.Info("Check run completed.", zap.String("conclusion", conclusion))
	return nil
}

// annotationLevels maps violation severity onto the three levels the Checks
// API understands.
var annotationLevels = map[schemas.Severity]string{
	schemas.SeverityCritical:   "failure",
	schemas.SeverityHigh:       "failure",
	schemas.SeverityMedium:     "warning",
	schemas.SeverityLow:        "notice",
	schemas.SeveritySuggestion: "notice",
}

func annotationFor(v schemas.Violation) *github.CheckRunAnnotation {
	level, ok := annotationLevels[v.Severity]
	if !ok {
		level = "warning"
	}
	// Annotations need a concrete line; findings without one pin to line 1.
	line := v.Line
	if line < 1 {
		line = 1
	}
	message := v.Suggestion
	if v.Explanation != "" {
		message += "\n\n" + v.Explanation
	}
	a := &github.CheckRunAnnotation{
		Path:            github.String(v.FilePath),
		StartLine:       github.Int(line),
		EndLine:         github.Int(line),
		AnnotationLevel: github.String(level),
		Title:           github.String(fmt.Sprintf("%s (%s)", v.RuleName, v.RuleID)),
		Message:         github.String(message),
	}
	if v.Snippet != "" {
		a.RawDetails = github.String(v.Snippet)
	}
	return a
}

func summaryMarkdown(result *schemas.AuditResult, shouldFail bool) string {
	verdict := "passed"
	if shouldFail {
		verdict = "failed"
	}
	s := fmt.Sprintf("Audit **%s**: %d violation(s) across %d scanned file(s), %d rule(s) executed.\n\n",
		verdict, result.Summary.Total, result.FilesScanned, result.RulesExecuted)
	s += "| Severity | Count |\n| --- | --- |\n"
	for _, sev := range schemas.SeverityOrder {
		if n := result.Summary.BySeverity[sev]; n > 0 {
			s += fmt.Sprintf("| %s | %d |\n", sev, n)
		}
	}
	return s
}
