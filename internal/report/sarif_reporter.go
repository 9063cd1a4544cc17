// File: internal/report/sarif_reporter.go
package report

import (
	"fmt"
	"io"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/report/sarif"
)

// Tool identification constants for SARIF output.
const (
	toolName     = "warden"
	toolInfoURI  = "https://github.com/codewarden/warden-cli"
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// sarifLevels maps violation severities onto the three SARIF levels.
var sarifLevels = map[schemas.Severity]sarif.Level{
	schemas.SeverityCritical:   sarif.LevelError,
	schemas.SeverityHigh:       sarif.LevelError,
	schemas.SeverityMedium:     sarif.LevelWarning,
	schemas.SeverityLow:        sarif.LevelNote,
	schemas.SeveritySuggestion: sarif.LevelNote,
}

// SARIFReporter accumulates results into a SARIF 2.1.0 log and serializes it
// on Close. Each distinct rule id appearing in the violations is declared
// once in the driver's rule table.
type SARIFReporter struct {
	writer    io.WriteCloser
	log       *sarif.Log
	ruleIndex map[string]struct{}
}

// NewSARIFReporter creates a reporter that writes one SARIF log to writer.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	return &SARIFReporter{
		writer: writer,
		log: &sarif.Log{
			Version: sarifVersion,
			Schema:  sarifSchema,
			Runs: []*sarif.Run{{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           toolName,
						Version:        pString(toolVersion),
						InformationURI: pString(toolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			}},
		},
		ruleIndex: make(map[string]struct{}),
	}
}

// Write appends one result's violations to the pending log.
func (r *SARIFReporter) Write(result *schemas.AuditResult) error {
	run := r.log.Runs[0]
	for _, v := range result.Violations {
		r.declareRule(v)

		loc := &sarif.Location{
			PhysicalLocation: &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: pString(v.FilePath)},
			},
		}
		if v.Line > 0 {
			loc.PhysicalLocation.Region = &sarif.Region{StartLine: pInt(v.Line)}
			if v.Column > 0 {
				loc.PhysicalLocation.Region.StartColumn = pInt(v.Column)
			}
		}

		message := v.Explanation
		if v.Suggestion != "" {
			message = fmt.Sprintf("%s Fix: %s", v.Explanation, v.Suggestion)
		}

		run.Results = append(run.Results, &sarif.Result{
			RuleID:    v.RuleID,
			Level:     sarifLevels[v.Severity],
			Message:   &sarif.Message{Text: pString(message)},
			Locations: []*sarif.Location{loc},
		})
	}
	return nil
}

// declareRule adds the violation's rule to the driver table once.
func (r *SARIFReporter) declareRule(v schemas.Violation) {
	if _, seen := r.ruleIndex[v.RuleID]; seen {
		return
	}
	r.ruleIndex[v.RuleID] = struct{}{}

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               v.RuleID,
		Name:             pString(v.RuleName),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(v.RuleName)},
		Properties: &sarif.PropertyBag{
			"category": string(v.Category),
			"severity": string(v.Severity),
		},
	})
}

// Close serializes the accumulated log and closes the writer.
func (r *SARIFReporter) Close() error {
	data, err := json.MarshalIndent(r.log, "", "  ")
	if err != nil {
		r.writer.Close()
		return fmt.Errorf("encoding sarif log: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		r.writer.Close()
		return fmt.Errorf("writing sarif log: %w", err)
	}
	return r.writer.Close()
}

func pString(s string) *string { return &s }
func pInt(n int) *int          { return &n }
