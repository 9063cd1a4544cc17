// File: internal/report/checkstyle.go
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/codewarden/warden-cli/api/schemas"
)

// checkstyleSeverities maps violation severities onto the three checkstyle
// levels understood by most CI annotators.
var checkstyleSeverities = map[schemas.Severity]string{
	schemas.SeverityCritical:   "error",
	schemas.SeverityHigh:       "error",
	schemas.SeverityMedium:     "warning",
	schemas.SeverityLow:        "info",
	schemas.SeveritySuggestion: "info",
}

// checkstyleReporter emits Checkstyle XML, one <file> element per audited
// file that produced violations.
type checkstyleReporter struct {
	writer io.WriteCloser
}

func (r *checkstyleReporter) Write(result *schemas.AuditResult) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("checkstyle")
	root.CreateAttr("version", "4.3")

	// Files appear in first-violation order; violations keep engine order.
	byFile := GroupByFile(result.Violations)
	var fileOrder []string
	seen := make(map[string]struct{})
	for _, v := range result.Violations {
		if _, ok := seen[v.FilePath]; !ok {
			seen[v.FilePath] = struct{}{}
			fileOrder = append(fileOrder, v.FilePath)
		}
	}

	for _, path := range fileOrder {
		fileEl := root.CreateElement("file")
		fileEl.CreateAttr("name", path)
		for _, v := range byFile[path] {
			errEl := fileEl.CreateElement("error")
			if v.Line > 0 {
				errEl.CreateAttr("line", strconv.Itoa(v.Line))
			}
			if v.Column > 0 {
				errEl.CreateAttr("column", strconv.Itoa(v.Column))
			}
			errEl.CreateAttr("severity", checkstyleSeverities[v.Severity])
			errEl.CreateAttr("message", fmt.Sprintf("%s (fix: %s)", v.Explanation, v.Suggestion))
			errEl.CreateAttr("source", v.RuleID)
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("writing checkstyle report: %w", err)
	}
	return nil
}

func (r *checkstyleReporter) Close() error { return r.writer.Close() }
