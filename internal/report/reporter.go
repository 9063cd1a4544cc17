// File: internal/report/reporter.go
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/codewarden/warden-cli/api/schemas"
)

// Reporter writes a finished audit result to an output sink.
type Reporter interface {
	// Write renders the result. Implementations may buffer until Close.
	Write(result *schemas.AuditResult) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close, so stdout is never
// closed by a reporter.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format, writing to outputPath or to
// stdout when the path is empty or "stdout".
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	isStdout := outputPath == "" || outputPath == "stdout"
	if isStdout {
		writer = nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("creating output file %s: %w", outputPath, err)
		}
		writer = f
	}

	r, err := ForWriter(format, writer, toolVersion)
	if err != nil && !isStdout {
		writer.Close()
	}
	return r, err
}

// ForWriter creates a reporter over an explicit writer. The reporter takes
// ownership of the writer and closes it on Close.
func ForWriter(format string, writer io.WriteCloser, toolVersion string) (Reporter, error) {
	switch format {
	case "text", "":
		return &textReporter{writer: writer}, nil
	case "json":
		return &jsonReporter{writer: writer}, nil
	case "sarif":
		return NewSARIFReporter(writer, toolVersion), nil
	case "checkstyle":
		return &checkstyleReporter{writer: writer}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// textReporter renders the human report.
type textReporter struct {
	writer io.WriteCloser
}

func (r *textReporter) Write(result *schemas.AuditResult) error {
	if _, err := io.WriteString(r.writer, Text(result)); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func (r *textReporter) Close() error { return r.writer.Close() }

// jsonReporter emits the machine-parseable serialization.
type jsonReporter struct {
	writer io.WriteCloser
}

func (r *jsonReporter) Write(result *schemas.AuditResult) error {
	data, err := ToJSON(result)
	if err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.writer.Write(data); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.writer.Close() }
