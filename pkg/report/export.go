package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/auditor/pkg/checks"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the supported export formats.
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// Exporter renders a run to a writer.
type Exporter interface {
	Export(ctx context.Context, run *checks.Run, w io.Writer) error
}

// NewExporter returns the exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextExporter(), nil
	case FormatJSON:
		return NewJSONExporter(true), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// runDocument is the JSON shape of an exported run.
type runDocument struct {
	*checks.Run
	Summary checks.Summary `json:"summary"`
}

// JSONExporter exports runs as a JSON object with a summary.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export implements Exporter.
func (e *JSONExporter) Export(ctx context.Context, run *checks.Run, w io.Writer) error {
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(runDocument{Run: run, Summary: run.Summary()}); err != nil {
		return NewExportError(FormatJSON, len(run.Outcomes), err)
	}
	return nil
}

// CSVExporter exports one row per outcome.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// CSVHeader is the header row written by CSVExporter.
var CSVHeader = []string{
	"run_id", "check_id", "kind", "code", "message",
	"count", "fix", "query", "error", "duration_ms",
}

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, run *checks.Run, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(CSVHeader); err != nil {
			return NewExportError(FormatCSV, len(run.Outcomes), err)
		}
	}

	for _, o := range run.Outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			run.ID,
			o.CheckID,
			string(o.Kind),
			o.Code,
			o.Message,
			strconv.Itoa(o.Count),
			o.Fix,
			o.Query,
			o.Error,
			strconv.FormatInt(o.Duration.Milliseconds(), 10),
		}
		if err := writer.Write(row); err != nil {
			return NewExportError(FormatCSV, len(run.Outcomes), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError(FormatCSV, len(run.Outcomes), err)
	}
	return nil
}

// TextExporter renders a human readable table for terminals.
type TextExporter struct{}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export implements Exporter.
func (e *TextExporter) Export(ctx context.Context, run *checks.Run, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CHECK\tKIND\tCODE\tCOUNT\tMESSAGE")
	for _, o := range run.Outcomes {
		count := strconv.Itoa(o.Count)
		if o.Kind == checks.KindQueryError {
			count = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.CheckID, o.Kind, o.Code, count, o.Message)
		if o.Fix != "" {
			fmt.Fprintf(tw, "\t\t\t\tfix: %s\n", o.Fix)
		}
		if o.Error != "" {
			fmt.Fprintf(tw, "\t\t\t\tcause: %s\n", o.Error)
		}
	}
	if err := tw.Flush(); err != nil {
		return NewExportError(FormatText, len(run.Outcomes), err)
	}

	sum := run.Summary()
	_, err := fmt.Fprintf(w, "\nrun %s: %d checks, %d triggered, %d clear, %d failed (%s)\n",
		run.ID, sum.Total, sum.Multi, sum.None, sum.QueryError,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if err != nil {
		return NewExportError(FormatText, len(run.Outcomes), err)
	}
	return nil
}

// WriterSink renders every run to a writer with an Exporter.
type WriterSink struct {
	w        io.Writer
	exporter Exporter
}

// NewWriterSink creates a sink writing runs to w.
func NewWriterSink(w io.Writer, exporter Exporter) *WriterSink {
	return &WriterSink{w: w, exporter: exporter}
}

// Report implements Sink.
func (s *WriterSink) Report(ctx context.Context, run *checks.Run) error {
	return s.exporter.Export(ctx, run, s.w)
}
