package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/leakhound/leakhound/internal/model"
)

// SimpleWriter outputs human-readable text digests.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether targets with no records are shown.
	showEmpty bool

	// verbose enables per-record detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show targets with no records.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-record details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the digest in human-readable format.
func (w *SimpleWriter) Write(digest *Digest) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, digest)
	w.writeTargets(&sb, digest)
	w.writeFooter(&sb, digest)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the digest header with corpus totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, digest *Digest) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LEAKHOUND DIGEST\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Generated:    %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Targets:      %d\n", len(digest.Targets)))
	sb.WriteString(fmt.Sprintf("Leak Records: %d\n", digest.TotalLeaks))
	sb.WriteString(fmt.Sprintf("Watches:      %d\n", digest.WatchCount))
	sb.WriteString("\n")
}

// writeTargets writes one section per target with its records and run
// health.
func (w *SimpleWriter) writeTargets(sb *strings.Builder, digest *Digest) {
	for _, td := range digest.Targets {
		if len(td.Leaks) == 0 && !w.showEmpty {
			continue
		}

		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("TARGET: %s (%s)\n", td.Target.Name, td.Target.Kind))
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("URL:      %s\n", td.Target.URL))
		sb.WriteString(fmt.Sprintf("Enabled:  %t\n", td.Target.Enabled))
		sb.WriteString(fmt.Sprintf("Records:  %d\n", len(td.Leaks)))
		sb.WriteString(fmt.Sprintf("Runs:     %d (%d failed)\n", td.RunsTotal, td.RunsFailed))
		if td.LastRun != nil {
			sb.WriteString(fmt.Sprintf("Last Run: %s\n", td.LastRun.Format("2006-01-02 15:04:05 MST")))
		}
		sb.WriteString("\n")

		for _, leak := range td.Leaks {
			sb.WriteString(fmt.Sprintf("  * %s", leak.Company))
			if leak.Country != "" {
				sb.WriteString(fmt.Sprintf(" [%s]", leak.Country))
			}
			if leak.AmountOfData != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", leak.AmountOfData))
			}
			sb.WriteString(fmt.Sprintf(" - found %s\n", leak.FoundAt.Format("2006-01-02")))

			if w.verbose {
				w.writeLeakDetail(sb, leak)
			}
		}
		if len(td.Leaks) > 0 {
			sb.WriteString("\n")
		}
	}
}

// writeLeakDetail writes the verbose per-record block.
func (w *SimpleWriter) writeLeakDetail(sb *strings.Builder, leak model.LeakRecord) {
	if leak.Information != "" {
		sb.WriteString(fmt.Sprintf("      Info:    %s\n", truncateString(leak.Information, 120)))
	}
	if leak.Comment != "" {
		sb.WriteString(fmt.Sprintf("      Comment: %s\n", truncateString(leak.Comment, 120)))
	}
	if leak.SourceURL != "" {
		sb.WriteString(fmt.Sprintf("      Source:  %s\n", leak.SourceURL))
	}
	for _, link := range leak.DownloadLinks {
		sb.WriteString(fmt.Sprintf("      Link:    %s\n", link))
	}
}

// writeFooter writes the digest footer with health warnings.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, digest *Digest) {
	if failing := digest.FailingTargets(); len(failing) > 0 {
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("WARNING: %d target(s) failing every run: %s\n",
			len(failing), strings.Join(failing, ", ")))
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
