package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs digests in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the digest in Markdown format.
func (w *MarkdownWriter) Write(digest *Digest) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, digest)

	// Targets overview
	w.writeOverview(md, digest)

	// Per-target record tables
	w.writeTargets(md, digest)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the digest header with corpus totals.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, digest *Digest) {
	md.H1("LeakHound Digest")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", digest.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Targets", strconv.Itoa(len(digest.Targets))},
			{"Leak Records", strconv.Itoa(digest.TotalLeaks)},
			{"Watches", strconv.Itoa(digest.WatchCount)},
		},
	})
	md.PlainText("")
}

// writeOverview writes the per-target summary table, pie chart, and
// health alert.
func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, digest *Digest) {
	md.H2("Targets")
	md.PlainText("")

	if len(digest.Targets) == 0 {
		md.PlainText("No targets registered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(digest.Targets))
	for i, td := range digest.Targets {
		lastRun := "-"
		if td.LastRun != nil {
			lastRun = td.LastRun.Format("2006-01-02 15:04")
		}
		rows[i] = []string{
			td.Target.Name,
			string(td.Target.Kind),
			w.enabledText(td.Target.Enabled),
			strconv.Itoa(len(td.Leaks)),
			strconv.Itoa(td.RunsTotal),
			strconv.Itoa(td.RunsFailed),
			lastRun,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Target", "Kind", "Enabled", "Records", "Runs", "Failed", "Last Run"},
		Rows:   rows,
	})
	md.PlainText("")

	if digest.HasLeaks() {
		w.writePieChart(md, digest)
	}

	w.writeAlert(md, digest)
}

// enabledText renders the enabled flag for the overview table.
func (w *MarkdownWriter) enabledText(enabled bool) string {
	if enabled {
		return "✅"
	}
	return "⏸️"
}

// writePieChart writes a mermaid pie chart of records per target.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, digest *Digest) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Leak Records per Target"),
		piechart.WithShowData(true),
	)

	for _, td := range digest.Targets {
		if len(td.Leaks) > 0 {
			chart.LabelAndIntValue(td.Target.Name, uint64(len(td.Leaks)))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on run health.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, digest *Digest) {
	failing := digest.FailingTargets()
	switch {
	case len(failing) > 0:
		md.Warningf(
			"%d target(s) are failing every run and have produced no usable fetches recently.",
			len(failing),
		)
	case digest.TotalLeaks > 0:
		md.Notef("Corpus holds %d leak record(s) across %d target(s).",
			digest.TotalLeaks, len(digest.Targets))
	default:
		md.Tip("No leak records harvested yet.")
	}
	md.PlainText("")
}

// writeTargets writes one record table per target that has records.
func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, digest *Digest) {
	md.H2("Records")
	md.PlainText("")

	if !digest.HasLeaks() {
		md.PlainText("No leak records stored.")
		md.PlainText("")
		return
	}

	for _, td := range digest.Targets {
		if len(td.Leaks) == 0 {
			continue
		}

		md.PlainText("### " + td.Target.Name)
		md.PlainText("")
		w.writeLeakTable(md, td)
	}
}

// writeLeakTable writes the record table for one target.
func (w *MarkdownWriter) writeLeakTable(md *markdown.Markdown, td TargetDigest) {
	rows := make([][]string, len(td.Leaks))
	for i, leak := range td.Leaks {
		country := leak.Country
		if country == "" {
			country = "-"
		}
		size := leak.AmountOfData
		if size == "" {
			size = "-"
		}
		info := leak.Information
		if info == "" {
			info = "-"
		}

		rows[i] = []string{
			leak.Company,
			country,
			leak.FoundAt.Format("2006-01-02"),
			size,
			truncateString(info, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Company", "Country", "Found", "Size", "Information"},
		Rows:   rows,
	})
	md.PlainText("")

	// Full descriptions fold away behind details blocks
	for _, leak := range td.Leaks {
		if len(leak.Information) > 60 {
			md.Details(leak.Company, leak.Information)
		}
	}
	md.PlainText("")
}

// writeFooter writes the digest footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Digest generated by [LeakHound](https://github.com/leakhound/leakhound)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
