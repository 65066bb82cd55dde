// Package report assembles and renders digests of the stored leak corpus.
//
// The Builder queries the store for targets, records, and run health and
// produces a Digest. Writers render that digest in different formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// Design decision: We separate digest assembly from rendering so that
// new output formats can be added without touching the store queries.
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
