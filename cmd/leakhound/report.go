package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a digest of the stored leak corpus",
		Long: `Report assembles a digest of every target's harvested records and run
health and renders it as text, JSON, or Markdown.

Examples:
  # Human-readable digest on stdout
  leakhound report

  # Markdown digest written to a file
  leakhound report --markdown -o digest.md

  # JSON digest for tooling
  leakhound report --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON digest (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown digest (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write digest to specified file path (creates directories if needed)")
	cmd.Flags().Bool("show-empty", false,
		"Include targets with no records in the text digest")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	digest, err := report.NewBuilder(a.store).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble digest: %w", err)
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	var output io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Digests can carry sensitive source material, keep them owner-only.
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := selectWriter(cmd, output)
	if err != nil {
		return err
	}
	_, err = writer.Write(digest)
	return err
}

// selectWriter picks the digest writer matching the format flags.
func selectWriter(cmd *cobra.Command, output io.Writer) (report.Writer, error) {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	switch {
	case jsonOut:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), nil
	case markdownOut:
		return report.NewMarkdownWriter(output), nil
	}

	showEmpty, err := cmd.Flags().GetBool("show-empty")
	if err != nil {
		return nil, err
	}
	return report.NewSimpleWriter(output, report.WithShowEmpty(showEmpty)), nil
}
