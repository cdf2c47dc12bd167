package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sift/sift/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var since string
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a findings log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("input path is required")
			}

			reader := report.Reader{}
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid since duration: %w", err)
				}
				reader.Since = time.Now().Add(-dur)
			}

			findings, err := reader.Read(inputPath)
			if err != nil {
				return err
			}

			data, err := report.Render(report.Summarize(findings), format)
			if err != nil {
				return err
			}
			return report.WriteOutput(outPath, data, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Path to findings JSONL")
	cmd.Flags().StringVar(&since, "since", "", "Only include entries newer than this duration (e.g. 10m)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|md|json")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")

	return cmd
}
