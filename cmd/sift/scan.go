package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sift/sift/internal/config"
	"github.com/sift/sift/internal/logging"
	"github.com/sift/sift/internal/policy"
	"github.com/sift/sift/internal/rules"
	"github.com/spf13/cobra"
)

type scanFlags struct {
	configPath string
	format     string
	ruleIDs    []string
	mode       string
	failOnFlag bool
}

// scanLine is one JSONL output record.
type scanLine struct {
	Source  string `json:"source"`
	Verdict string `json:"verdict"`
	rules.Match
}

func newScanCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan files or stdin against the configured rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.format != "text" && flags.format != "json" {
				return fmt.Errorf("unknown format %q", flags.format)
			}
			cfg, err := loadConfig(flags.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if flags.mode != "" {
				if flags.mode != config.ModeReport && flags.mode != config.ModeEnforce {
					return fmt.Errorf("unknown mode %q", flags.mode)
				}
				cfg.Policy.Mode = flags.mode
			}
			if len(args) == 0 {
				args = []string{"-"}
			}

			worst, err := runScan(cmd.Context(), cfg, flags, args, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if worst == policy.VerdictBlocked || (flags.failOnFlag && worst == policy.VerdictFlagged) {
				return &exitError{code: 2}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text|json")
	cmd.Flags().StringSliceVar(&flags.ruleIDs, "rules", nil, "Only run these rule ids")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Override policy mode: report|enforce")
	cmd.Flags().BoolVar(&flags.failOnFlag, "fail-on-flag", false, "Exit 2 when any source is flagged")

	return cmd
}

func runScan(ctx context.Context, cfg *config.Config, flags scanFlags, sources []string, stdin io.Reader, out io.Writer) (policy.Verdict, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := rules.BuildEngine(cfg)
	if err != nil {
		return "", err
	}

	findings, closeFindings, err := openFindings(cfg)
	if err != nil {
		return "", err
	}
	defer func() { _ = closeFindings() }()

	opts := rules.ScanOptions{
		ChunkSize:        cfg.Scan.ChunkSize,
		MaxBufferedBytes: cfg.Scan.MaxBufferedBytes,
		RuleIDs:          flags.ruleIDs,
	}

	worst := policy.VerdictClean
	for _, source := range sources {
		start := time.Now()
		result, err := scanSource(ctx, engine, source, stdin, opts)
		if err != nil {
			return "", fmt.Errorf("scan %s: %w", source, err)
		}
		verdict := policy.Decide(cfg.Policy.Mode, result.Score, cfg.Policy.Threshold)
		worst = policy.Worst(worst, verdict)

		scanID := logging.NewScanID()
		if err := findings.Write(logging.FromResult(scanID, sourceName(source), string(verdict), result, start.UTC())...); err != nil {
			return "", err
		}
		slog.Debug("scanned",
			"source", sourceName(source),
			"scan_id", scanID,
			"bytes", result.Bytes,
			"score", result.Score,
			"verdict", verdict,
			"duration", time.Since(start),
		)
		if len(result.Truncated) > 0 {
			slog.Warn("match limit reached", "source", sourceName(source), "rules", result.Truncated)
		}

		if err := printResult(out, flags.format, sourceName(source), verdict, result); err != nil {
			return "", err
		}
	}
	return worst, nil
}

func scanSource(ctx context.Context, engine *rules.Engine, source string, stdin io.Reader, opts rules.ScanOptions) (rules.Result, error) {
	if source == "-" {
		return engine.ScanReader(ctx, stdin, opts)
	}
	file, err := os.Open(source)
	if err != nil {
		return rules.Result{}, err
	}
	defer file.Close()
	return engine.ScanReader(ctx, file, opts)
}

func sourceName(source string) string {
	if source == "-" {
		return "stdin"
	}
	return source
}

func printResult(out io.Writer, format, source string, verdict policy.Verdict, result rules.Result) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		for _, m := range result.Matches {
			if err := enc.Encode(scanLine{Source: source, Verdict: string(verdict), Match: m}); err != nil {
				return err
			}
		}
		return nil
	}

	for _, m := range result.Matches {
		if _, err := fmt.Fprintf(out, "%s:%d-%d %s %q %q\n", source, m.Start, m.End, m.RuleID, m.Pattern, m.Evidence); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%s: score=%d verdict=%s matches=%d\n", source, result.Score, verdict, len(result.Matches))
	return err
}
