package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sift/sift/internal/config"
	"github.com/sift/sift/internal/logging"
	"github.com/sift/sift/internal/rules"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// exitError carries a process exit status without being an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	var verr *config.ValidationError
	switch {
	case errors.As(err, &exitErr):
		return exitErr.code
	case errors.As(err, &verr):
		for _, msg := range verr.Problems {
			fmt.Fprintln(stderr, msg)
		}
	default:
		fmt.Fprintln(stderr, err)
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sift",
		Short:         "Sift multi-pattern content scanner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// loadConfig loads and validates a config file, then installs its logger.
func loadConfig(path string, stderr io.Writer) (*config.Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openFindings returns a nil log when the config names no findings file.
func openFindings(cfg *config.Config) (*logging.FindingLog, func() error, error) {
	if cfg.Logging.FindingsLog == "" {
		return nil, func() error { return nil }, nil
	}
	return logging.OpenFindingLog(cfg.ResolvePath(cfg.Logging.FindingsLog))
}

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and compile its rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			engine, err := rules.BuildEngine(cfg)
			if err != nil {
				return err
			}

			nodes := 0
			for _, info := range engine.Info() {
				nodes += info.Nodes
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d rules, %d nodes\n", len(engine.Rules), nodes)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version=%s commit=%s buildDate=%s\n", version, commit, buildDate)
		},
	}
}
