package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bump-advisor/pkg/config"
	"github.com/bump-advisor/pkg/logging"
	"github.com/bump-advisor/pkg/matcher"
	"github.com/bump-advisor/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Before the commands are built: flag defaults read the environment.
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bump-advisor",
		Short:        "Tell which advisories a dependency bump resolves",
		Long:         `Matches dependency update pull requests against security advisories, records the resolved CVEs on the pull request and classifies an optional AI risk narrative.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", ".bump-advisor.yml", "Path to config file")
	flags.Bool("verbose", false, "Enable debug logging")
	flags.String("log-format", "text", "Log format: text | json")
	flags.String("output", "table", "Output format: json | sarif | table")
	flags.StringSlice("ignore-advisory", nil, "Advisory or CVE id to ignore (repeatable)")
	flags.String("severity", "", "Minimum severity: low | medium | high | critical")

	rootCmd.AddCommand(newAnalyzeCmd(), newMatchCmd(), newScanCmd())
	return rootCmd
}

// loadConfig layers the config file, then flags, and installs the logger.
func loadConfig(cmd *cobra.Command) *config.Config {
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("log-format")
	logging.Init(verbose, format)

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) || cmd.Flags().Changed("config") {
			slog.Warn("could not load config file, using defaults", "path", cfgPath, "error", err)
		}
		cfg = config.Default()
	}
	return config.MergeFlags(cfg, cmd.Flags())
}

func report(cmd *cobra.Command, cfg *config.Config, resolutions []matcher.Resolution) error {
	if err := reporter.New(cfg.Output, cmd.OutOrStdout()).Report(resolutions); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
