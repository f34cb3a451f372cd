package main

import (
	"fmt"
	"os"

	"github.com/google/go-github/v60/github"
	"github.com/spf13/cobra"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/ai"
	"github.com/bump-advisor/pkg/analyzer"
	"github.com/bump-advisor/pkg/matcher"
	"github.com/bump-advisor/pkg/vcs"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a dependency update pull request and annotate it",
		RunE:  runAnalyze,
	}

	cmd.Flags().Int("pr", 0, "Pull request number")
	cmd.Flags().String("repo", os.Getenv("GITHUB_REPOSITORY"), "GitHub repo (owner/repo)")
	cmd.Flags().String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for API access")
	cmd.Flags().String("advisories", "", "Read advisories from a JSON file instead of Dependabot alerts")
	cmd.Flags().Bool("dry-run", false, "Print annotations without writing to the pull request")
	cmd.Flags().Bool("force", false, "Re-run the analysis even if the pull request is already annotated")
	cmd.Flags().Bool("no-comment", false, "Do not post the risk analysis comment")
	cmd.Flags().String("ai-provider", "", "AI provider: claude | gemini | openai | none")
	cmd.Flags().String("ai-model", "", "Model passed to the AI provider")
	cmd.Flags().Duration("ai-timeout", 0, "Timeout for the AI provider")
	_ = cmd.MarkFlagRequired("pr")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	number, _ := cmd.Flags().GetInt("pr")

	if cfg.Token == "" && !cfg.DryRun {
		return fmt.Errorf("a GitHub token is required; set GITHUB_TOKEN or --github-token")
	}
	owner, repo, err := vcs.ParseGitHubRepo(cfg.Repo)
	if err != nil {
		return err
	}

	client := github.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}

	var source advisory.Source = advisory.NewDependabotSource(client, owner, repo, cfg.Alerts.State)
	if path, _ := cmd.Flags().GetString("advisories"); path != "" {
		fs, err := advisory.LoadFile(path)
		if err != nil {
			return err
		}
		source = fs
	}

	provider, err := ai.New(cfg.AI.Provider, cfg.AI.Model, cfg.AI.Timeout)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "dry-run mode: the pull request will not be modified")
	}

	a := analyzer.New(vcs.NewGitHubClient(client, owner, repo), source, provider, cfg)
	out, err := a.Analyze(cmd.Context(), number)
	if err != nil {
		return err
	}
	if out.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "#%d already analyzed; use --force to run again\n", number)
		return nil
	}

	resolutions := make([]matcher.Resolution, 0, len(out.Reports))
	for _, r := range out.Reports {
		resolutions = append(resolutions, matcher.Resolution{Bump: r.Bump, Matches: r.Matches})
	}
	if err := report(cmd, cfg, resolutions); err != nil {
		return err
	}
	for _, r := range out.Reports {
		if r.Verdict != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "risk %s: %s\n", r.Bump.Package, r.Verdict)
		}
	}
	return nil
}
