package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/ai"
	"github.com/bump-advisor/pkg/annotate"
	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/config"
	"github.com/bump-advisor/pkg/marker"
	"github.com/bump-advisor/pkg/matcher"
	"github.com/bump-advisor/pkg/vcs"
	"github.com/bump-advisor/pkg/verdict"
)

// Outcome summarizes one run against a pull request. Reports holds one entry
// per bumped package, in the order the pull request lists them.
type Outcome struct {
	PR          int
	Skipped     bool
	Reports     []annotate.Report
	BodyUpdated bool
	Commented   bool
}

type Analyzer struct {
	prs        vcs.PullRequestClient
	advisories advisory.Source
	provider   ai.Provider
	annotator  *annotate.Annotator
	config     *config.Config
}

// New wires an Analyzer. provider may be nil to skip the risk narrative.
func New(prs vcs.PullRequestClient, advisories advisory.Source, provider ai.Provider, cfg *config.Config) *Analyzer {
	return &Analyzer{
		prs:        prs,
		advisories: advisories,
		provider:   provider,
		annotator:  annotate.NewAnnotator(prs, cfg.DryRun),
		config:     cfg,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, number int) (Outcome, error) {
	out := Outcome{PR: number}

	pr, err := a.prs.GetPullRequest(ctx, number)
	if err != nil {
		return out, err
	}

	bumps, err := bump.AllFromPullRequest(pr.Title, pr.Body)
	if err != nil {
		return out, fmt.Errorf("pull request #%d: %w", number, err)
	}
	out.Reports = make([]annotate.Report, len(bumps))
	for i, b := range bumps {
		if b.Ecosystem == "" {
			b.Ecosystem = bump.EcosystemFromBranch(pr.HeadRef)
		}
		out.Reports[i].Bump = b
		slog.Info("analyzing bump", "pr", number, "package", b.Package, "from", b.From, "to", b.To, "ecosystem", b.Ecosystem)
	}

	if marker.ExistsIn(pr.Body, marker.Analyzed) && !a.config.Force {
		slog.Info("pull request already analyzed, skipping", "pr", number)
		out.Skipped = true
		return out, nil
	}

	resolved := make([][]advisory.Advisory, len(out.Reports))
	g, gctx := errgroup.WithContext(ctx)
	for i := range out.Reports {
		r := &out.Reports[i]
		g.Go(func() error {
			b := r.Bump
			advs, err := a.advisories.ListForPackage(gctx, b.Ecosystem, b.Package, b.From)
			if err != nil {
				return fmt.Errorf("fetch advisories for %s: %w", b.Package, err)
			}
			advs = a.filterIgnored(advs)
			closed, err := matcher.Resolved(b.Package, b.From, b.To, advs)
			if err != nil {
				return fmt.Errorf("pull request #%d: %w", number, err)
			}
			matches, err := matcher.FindResolved(b.Package, b.From, b.To, advs)
			if err != nil {
				return fmt.Errorf("pull request #%d: %w", number, err)
			}
			resolved[i] = closed
			r.Matches = matches
			r.Severity = advisory.MaxSeverity(closed)
			slog.Info("advisories matched", "pr", number, "package", b.Package, "candidates", len(advs), "resolved", len(matches))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	if a.provider != nil {
		a.assessRisk(ctx, number, pr.Body, out.Reports, resolved)
	}

	// Comments go first: the analyzed marker in the body is the completion
	// record, so it is written last.
	if a.config.Annotate.Comment && a.provider != nil {
		for _, r := range out.Reports {
			posted, err := a.annotator.PostAnalysis(ctx, number, r)
			if err != nil {
				return out, fmt.Errorf("post analysis: %w", err)
			}
			out.Commented = out.Commented || posted
		}
	}
	if a.config.Annotate.Body {
		out.BodyUpdated, err = a.annotator.AnnotateBody(ctx, number, out.Reports)
		if err != nil {
			return out, fmt.Errorf("annotate body: %w", err)
		}
	}
	return out, nil
}

// assessRisk fills the narrative and verdict of every report. The prompt
// carries the advisories each bump resolves and the latest earlier analysis
// of the same package.
func (a *Analyzer) assessRisk(ctx context.Context, number int, body string, reports []annotate.Report, resolved [][]advisory.Advisory) {
	comments, err := a.prs.ListComments(ctx, number)
	if err != nil {
		slog.Warn("could not list comments, analyzing without history", "pr", number, "error", err)
	}

	var g errgroup.Group
	for i := range reports {
		r := &reports[i]
		g.Go(func() error {
			r.Narrative = a.narrate(ctx, ai.PromptInput{
				Bump:       r.Bump,
				Body:       body,
				Advisories: resolved[i],
				Previous:   annotate.PreviousAnalysis(comments, r.Bump.Package),
			})
			v := verdict.Extract(r.Narrative)
			r.Verdict = &v
			r.Provider = a.provider.Name()
			slog.Info("risk verdict", "pr", number, "package", r.Bump.Package, "level", string(v.Level), "source", string(v.Source))
			return nil
		})
	}
	_ = g.Wait()
}

// narrate never fails the run; a provider error becomes a failed narrative.
func (a *Analyzer) narrate(ctx context.Context, in ai.PromptInput) string {
	prompt, err := ai.RenderPrompt(in)
	if err != nil {
		slog.Warn("could not render prompt", "error", err)
		return "Analysis failed: " + err.Error()
	}
	text, err := a.provider.Analyze(ctx, prompt)
	if err != nil {
		slog.Warn("risk narrative unavailable", "provider", a.provider.Name(), "error", err)
		return "Analysis failed: " + err.Error()
	}
	return text
}

func (a *Analyzer) filterIgnored(advs []advisory.Advisory) []advisory.Advisory {
	kept := make([]advisory.Advisory, 0, len(advs))
	for _, adv := range advs {
		ids := append([]string{adv.ID}, adv.CVEs...)
		if a.config.IsIgnored(adv.Package, ids...) {
			slog.Debug("advisory ignored by config", "alert", adv.AlertID, "id", adv.ID)
			continue
		}
		kept = append(kept, adv)
	}
	return kept
}
