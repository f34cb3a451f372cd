package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/marker"
	"github.com/bump-advisor/pkg/matcher"
	"github.com/bump-advisor/pkg/vcs"
	"github.com/bump-advisor/pkg/verdict"
)

// Report is everything one run concluded about a pull request.
type Report struct {
	Bump      bump.Bump
	Matches   []matcher.Match
	Verdict   *verdict.Verdict
	Narrative string
	Provider  string
	// Severity is the highest normalized severity among the resolved
	// advisories, empty when none carries one.
	Severity string
}

// AppendOnce appends section followed by a tag marker to doc, unless doc
// already carries that tag. The returned bool reports whether doc changed.
func AppendOnce(doc string, tag marker.Tag, payload any, section string) (string, bool, error) {
	if marker.ExistsIn(doc, tag) {
		return doc, false, nil
	}
	m, err := marker.Create(tag, payload)
	if err != nil {
		return doc, false, err
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(doc, "\n"))
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	if section != "" {
		b.WriteString(strings.TrimRight(section, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(m)
	b.WriteString("\n")
	return b.String(), true, nil
}

// Annotator writes run results back to a pull request. There is no locking:
// each write is preceded by a fresh read and a marker check, so two runs racing
// on the same pull request can still both append.
type Annotator struct {
	client vcs.PullRequestClient
	dryRun bool
}

func NewAnnotator(client vcs.PullRequestClient, dryRun bool) *Annotator {
	return &Annotator{
		client: client,
		dryRun: dryRun,
	}
}

type analyzedPackage struct {
	Package  string   `json:"package"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Resolved []string `json:"resolved"`
}

type analyzedPayload struct {
	Packages []analyzedPackage `json:"packages"`
}

// AnnotateBody appends one security section per report and the analyzed
// marker to the pull request description once. Bumps without a target-package
// marker in the body get one.
func (a *Annotator) AnnotateBody(ctx context.Context, number int, reports []Report) (bool, error) {
	pr, err := a.client.GetPullRequest(ctx, number)
	if err != nil {
		return false, err
	}

	targeted := make(map[string]bool)
	for _, p := range marker.ExtractAll(pr.Body, marker.TargetPackage) {
		targeted[p.String("package")] = true
	}

	var sections, targets []string
	payload := analyzedPayload{Packages: []analyzedPackage{}}
	resolved := 0
	for _, r := range reports {
		sections = append(sections, strings.TrimRight(RenderBodySection(r), "\n"))
		cves := matcher.CVEs(matcher.SortByCVE(r.Matches))
		resolved += len(cves)
		payload.Packages = append(payload.Packages, analyzedPackage{
			Package:  r.Bump.Package,
			From:     r.Bump.From,
			To:       r.Bump.To,
			Resolved: cves,
		})
		if targeted[r.Bump.Package] {
			continue
		}
		target, err := marker.Create(marker.TargetPackage, r.Bump)
		if err != nil {
			return false, err
		}
		targets = append(targets, target)
		targeted[r.Bump.Package] = true
	}
	section := strings.Join(append(sections, targets...), "\n")

	body, changed, err := AppendOnce(pr.Body, marker.Analyzed, payload, section)
	if err != nil {
		return false, err
	}
	if !changed {
		slog.Info("pull request body already annotated", "pr", number)
		return false, nil
	}
	if a.dryRun {
		fmt.Printf("dry-run: would update body of #%d:\n%s\n", number, body)
		return true, nil
	}
	if err := a.client.UpdateBody(ctx, number, body); err != nil {
		return false, err
	}
	slog.Info("pull request body annotated", "pr", number, "packages", len(reports), "resolved", resolved)
	return true, nil
}

// PostAnalysis comments the risk narrative once per analyzed package version.
func (a *Annotator) PostAnalysis(ctx context.Context, number int, r Report) (bool, error) {
	comments, err := a.client.ListComments(ctx, number)
	if err != nil {
		return false, err
	}
	for _, c := range comments {
		if analyzedSameBump(c.Body, r.Bump) {
			slog.Info("analysis comment already present", "pr", number, "comment", c.ID)
			return false, nil
		}
	}

	body, err := RenderAnalysisComment(r)
	if err != nil {
		return false, err
	}
	if a.dryRun {
		fmt.Printf("dry-run: would comment on #%d:\n%s\n", number, body)
		return true, nil
	}
	if err := a.client.CreateComment(ctx, number, body); err != nil {
		return false, err
	}
	slog.Info("analysis comment posted", "pr", number)
	return true, nil
}

func analyzedSameBump(doc string, b bump.Bump) bool {
	for _, p := range marker.ExtractAll(doc, marker.AnalyzedPackage) {
		if p.String("package") == b.Package && p.String("to") == b.To {
			return true
		}
	}
	return false
}

// PreviousAnalysis returns the body of the latest comment carrying an
// analyzed-package marker for pkg, with markers stripped. Empty when there is
// none.
func PreviousAnalysis(comments []vcs.Comment, pkg string) string {
	for i := len(comments) - 1; i >= 0; i-- {
		for _, p := range marker.ExtractAll(comments[i].Body, marker.AnalyzedPackage) {
			if p.String("package") == pkg {
				return strings.TrimSpace(marker.Strip(comments[i].Body))
			}
		}
	}
	return ""
}
