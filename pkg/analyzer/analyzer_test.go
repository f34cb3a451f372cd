package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/annotate"
	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/config"
	"github.com/bump-advisor/pkg/marker"
	"github.com/bump-advisor/pkg/matcher"
	"github.com/bump-advisor/pkg/vcs"
	"github.com/bump-advisor/pkg/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePRs struct {
	pr       vcs.PullRequest
	comments []vcs.Comment
	writes   int
}

func (f *fakePRs) GetPullRequest(context.Context, int) (vcs.PullRequest, error) { return f.pr, nil }

func (f *fakePRs) UpdateBody(_ context.Context, _ int, body string) error {
	f.writes++
	f.pr.Body = body
	return nil
}

func (f *fakePRs) ListComments(context.Context, int) ([]vcs.Comment, error) { return f.comments, nil }

func (f *fakePRs) CreateComment(_ context.Context, _ int, body string) error {
	f.comments = append(f.comments, vcs.Comment{ID: int64(len(f.comments) + 1), Body: body})
	return nil
}

type fakeSource struct {
	mu         sync.Mutex
	advisories []advisory.Advisory
	err        error
	gotEco     string
	calls      int
}

func (f *fakeSource) ListForPackage(_ context.Context, ecosystem, _, _ string) ([]advisory.Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotEco = ecosystem
	return f.advisories, f.err
}

type fakeProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Analyze(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.text, p.err
}

// promptFor returns the prompt written for pkg.
func (p *fakeProvider) promptFor(pkg string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prompt := range p.prompts {
		for _, line := range strings.Split(prompt, "\n") {
			f := strings.Fields(line)
			if len(f) >= 2 && f[0] == "Package:" && f[1] == pkg {
				return prompt
			}
		}
	}
	return ""
}

const lowRisk = "Minor fix.\n---RISK_ASSESSMENT_START---\nRISK_LEVEL: low\nCONFIDENCE: high\nPRIMARY_REASON: Patch release.\n---RISK_ASSESSMENT_END---"

func dependabotPR() vcs.PullRequest {
	return vcs.PullRequest{
		Number:  42,
		Title:   "Bump lodash from 4.17.20 to 4.17.21",
		Body:    "Bumps [lodash](https://github.com/lodash/lodash) from 4.17.20 to 4.17.21.",
		HeadRef: "dependabot/npm_and_yarn/lodash-4.17.21",
	}
}

func lodashAlerts() []advisory.Advisory {
	return []advisory.Advisory{
		{
			Package: "lodash", CVEs: []string{"CVE-2021-23337"}, AlertID: 12, AlertURL: "https://example.test/12",
			VulnerableRange: ">= 4.0.0, < 4.17.21", FirstPatched: "4.17.21", ID: "GHSA-35jh-r3h4-6jhm",
			Summary: "Command injection in lodash", Severity: "high",
		},
		{
			Package: "lodash", CVEs: []string{"CVE-2020-28500"}, AlertID: 11, AlertURL: "https://example.test/11",
			VulnerableRange: "< 4.17.21", FirstPatched: "4.17.21", ID: "GHSA-29mw-wpgm-hmr9",
		},
		{
			Package: "lodash", CVEs: []string{"CVE-2099-0001"}, AlertID: 13, AlertURL: "https://example.test/13",
			VulnerableRange: "< 4.18.0", FirstPatched: "4.18.0",
		},
	}
}

func TestAnalyze(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	src := &fakeSource{advisories: lodashAlerts()}
	provider := &fakeProvider{text: lowRisk}

	a := New(prs, src, provider, config.Default())
	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)

	assert.False(t, out.Skipped)
	assert.Equal(t, "npm", src.gotEco)
	require.Len(t, out.Reports, 1)
	r := out.Reports[0]
	assert.Equal(t, bump.Bump{Package: "lodash", From: "4.17.20", To: "4.17.21", Ecosystem: "npm"}, r.Bump)
	assert.Equal(t, []matcher.Match{
		{CVE: "CVE-2021-23337", AlertID: 12, AlertURL: "https://example.test/12"},
		{CVE: "CVE-2020-28500", AlertID: 11, AlertURL: "https://example.test/11"},
	}, r.Matches)
	assert.Equal(t, "high", r.Severity)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, verdict.Low, r.Verdict.Level)
	assert.Equal(t, "Patch release.", r.Verdict.Reason)

	assert.True(t, out.Commented)
	assert.True(t, out.BodyUpdated)
	assert.Len(t, prs.comments, 1)
	assert.True(t, marker.ExistsIn(prs.pr.Body, marker.Analyzed))
}

func TestAnalyzeTwiceIsIdempotent(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	src := &fakeSource{advisories: lodashAlerts()}
	a := New(prs, src, &fakeProvider{text: "low risk"}, config.Default())

	_, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	body := prs.pr.Body

	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, body, prs.pr.Body)
	assert.Equal(t, 1, prs.writes)
	assert.Len(t, prs.comments, 1)
	assert.Equal(t, 1, src.calls)
}

func TestAnalyzeForceDoesNotDuplicate(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	cfg := config.Default()
	cfg.Force = true
	a := New(prs, &fakeSource{advisories: lodashAlerts()}, &fakeProvider{text: "low risk"}, cfg)

	_, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)

	assert.False(t, out.Skipped)
	assert.False(t, out.BodyUpdated)
	assert.False(t, out.Commented)
	assert.Len(t, marker.ExtractAll(prs.pr.Body, marker.Analyzed), 1)
	assert.Len(t, prs.comments, 1)
}

func TestAnalyzeProviderFailureIsNotFatal(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	a := New(prs, &fakeSource{advisories: lodashAlerts()}, &fakeProvider{err: errors.New("rate limited")}, config.Default())

	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, out.Reports, 1)
	require.NotNil(t, out.Reports[0].Verdict)
	assert.Equal(t, verdict.Failed, out.Reports[0].Verdict.Level)
	assert.Len(t, out.Reports[0].Matches, 2)
}

func TestAnalyzeWithoutProvider(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	a := New(prs, &fakeSource{advisories: lodashAlerts()}, nil, config.Default())

	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, out.Reports, 1)
	assert.Nil(t, out.Reports[0].Verdict)
	assert.False(t, out.Commented)
	assert.Empty(t, prs.comments)
	assert.True(t, out.BodyUpdated)
}

func TestAnalyzeIgnoredAdvisories(t *testing.T) {
	prs := &fakePRs{pr: dependabotPR()}
	cfg := config.Default()
	cfg.Ignore.Advisories = []string{"GHSA-29mw-wpgm-hmr9"}
	a := New(prs, &fakeSource{advisories: lodashAlerts()}, nil, cfg)

	out, err := a.Analyze(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, out.Reports[0].Matches, 1)
	assert.Equal(t, "CVE-2021-23337", out.Reports[0].Matches[0].CVE)
}

func TestAnalyzeErrors(t *testing.T) {
	prs := &fakePRs{pr: vcs.PullRequest{Title: "Bump the npm group with 2 updates"}}
	_, err := New(prs, &fakeSource{}, nil, config.Default()).Analyze(context.Background(), 7)
	assert.ErrorIs(t, err, bump.ErrNoBump)

	prs = &fakePRs{pr: dependabotPR()}
	_, err = New(prs, &fakeSource{err: errors.New("403")}, nil, config.Default()).Analyze(context.Background(), 42)
	assert.ErrorContains(t, err, "fetch advisories for lodash: 403")
	assert.Equal(t, 0, prs.writes)

	prs = &fakePRs{pr: vcs.PullRequest{Title: "Bump lodash from latest to 4.17.21"}}
	_, err = New(prs, &fakeSource{}, nil, config.Default()).Analyze(context.Background(), 9)
	assert.ErrorContains(t, err, "pull request #9: from version")
}

func TestAnalyzePromptCarriesAdvisoriesAndHistory(t *testing.T) {
	earlier := annotate.Report{
		Bump:      bump.Bump{Package: "lodash", From: "4.17.20", To: "4.17.19"},
		Narrative: "Earlier look: the changelog only touches docs.",
	}
	prior, err := annotate.RenderAnalysisComment(earlier)
	require.NoError(t, err)

	prs := &fakePRs{pr: dependabotPR(), comments: []vcs.Comment{{ID: 1, Body: prior}}}
	provider := &fakeProvider{text: lowRisk}
	_, err = New(prs, &fakeSource{advisories: lodashAlerts()}, provider, config.Default()).Analyze(context.Background(), 42)
	require.NoError(t, err)

	prompt := provider.promptFor("lodash")
	require.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "CVE-2021-23337 (GHSA-35jh-r3h4-6jhm) [severity: high]: Command injection in lodash")
	assert.Contains(t, prompt, "CVE-2020-28500")
	assert.NotContains(t, prompt, "CVE-2099-0001")
	assert.Contains(t, prompt, "Earlier look: the changelog only touches docs.")
	assert.Len(t, prs.comments, 2)
}

func TestAnalyzeMultiplePackages(t *testing.T) {
	body := "Bumps the npm group with 2 updates.\n" +
		marker.MustCreate(marker.TargetPackage, bump.Bump{Package: "lodash", From: "4.17.20", To: "4.17.21"}) + "\n" +
		marker.MustCreate(marker.TargetPackage, bump.Bump{Package: "minimist", From: "1.2.5", To: "1.2.6"}) + "\n"
	prs := &fakePRs{pr: vcs.PullRequest{
		Number:  5,
		Title:   "Bump the npm group with 2 updates",
		Body:    body,
		HeadRef: "dependabot/npm_and_yarn/npm-abc123",
	}}
	advs := append(lodashAlerts(), advisory.Advisory{
		Package: "minimist", CVEs: []string{"CVE-2021-44906"}, AlertID: 20, AlertURL: "https://example.test/20",
		VulnerableRange: "< 1.2.6", FirstPatched: "1.2.6", Severity: "critical",
	})
	src := &fakeSource{advisories: advs}
	provider := &fakeProvider{text: lowRisk}

	out, err := New(prs, src, provider, config.Default()).Analyze(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, out.Reports, 2)
	assert.Equal(t, "lodash", out.Reports[0].Bump.Package)
	assert.Len(t, out.Reports[0].Matches, 2)
	assert.Equal(t, "minimist", out.Reports[1].Bump.Package)
	assert.Equal(t, "npm", out.Reports[1].Bump.Ecosystem)
	assert.Equal(t, []matcher.Match{{CVE: "CVE-2021-44906", AlertID: 20, AlertURL: "https://example.test/20"}}, out.Reports[1].Matches)
	assert.Equal(t, "critical", out.Reports[1].Severity)
	assert.Equal(t, 2, src.calls)

	minimist := provider.promptFor("minimist")
	require.NotEmpty(t, minimist)
	assert.Contains(t, minimist, "CVE-2021-44906")
	assert.NotContains(t, minimist, "CVE-2021-23337")
	assert.Len(t, prs.comments, 2)
	assert.True(t, out.Commented)
	assert.True(t, out.BodyUpdated)
	assert.Contains(t, prs.pr.Body, "### 🔒 Security: `lodash`")
	assert.Contains(t, prs.pr.Body, "### 🔒 Security: `minimist`")
	assert.Len(t, marker.ExtractAll(prs.pr.Body, marker.TargetPackage), 2)
}
