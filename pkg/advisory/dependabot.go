package advisory

import (
	"context"
	"fmt"

	"github.com/google/go-github/v60/github"
)

// DependabotSource reads Dependabot alerts for a single repository.
type DependabotSource struct {
	client *github.Client
	owner  string
	repo   string
	state  string
}

func NewDependabotSource(client *github.Client, owner, repo, state string) *DependabotSource {
	if state == "" {
		state = "open"
	}
	return &DependabotSource{
		client: client,
		owner:  owner,
		repo:   repo,
		state:  state,
	}
}

func (s *DependabotSource) ListForPackage(ctx context.Context, ecosystem, name, _ string) ([]Advisory, error) {
	opts := &github.ListAlertsOptions{
		State:   github.String(s.state),
		Package: github.String(name),
	}
	if ecosystem != "" {
		opts.Ecosystem = github.String(ecosystem)
	}
	opts.ListCursorOptions.PerPage = 100

	var advisories []Advisory
	for {
		alerts, resp, err := s.client.Dependabot.ListRepoAlerts(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list dependabot alerts for %s/%s: %w", s.owner, s.repo, err)
		}
		for _, alert := range alerts {
			advisories = append(advisories, convertAlert(alert))
		}
		if resp.After == "" {
			break
		}
		opts.ListCursorOptions.After = resp.After
	}
	return advisories, nil
}

func convertAlert(alert *github.DependabotAlert) Advisory {
	sa := alert.GetSecurityAdvisory()
	sv := alert.GetSecurityVulnerability()

	a := Advisory{
		Package:         alert.GetDependency().GetPackage().GetName(),
		Ecosystem:       alert.GetDependency().GetPackage().GetEcosystem(),
		AlertID:         alert.GetNumber(),
		AlertURL:        alert.GetHTMLURL(),
		VulnerableRange: sv.GetVulnerableVersionRange(),
		FirstPatched:    sv.GetFirstPatchedVersion().GetIdentifier(),
		ID:              sa.GetGHSAID(),
		Summary:         sa.GetSummary(),
		Severity:        sa.GetSeverity(),
	}
	if a.Package == "" {
		a.Package = sv.GetPackage().GetName()
	}

	a.CVEs = appendCVEs(a.CVEs, sa.GetCVEID())
	for _, ident := range sa.Identifiers {
		if ident.GetType() == "CVE" {
			a.CVEs = appendCVEs(a.CVEs, ident.GetValue())
		}
	}
	return a
}
