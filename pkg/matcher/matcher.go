package matcher

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/version"
)

// Match is one CVE closed by a bump, together with the alert that recorded it.
// Two matches are the same only if all three fields are equal.
type Match struct {
	CVE      string `json:"cve"`
	AlertID  int    `json:"alert_id"`
	AlertURL string `json:"alert_url"`
}

// Resolution groups a bump with the advisories it resolves.
type Resolution struct {
	Bump    bump.Bump `json:"bump"`
	Matches []Match   `json:"matches"`
}

// FindResolved returns the CVEs closed by moving pkg from one version to
// another, in order of first discovery. Records that fail a precondition are
// skipped; only unparseable from/to versions produce an error.
func FindResolved(pkg, from, to string, advisories []advisory.Advisory) ([]Match, error) {
	resolved, err := Resolved(pkg, from, to, advisories)
	if err != nil {
		return nil, err
	}

	matches := []Match{}
	seen := make(map[Match]bool)
	for _, adv := range resolved {
		for _, cve := range adv.CVEs {
			m := Match{CVE: cve, AlertID: adv.AlertID, AlertURL: adv.AlertURL}
			if seen[m] {
				continue
			}
			seen[m] = true
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Resolved returns the advisory records the bump closes, in input order.
func Resolved(pkg, from, to string, advisories []advisory.Advisory) ([]advisory.Advisory, error) {
	fromV, err := version.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("from version: %w", err)
	}
	if _, err := version.Parse(to); err != nil {
		return nil, fmt.Errorf("to version: %w", err)
	}

	var out []advisory.Advisory
	for _, adv := range advisories {
		if reason := skipReason(pkg, fromV, to, adv); reason != "" {
			slog.Debug("advisory skipped", "alert", adv.AlertID, "id", adv.ID, "package", adv.Package, "reason", reason)
			continue
		}
		out = append(out, adv)
	}
	return out, nil
}

func skipReason(pkg string, from version.Version, to string, adv advisory.Advisory) string {
	if adv.Package != pkg {
		return "different package"
	}
	if len(adv.CVEs) == 0 {
		return "no CVE identifiers"
	}
	if adv.VulnerableRange == "" {
		return "no vulnerable range"
	}
	if !version.Satisfies(from, adv.VulnerableRange) {
		return "from version outside vulnerable range"
	}
	if adv.FirstPatched == "" {
		return "no patched version"
	}
	if version.CompareStrings(to, adv.FirstPatched) < 0 {
		return "to version below first patched version"
	}
	return ""
}

// Resolve runs FindResolved for a bump.
func Resolve(b bump.Bump, advisories []advisory.Advisory) (Resolution, error) {
	matches, err := FindResolved(b.Package, b.From, b.To, advisories)
	if err != nil {
		return Resolution{}, fmt.Errorf("match %s: %w", b.Package, err)
	}
	return Resolution{Bump: b, Matches: matches}, nil
}

// SortByCVE returns a copy ordered by CVE and then alert id, for display.
func SortByCVE(matches []Match) []Match {
	out := make([]Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CVE != out[j].CVE {
			return out[i].CVE < out[j].CVE
		}
		return out[i].AlertID < out[j].AlertID
	})
	return out
}

// CVEs returns the distinct CVE identifiers in matches, in first-seen order.
func CVEs(matches []Match) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if !seen[m.CVE] {
			seen[m.CVE] = true
			ids = append(ids, m.CVE)
		}
	}
	return ids
}
