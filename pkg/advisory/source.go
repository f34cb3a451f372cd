package advisory

import (
	"context"
	"strings"
)

// Advisory is one vulnerability disclosure tied to a package. Advisories are
// read-only input to the matcher.
type Advisory struct {
	Package   string   `json:"package"`
	Ecosystem string   `json:"ecosystem,omitempty"`
	CVEs      []string `json:"cves"`
	AlertID   int      `json:"alert_id"`
	AlertURL  string   `json:"alert_url"`

	// VulnerableRange is a conjunctive range expression, e.g. ">= 4.0.0, < 4.17.21".
	VulnerableRange string `json:"vulnerable_range"`

	// FirstPatched is empty when no fix is known yet.
	FirstPatched string `json:"first_patched,omitempty"`

	ID       string `json:"id,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type Source interface {
	// ListForPackage returns the open advisories recorded for a package.
	// ecosystem may be empty when the source cannot or need not filter by it.
	ListForPackage(ctx context.Context, ecosystem, name, version string) ([]Advisory, error)
}

func isCVE(id string) bool {
	return strings.HasPrefix(strings.ToUpper(id), "CVE-")
}

// appendCVEs adds ids that are CVE identifiers and not already present.
func appendCVEs(dst []string, ids ...string) []string {
	for _, id := range ids {
		if !isCVE(id) {
			continue
		}
		dup := false
		for _, have := range dst {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, id)
		}
	}
	return dst
}
