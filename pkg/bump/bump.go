package bump

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bump-advisor/pkg/marker"
)

var ErrNoBump = errors.New("no dependency bump found")

// Bump describes one dependency moving between two versions.
type Bump struct {
	Package   string `json:"package"`
	From      string `json:"from"`
	To        string `json:"to"`
	Ecosystem string `json:"ecosystem,omitempty"`
}

func (b Bump) String() string {
	return fmt.Sprintf("%s %s -> %s", b.Package, b.From, b.To)
}

func (b Bump) Valid() bool {
	return b.Package != "" && b.From != "" && b.To != ""
}

// Matches both the Dependabot title ("Bump lodash from 4.17.20 to 4.17.21 in /web")
// and the body ("Bumps [lodash](https://github.com/lodash/lodash) from 4.17.20 to 4.17.21.").
var bumpRe = regexp.MustCompile(`(?i)\bbumps?\s+\[?([^\s\[\]()]+)\]?(?:\([^)]*\))?\s+from\s+(\S+?)\s+to\s+(\S+?)\.?(?:\s|$)`)

// FromPullRequest extracts the bump from a target-package marker in the body,
// then from the title, then from the body prose.
func FromPullRequest(title, body string) (Bump, error) {
	if p, ok := marker.Extract(body, marker.TargetPackage); ok {
		var b Bump
		if err := marker.Decode(p, &b); err == nil && b.Valid() {
			return normalize(b), nil
		}
	}
	for _, text := range []string{title, body} {
		if b, ok := parseText(text); ok {
			return b, nil
		}
	}
	return Bump{}, ErrNoBump
}

// Grouped Dependabot updates list one line per package:
// "Updates `lodash` from 4.17.20 to 4.17.21".
var groupedRe = regexp.MustCompile(`(?m)^[ \t]*Updates[ \t]+` + "`?([^\\s`]+)`?" + `[ \t]+from[ \t]+(\S+?)[ \t]+to[ \t]+(\S+?)\.?[ \t]*\r?$`)

// AllFromPullRequest returns every bump a pull request describes, one per
// package. A body with target-package markers yields one bump per marker;
// otherwise the grouped-update lines are used, then the single bump found by
// the title or body prose.
func AllFromPullRequest(title, body string) ([]Bump, error) {
	var bumps []Bump
	seen := make(map[string]bool)
	add := func(b Bump) {
		b = normalize(b)
		if !b.Valid() || seen[b.Package] {
			return
		}
		seen[b.Package] = true
		bumps = append(bumps, b)
	}

	for _, p := range marker.ExtractAll(body, marker.TargetPackage) {
		var b Bump
		if err := marker.Decode(p, &b); err == nil {
			add(b)
		}
	}
	if len(bumps) > 0 {
		return bumps, nil
	}

	for _, m := range groupedRe.FindAllStringSubmatch(body, -1) {
		add(Bump{Package: m[1], From: m[2], To: m[3]})
	}
	if len(bumps) > 0 {
		return bumps, nil
	}

	b, err := FromPullRequest(title, body)
	if err != nil {
		return nil, err
	}
	return []Bump{b}, nil
}

func parseText(text string) (Bump, bool) {
	m := bumpRe.FindStringSubmatch(text)
	if m == nil {
		return Bump{}, false
	}
	return normalize(Bump{Package: m[1], From: m[2], To: m[3]}), true
}

func normalize(b Bump) Bump {
	b.Package = strings.Trim(b.Package, "`")
	b.From = trimVersion(b.From)
	b.To = trimVersion(b.To)
	return b
}

func trimVersion(v string) string {
	v = strings.Trim(v, "`")
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		v = v[1:]
	}
	return v
}

var branchEcosystems = map[string]string{
	"npm_and_yarn":   "npm",
	"pip":            "pip",
	"go_modules":     "go",
	"bundler":        "rubygems",
	"cargo":          "rust",
	"maven":          "maven",
	"gradle":         "maven",
	"nuget":          "nuget",
	"composer":       "composer",
	"pub":            "pub",
	"github_actions": "actions",
}

// EcosystemFromBranch maps a Dependabot head branch such as
// "dependabot/npm_and_yarn/lodash-4.17.21" onto an alert ecosystem name.
func EcosystemFromBranch(ref string) string {
	parts := strings.Split(ref, "/")
	if len(parts) < 3 || parts[0] != "dependabot" {
		return ""
	}
	return branchEcosystems[parts[1]]
}
