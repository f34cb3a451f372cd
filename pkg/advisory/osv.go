package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const osvBaseURL = "https://api.osv.dev/v1"

type OSVClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewOSVClient() *OSVClient {
	return &OSVClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    osvBaseURL,
	}
}

// WithBaseURL points the client at another OSV-compatible endpoint.
func (c *OSVClient) WithBaseURL(u string) *OSVClient {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

func (c *OSVClient) ListForPackage(ctx context.Context, ecosystem, name, version string) ([]Advisory, error) {
	reqBody := osvQuery{
		Package: osvPackage{
			Name:      name,
			Ecosystem: osvEcosystem(ecosystem),
		},
		Version: version,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal osv query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build osv query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osv query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("osv query returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result osvResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode osv response: %w", err)
	}

	return convertOSVVulns(name, result.Vulns), nil
}

// convertOSVVulns emits one Advisory per introduced/fixed interval, since an
// OSV range is a union of intervals and an Advisory holds a single conjunction.
func convertOSVVulns(name string, vulns []osvVuln) []Advisory {
	var advisories []Advisory
	for _, v := range vulns {
		base := Advisory{
			Package:  name,
			ID:       v.ID,
			Summary:  v.Summary,
			AlertURL: "https://osv.dev/vulnerability/" + v.ID,
			Severity: NormalizeSeverity(v.DatabaseSpecific.Severity),
		}
		base.CVEs = appendCVEs(nil, v.ID)
		base.CVEs = appendCVEs(base.CVEs, v.Aliases...)
		if base.Severity == "" {
			for _, sev := range v.Severity {
				// CVSS vectors carry no level word; only plain ratings are usable.
				if s := NormalizeSeverity(sev.Score); s != "" {
					base.Severity = s
					break
				}
			}
		}

		for _, affected := range v.Affected {
			if affected.Package.Name != name {
				continue
			}
			base.Ecosystem = affected.Package.Ecosystem
			for _, r := range affected.Ranges {
				if r.Type != "ECOSYSTEM" && r.Type != "SEMVER" {
					continue
				}
				for _, iv := range intervals(r.Events) {
					a := base
					a.VulnerableRange = iv.rangeExpr()
					a.FirstPatched = iv.fixed
					advisories = append(advisories, a)
				}
			}
		}
	}
	return advisories
}

type interval struct {
	introduced string
	fixed      string
}

func (iv interval) rangeExpr() string {
	var atoms []string
	if iv.introduced != "" && iv.introduced != "0" {
		atoms = append(atoms, ">="+iv.introduced)
	}
	if iv.fixed != "" {
		atoms = append(atoms, "<"+iv.fixed)
	}
	if len(atoms) == 0 {
		return ">=0"
	}
	return strings.Join(atoms, ",")
}

func intervals(events []osvEvent) []interval {
	var out []interval
	var cur *interval
	for _, e := range events {
		switch {
		case e.Introduced != "":
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &interval{introduced: e.Introduced}
		case e.Fixed != "":
			if cur == nil {
				cur = &interval{}
			}
			cur.fixed = e.Fixed
			out = append(out, *cur)
			cur = nil
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// osvEcosystem maps Dependabot ecosystem names onto OSV's.
func osvEcosystem(ecosystem string) string {
	switch strings.ToLower(ecosystem) {
	case "npm":
		return "npm"
	case "pip", "pypi":
		return "PyPI"
	case "go", "gomod":
		return "Go"
	case "rubygems":
		return "RubyGems"
	case "rust", "cargo", "crates.io":
		return "crates.io"
	case "maven":
		return "Maven"
	case "nuget":
		return "NuGet"
	case "composer", "packagist":
		return "Packagist"
	}
	return ecosystem
}

// OSV API request/response types

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvResponse struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvVuln struct {
	ID               string         `json:"id"`
	Aliases          []string       `json:"aliases"`
	Summary          string         `json:"summary"`
	Severity         []osvSeverity  `json:"severity"`
	Affected         []osvAffected  `json:"affected"`
	DatabaseSpecific osvDatabaseExt `json:"database_specific"`
}

type osvDatabaseExt struct {
	Severity string `json:"severity"`
}

type osvSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type osvAffected struct {
	Package osvPackage `json:"package"`
	Ranges  []osvRange `json:"ranges"`
}

type osvRange struct {
	Type   string     `json:"type"`
	Events []osvEvent `json:"events"`
}

type osvEvent struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}
