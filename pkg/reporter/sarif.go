package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bump-advisor/pkg/matcher"
)

type SARIFReporter struct {
	w io.Writer
}

func (r *SARIFReporter) Report(resolutions []matcher.Resolution) error {
	sarif := map[string]interface{}{
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"version": "2.1.0",
		"runs": []map[string]interface{}{
			{
				"tool": map[string]interface{}{
					"driver": map[string]interface{}{
						"name":           "bump-advisor",
						"informationUri": "https://github.com/bump-advisor",
						"rules":          buildRules(resolutions),
					},
				},
				"results": buildResults(resolutions),
			},
		},
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarif)
}

// buildRules emits one rule per distinct CVE.
func buildRules(resolutions []matcher.Resolution) []map[string]interface{} {
	rules := []map[string]interface{}{}
	seen := make(map[string]bool)
	for _, res := range resolutions {
		for _, m := range res.Matches {
			if seen[m.CVE] {
				continue
			}
			seen[m.CVE] = true
			rules = append(rules, map[string]interface{}{
				"id":               m.CVE,
				"shortDescription": map[string]string{"text": m.CVE},
				"helpUri":          m.AlertURL,
			})
		}
	}
	return rules
}

func buildResults(resolutions []matcher.Resolution) []map[string]interface{} {
	results := []map[string]interface{}{}
	for _, res := range resolutions {
		for _, m := range res.Matches {
			results = append(results, map[string]interface{}{
				"ruleId":  m.CVE,
				"level":   "note",
				"message": map[string]string{"text": fmt.Sprintf("%s resolved by updating %s from %s to %s", m.CVE, res.Bump.Package, res.Bump.From, res.Bump.To)},
			})
		}
	}
	return results
}
