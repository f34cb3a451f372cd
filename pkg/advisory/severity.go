package advisory

import "strings"

var severityRank = map[string]int{
	"low":      1,
	"medium":   2,
	"moderate": 2,
	"high":     3,
	"critical": 4,
}

// NormalizeSeverity maps a rating such as "MODERATE" or "High" onto
// low, medium, high or critical. Anything else, a CVSS vector included, is
// unknown and yields "".
func NormalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return "critical"
	case "high":
		return "high"
	case "medium", "moderate":
		return "medium"
	case "low":
		return "low"
	}
	return ""
}

// SeverityRank orders ratings from 1 (low) to 4 (critical); unknown is 0.
func SeverityRank(s string) int {
	return severityRank[strings.ToLower(strings.TrimSpace(s))]
}

// MaxSeverity returns the most severe normalized rating across advisories,
// or "" when none carries a known rating.
func MaxSeverity(advisories []Advisory) string {
	best := ""
	for _, a := range advisories {
		if SeverityRank(a.Severity) > SeverityRank(best) {
			best = NormalizeSeverity(a.Severity)
		}
	}
	return best
}
