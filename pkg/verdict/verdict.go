// Package verdict classifies a free-text risk analysis into a small set of
// levels. It is a best-effort heuristic: Extract never fails, it degrades to
// Unevaluated.
package verdict

import (
	"regexp"
	"strings"
)

type Level string

const (
	Low         Level = "low"
	Medium      Level = "medium"
	High        Level = "high"
	Critical    Level = "critical"
	Failed      Level = "failed"
	Unevaluated Level = "unevaluated"
)

// Source records which rule produced a verdict.
type Source string

const (
	FromStructured Source = "structured"
	FromFailure    Source = "failure-marker"
	FromConclusion Source = "conclusion"
	FromKeyword    Source = "keyword"
	FromNothing    Source = "none"
)

type Verdict struct {
	Level      Level
	Confidence string
	Reason     string
	Source     Source
}

var badges = map[Level]string{
	Low:         "✅ Low risk",
	Medium:      "⚠️ Medium risk",
	High:        "🔴 High risk",
	Critical:    "🚨 Critical risk",
	Failed:      "❌ Analysis failed",
	Unevaluated: "❓ Not evaluated",
}

func (v Verdict) String() string {
	s := badges[v.Level]
	if s == "" {
		s = badges[Unevaluated]
	}
	if v.Confidence != "" {
		s += " (" + v.Confidence + " confidence)"
	}
	return s
}

func parseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, true
	case "medium", "moderate":
		return Medium, true
	case "high":
		return High, true
	case "critical":
		return Critical, true
	}
	return "", false
}

// The structured block the prompt asks for:
//
//	---RISK_ASSESSMENT_START---
//	RISK_LEVEL: low|medium|high|critical
//	CONFIDENCE: low|medium|high
//	PRIMARY_REASON: one sentence
//	---RISK_ASSESSMENT_END---
var (
	structuredRe    = regexp.MustCompile(`(?s)---RISK_ASSESSMENT_START---(.*?)---RISK_ASSESSMENT_END---`)
	riskLevelRe     = regexp.MustCompile(`(?im)^[ \t*]*RISK_LEVEL:[ \t*]*(\w+)`)
	confidenceRe    = regexp.MustCompile(`(?im)^[ \t*]*CONFIDENCE:[ \t*]*(low|medium|high)\b`)
	primaryReasonRe = regexp.MustCompile(`(?im)^[ \t*]*PRIMARY_REASON:[ \t*]*(.+)$`)
)

var failureRe = regexp.MustCompile(`(?i)\banalysis failed\b`)

// Ordered; the first pattern that yields a level wins.
var conclusionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)overall risk(?: level)?\s*(?:is|:)\s*\**(low|medium|moderate|high|critical)\b`),
	regexp.MustCompile(`(?i)risk[ _]level\s*(?:is|:)\s*\**(low|medium|moderate|high|critical)\b`),
	regexp.MustCompile(`(?is)#+\s*conclusion\s*\n(.*?)(?:\n#|$)`),
}

var levelWordRe = regexp.MustCompile(`(?i)\b(low|medium|moderate|high|critical)\b`)

type keywordRule struct {
	level    Level
	keywords []string
}

// Lowest severity first, so rule priority rather than textual order decides
// a document that mentions several levels.
var keywordLadder = []keywordRule{
	{Low, []string{"no breaking changes", "safe to merge"}},
	{Low, []string{"low risk"}},
	{Medium, []string{"medium risk", "moderate risk"}},
	{High, []string{"high risk", "breaking change"}},
	{Critical, []string{"critical"}},
}

// Extract classifies an analysis narrative.
func Extract(text string) Verdict {
	if v, ok := structured(text); ok {
		return v
	}
	if failureRe.MatchString(text) {
		return Verdict{Level: Failed, Source: FromFailure}
	}
	if lvl, ok := conclusion(text); ok {
		return Verdict{Level: lvl, Source: FromConclusion}
	}
	lower := strings.ToLower(text)
	for _, rule := range keywordLadder {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return Verdict{Level: rule.level, Source: FromKeyword}
			}
		}
	}
	return Verdict{Level: Unevaluated, Source: FromNothing}
}

func structured(text string) (Verdict, bool) {
	block := structuredRe.FindStringSubmatch(text)
	if block == nil {
		return Verdict{}, false
	}
	level := riskLevelRe.FindStringSubmatch(block[1])
	confidence := confidenceRe.FindStringSubmatch(block[1])
	reason := primaryReasonRe.FindStringSubmatch(block[1])
	if level == nil || confidence == nil || reason == nil {
		return Verdict{}, false
	}
	lvl, ok := parseLevel(level[1])
	if !ok {
		return Verdict{}, false
	}
	return Verdict{
		Level:      lvl,
		Confidence: strings.ToLower(confidence[1]),
		Reason:     strings.TrimSpace(strings.Trim(reason[1], "* \t\r")),
		Source:     FromStructured,
	}, true
}

func conclusion(text string) (Level, bool) {
	for _, re := range conclusionRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if lvl, ok := parseLevel(m[1]); ok {
			return lvl, true
		}
		// A conclusion paragraph: take the first level word inside it.
		if w := levelWordRe.FindStringSubmatch(m[1]); w != nil {
			lvl, _ := parseLevel(w[1])
			return lvl, true
		}
	}
	return "", false
}

// Aggregate picks the most severe level across several verdicts. Failed and
// unevaluated verdicts only win when nothing else was classified.
func Aggregate(verdicts ...Verdict) Level {
	rank := map[Level]int{Unevaluated: 0, Failed: 1, Low: 2, Medium: 3, High: 4, Critical: 5}
	best := Unevaluated
	for _, v := range verdicts {
		if rank[v.Level] > rank[best] {
			best = v.Level
		}
	}
	return best
}
