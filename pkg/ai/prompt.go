package ai

import (
	"bytes"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/bump"
)

var promptTmpl = template.Must(template.New("prompt").Parse(`You are reviewing a dependency update pull request.

Package: {{ .Bump.Package }}{{ if .Bump.Ecosystem }} ({{ .Bump.Ecosystem }}){{ end }}
From version: {{ .Bump.From }}
To version: {{ .Bump.To }}
{{ if .Advisories }}
Security advisories resolved by this update:
{{ range .Advisories }}- {{ range $i, $c := .CVEs }}{{ if $i }}, {{ end }}{{ $c }}{{ end }}{{ if .ID }} ({{ .ID }}){{ end }}{{ if .Severity }} [severity: {{ .Severity }}]{{ end }}{{ if .Summary }}: {{ .Summary }}{{ end }}
{{ end }}{{ else }}
No known security advisories are resolved by this update.
{{ end }}
Pull request description:
{{ .Body }}
{{ if .Previous }}
A previous analysis of this pull request, for context:
{{ .Previous }}
{{ end }}
Assess the risk of merging this update: breaking API changes, behavioural
changes, the security impact of the advisories above, and anything in the
release notes that needs attention.

End your answer with exactly this block:
---RISK_ASSESSMENT_START---
RISK_LEVEL: <low|medium|high|critical>
CONFIDENCE: <low|medium|high>
PRIMARY_REASON: <one sentence>
---RISK_ASSESSMENT_END---
`))

// PromptInput is what the narrative is asked to assess.
type PromptInput struct {
	Bump bump.Bump
	Body string

	// Advisories are the records the bump resolves.
	Advisories []advisory.Advisory

	// Previous is an earlier analysis comment on the same pull request.
	Previous string
}

// maxBodyBytes keeps Dependabot's long release-note dumps out of the prompt.
const maxBodyBytes = 12000

func RenderPrompt(in PromptInput) (string, error) {
	in.Body = truncate(in.Body, maxBodyBytes)
	in.Previous = truncate(in.Previous, maxBodyBytes/2)

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n[truncated]"
}
