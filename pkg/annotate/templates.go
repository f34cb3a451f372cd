package annotate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/bump-advisor/pkg/marker"
	"github.com/bump-advisor/pkg/matcher"
)

var bodySectionTmpl = template.Must(template.New("body_section").Parse(`---
### 🔒 Security: ` + "`{{ .Bump.Package }}`" + `
{{ if .Matches -}}
Updating ` + "`{{ .Bump.Package }}`" + ` from ` + "`{{ .Bump.From }}`" + ` to ` + "`{{ .Bump.To }}`" + ` resolves {{ len .Matches }} open {{ if eq (len .Matches) 1 }}alert{{ else }}alerts{{ end }}:

| CVE | Alert |
|-----|-------|
{{ range .Matches }}| {{ .CVE }} | [#{{ .AlertID }}]({{ .AlertURL }}) |
{{ end }}
{{- else -}}
No open Dependabot alerts for ` + "`{{ .Bump.Package }}`" + ` are resolved by this update.
{{ end -}}
{{ if .Verdict }}
**Risk:** {{ .Verdict }}
{{ end -}}
`))

var analysisCommentTmpl = template.Must(template.New("analysis_comment").Parse(`## 🤖 Update analysis: ` + "`{{ .Bump.Package }}`" + ` {{ .Bump.From }} → {{ .Bump.To }}

**Verdict:** {{ .VerdictText }}
{{- if and .Verdict .Verdict.Reason }}
**Reason:** {{ .Verdict.Reason }}
{{- end }}
{{ if .Matches }}
Resolves: {{ range $i, $m := .Matches }}{{ if $i }}, {{ end }}{{ $m.CVE }}{{ end }}{{ if .Severity }} (highest severity: {{ .Severity }}){{ end }}
{{ end }}
<details>
<summary>Full analysis{{ if .Provider }} ({{ .Provider }}){{ end }}</summary>

{{ .Narrative }}

</details>

---

<sub>Generated by [bump-advisor](https://github.com/bump-advisor)</sub>
`))

type templateData struct {
	Report
	VerdictText string
}

func newTemplateData(r Report) templateData {
	r.Matches = matcher.SortByCVE(r.Matches)
	data := templateData{Report: r, VerdictText: "❓ Not evaluated"}
	if r.Verdict != nil {
		data.VerdictText = r.Verdict.String()
	}
	return data
}

func RenderBodySection(r Report) string {
	var buf bytes.Buffer
	if err := bodySectionTmpl.Execute(&buf, newTemplateData(r)); err != nil {
		return fmt.Sprintf("Error rendering security section: %v", err)
	}
	return buf.String()
}

// RenderAnalysisComment renders the narrative comment, ending with the
// analyzed-package marker that later runs look for.
func RenderAnalysisComment(r Report) (string, error) {
	var buf bytes.Buffer
	if err := analysisCommentTmpl.Execute(&buf, newTemplateData(r)); err != nil {
		return "", fmt.Errorf("render analysis comment: %w", err)
	}
	m, err := marker.Create(marker.AnalyzedPackage, r.Bump)
	if err != nil {
		return "", err
	}
	buf.WriteString(m)
	buf.WriteString("\n")
	return buf.String(), nil
}
