package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// MarkdownTemplate is the markdown layout of the risk report. The pretty
// format renders the same document through glamour.
const MarkdownTemplate = `# {{.Title}}

_Generated {{.GeneratedAt}} · run ` + "`{{.RunID}}`" + `_

| Convention | Scenario | Durations |
|---|---|---|
| {{.Convention}} | {{.Scenario}} | {{.DurationUnit}} |

## Portfolio metrics

| Metric | Value |
|---|---:|
{{- range .Metrics}}
| {{.Label}} | {{.Value}} |
{{- end}}
{{if .HasShock}}
## Most sensitive bonds

{{if .Top -}}
| # | ISIN | Shift | P/L | Duration est. | Convexity est. | Contribution |
|---:|---|---:|---:|---:|---:|---:|
{{- range .Top}}
| {{.Rank}} | {{.ISIN}} | {{.Shift}} | {{.PL}} | {{.DurationPL}} | {{.ConvexityPL}} | {{.Contribution}} |
{{- end}}
{{- else -}}
_No bond was re-priced._
{{- end}}
{{end}}
## Bonds

{{if .Bonds -}}
| ISIN | Coupon | YTM | Years | Freq | Price | Mac. dur. | Mod. dur. | Convexity | DV01 |{{if .HasShock}} Shift | Shocked price | P/L |{{end}}
|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|{{if .HasShock}}---:|---:|---:|{{end}}
{{- $shock := .HasShock}}
{{- range .Bonds}}
| {{.ISIN}} | {{.Coupon}} | {{.YTM}} | {{.Years}} | {{.Frequency}} | {{.Price}} | {{.MacDur}} | {{.ModDur}} | {{.Convexity}} | {{.DV01}} |{{if $shock}} {{.Shock.Shift}} | {{.Shock.ShockedPrice}} | {{.Shock.PL}} |{{end}}
{{- end}}
{{- else -}}
_No bonds were valued._
{{- end}}
{{if .Exclusions}}
## Excluded

{{range .Exclusions}}- **{{.ISIN}}**: {{.Reason}}
{{end}}{{end}}{{if .Failures}}
## Failed

{{range .Failures}}- **{{.ISIN}}** ({{.Stage}}): {{escape .Error}}
{{end}}{{end}}`

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"escape": escapeMarkdown,
}).Parse(MarkdownTemplate))

func renderMarkdown(d ReportData) (string, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// escapeMarkdown neutralises characters that would break table or list
// layout inside free-form error text.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "\n", " ").Replace(s)
}
