package output

import (
	"html/template"
	"io"
	"strings"

	"github.com/santosr2/seccode/pkg/sdk"
)

// HTMLFormatter outputs violations as a standalone HTML report
type HTMLFormatter struct {
	Title   string
	Version string
}

type htmlReport struct {
	Title   string
	Version string
	Summary Summary
	Files   []htmlFile
}

type htmlFile struct {
	Name       string
	Violations []htmlViolation
}

type htmlViolation struct {
	ID             string
	Name           string
	Recommendation string
	Severity       string
	Class          string
	Line, Column   int
	Fixes          []string
	HelpURI        string
}

// Format implements the Formatter interface for HTML output
func (f *HTMLFormatter) Format(violations []sdk.Violation, w io.Writer) error {
	report := htmlReport{
		Title:   f.Title,
		Version: f.Version,
		Summary: Summarize(violations),
	}

	// files in order of first appearance
	pos := make(map[string]int)
	for _, v := range violations {
		i, ok := pos[v.File]
		if !ok {
			i = len(report.Files)
			pos[v.File] = i
			report.Files = append(report.Files, htmlFile{Name: v.File})
		}

		r := v.Rule
		report.Files[i].Violations = append(report.Files[i].Violations, htmlViolation{
			ID:             r.ID(),
			Name:           r.Name(),
			Recommendation: r.Recommendation(),
			Severity:       string(r.Severity()),
			Class:          strings.ToLower(string(r.Severity())),
			Line:           v.Location.Start.Line,
			Column:         v.Location.Start.Column,
			Fixes:          sdk.ProposedFixes(r, v.Node).Labels(),
			HelpURI:        HelpURI(r),
		})
	}

	return reportTemplate.Execute(w, report)
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; background: #f5f6f8; color: #1f2328; margin: 0; padding: 2rem; }
main { max-width: 1100px; margin: 0 auto; }
.counts { display: flex; gap: 1rem; margin: 1rem 0 2rem; }
.count { background: #fff; border-radius: 6px; padding: .75rem 1.25rem; border-top: 4px solid #8c959f; }
.count b { display: block; font-size: 1.75rem; }
.count.high, .violation.high { border-color: #cf222e; }
.count.medium, .violation.medium { border-color: #bf8700; }
.count.low, .violation.low { border-color: #0969da; }
section { background: #fff; border-radius: 6px; margin-bottom: 1rem; overflow: hidden; }
section h2 { margin: 0; padding: .6rem 1rem; font: .9rem monospace; background: #24292f; color: #fff; }
.violation { padding: .75rem 1rem; border-left: 4px solid; border-bottom: 1px solid #d0d7de; }
.meta { font: .8rem monospace; color: #57606a; }
.fix { display: inline-block; margin: .25rem .25rem 0 0; padding: .1rem .4rem; border-radius: 4px; background: #dafbe1; color: #116329; font-size: .75rem; }
.clean { text-align: center; padding: 3rem; color: #1a7f37; }
footer { text-align: center; margin-top: 2rem; color: #57606a; font-size: .85rem; }
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<div class="counts">
<div class="count"><b>{{.Summary.Total}}</b>Total</div>
<div class="count high"><b>{{.Summary.High}}</b>High</div>
<div class="count medium"><b>{{.Summary.Medium}}</b>Medium</div>
<div class="count low"><b>{{.Summary.Low}}</b>Low</div>
</div>
{{range .Files}}<section>
<h2>{{.Name}}</h2>
{{range .Violations}}<div class="violation {{.Class}}">
<div>{{if .HelpURI}}<a href="{{.HelpURI}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</div>
<div class="meta">{{.ID}} &middot; {{.Severity}} &middot; line {{.Line}}, column {{.Column}}</div>
<p>{{.Recommendation}}</p>
{{range .Fixes}}<span class="fix">{{.}}</span>{{end}}
</div>
{{end}}</section>
{{else}}<div class="clean"><h2>No issues found</h2></div>
{{end}}<footer>Generated by seccode {{.Version}}</footer>
</main>
</body>
</html>
`))
