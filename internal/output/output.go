// Package output renders violations as text, JSON, SARIF or HTML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/santosr2/seccode/pkg/sdk"
)

// Formatter defines the interface for output formatters
type Formatter interface {
	Format(violations []sdk.Violation, w io.Writer) error
}

// certCategories are the rule ID prefixes of the CERT Oracle Secure Coding
// Standard for Java.
var certCategories = map[string]bool{
	"IDS": true, "DCL": true, "EXP": true, "NUM": true, "STR": true, "OBJ": true,
	"MET": true, "ERR": true, "VNA": true, "LCK": true, "THI": true, "TPS": true,
	"TSM": true, "FIO": true, "SER": true, "SEC": true, "ENV": true, "JNI": true,
	"MSC": true,
}

const certWiki = "https://wiki.sei.cmu.edu/confluence/display/java/"

// HelpURI returns the CERT wiki page of a rule, or "" for rules outside the
// standard. Page names are the rule titles with spaces as '+'.
func HelpURI(r sdk.Rule) string {
	id := r.ID()
	if len(id) < 3 || !certCategories[id[:3]] || !strings.HasSuffix(id, "-J") {
		return ""
	}
	return certWiki + url.QueryEscape(r.Name())
}

// Summary counts violations by severity.
type Summary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summarize counts violations by severity.
func Summarize(violations []sdk.Violation) Summary {
	s := Summary{Total: len(violations)}
	for _, v := range violations {
		switch v.Rule.Severity() {
		case sdk.SeverityHigh:
			s.High++
		case sdk.SeverityMedium:
			s.Medium++
		case sdk.SeverityLow:
			s.Low++
		}
	}
	return s
}

// TextFormatter outputs violations in human-readable text format
type TextFormatter struct {
	Verbose bool
	Color   bool
}

func (f *TextFormatter) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (f *TextFormatter) icon(sev sdk.Severity) string {
	switch sev {
	case sdk.SeverityHigh:
		return f.paint(color.FgRed, "✗")
	case sdk.SeverityMedium:
		return f.paint(color.FgYellow, "⚠")
	default:
		return f.paint(color.FgCyan, "ℹ")
	}
}

// Format implements the Formatter interface for text output
func (f *TextFormatter) Format(violations []sdk.Violation, w io.Writer) error {
	if len(violations) == 0 {
		fmt.Fprintln(w, f.paint(color.FgGreen, "✓ No issues found"))
		return nil
	}

	for _, v := range violations {
		r := v.Rule
		fmt.Fprintf(w, "%s %s:%d:%d: %s [%s]\n",
			f.icon(r.Severity()),
			v.File,
			v.Location.Start.Line,
			v.Location.Start.Column,
			r.Name(),
			f.paint(color.Bold, string(r.Severity())),
		)

		if !f.Verbose {
			continue
		}
		fmt.Fprintf(w, "    %s\n", r.Recommendation())
		for _, label := range sdk.ProposedFixes(r, v.Node).Labels() {
			fmt.Fprintf(w, "    fix: %s\n", f.paint(color.FgGreen, label))
		}
		if uri := HelpURI(r); uri != "" {
			fmt.Fprintf(w, "    see: %s\n", uri)
		}
	}

	s := Summarize(violations)
	fmt.Fprintf(w, "\n%d issue(s): %d high, %d medium, %d low\n", s.Total, s.High, s.Medium, s.Low)
	return nil
}

// JSONFormatter outputs violations in JSON format
type JSONFormatter struct {
	Pretty bool
}

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	Violations []JSONViolation `json:"violations"`
	Summary    Summary         `json:"summary"`
}

// JSONViolation represents a single violation in JSON format
type JSONViolation struct {
	Rule           string       `json:"rule"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation"`
	File           string       `json:"file"`
	Location       JSONLocation `json:"location"`
	Severity       string       `json:"severity"`
	Node           string       `json:"node"`
	Fixes          []string     `json:"fixes"`
	HelpURI        string       `json:"help_uri,omitempty"`
}

// JSONLocation represents a location in JSON format
type JSONLocation struct {
	Start JSONPosition `json:"start"`
	End   JSONPosition `json:"end"`
}

// JSONPosition represents a position in JSON format
type JSONPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Format implements the Formatter interface for JSON output
func (f *JSONFormatter) Format(violations []sdk.Violation, w io.Writer) error {
	out := JSONOutput{
		Violations: make([]JSONViolation, 0, len(violations)),
		Summary:    Summarize(violations),
	}

	for _, v := range violations {
		r := v.Rule
		fixes := sdk.ProposedFixes(r, v.Node).Labels()
		if fixes == nil {
			fixes = []string{}
		}

		out.Violations = append(out.Violations, JSONViolation{
			Rule:           r.ID(),
			Name:           r.Name(),
			Description:    r.Description(),
			Recommendation: r.Recommendation(),
			File:           v.File,
			Location: JSONLocation{
				Start: JSONPosition{Line: v.Location.Start.Line, Column: v.Location.Start.Column},
				End:   JSONPosition{Line: v.Location.End.Line, Column: v.Location.End.Column},
			},
			Severity: string(r.Severity()),
			Node:     string(v.Node.Kind),
			Fixes:    fixes,
			HelpURI:  HelpURI(r),
		})
	}

	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(out)
}

// Formats lists the built-in format names.
func Formats() []string {
	return []string{"text", "json", "json-compact", "sarif", "html"}
}

// GetFormatter returns the appropriate formatter based on the format string
func GetFormatter(format string, verbose bool, version string) (Formatter, error) {
	switch format {
	case "text", "":
		return &TextFormatter{Verbose: verbose, Color: !color.NoColor}, nil
	case "json":
		return &JSONFormatter{Pretty: true}, nil
	case "json-compact":
		return &JSONFormatter{Pretty: false}, nil
	case "sarif":
		return &SARIFFormatter{Version: version}, nil
	case "html":
		return &HTMLFormatter{Title: "seccode report", Version: version}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
