package output

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// SARIFFormatter outputs violations in SARIF 2.1.0 for code scanning tools
type SARIFFormatter struct {
	Version string // seccode version
}

// SARIF represents the root SARIF document
type SARIF struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single run of the tool
type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

// SARIFTool represents the tool information
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver represents the tool driver
type SARIFDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []SARIFRule `json:"rules"`
}

// SARIFRule represents a rule definition
type SARIFRule struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name,omitempty"`
	ShortDescription     SARIFMessage        `json:"shortDescription"`
	FullDescription      SARIFMessage        `json:"fullDescription"`
	Help                 SARIFMessage        `json:"help"`
	HelpURI              string              `json:"helpUri,omitempty"`
	DefaultConfiguration SARIFConfiguration  `json:"defaultConfiguration"`
	Properties           SARIFRuleProperties `json:"properties"`
}

// SARIFConfiguration holds the default level of a rule
type SARIFConfiguration struct {
	Level string `json:"level"`
}

// SARIFRuleProperties represents rule properties
type SARIFRuleProperties struct {
	Tags     []string `json:"tags,omitempty"`
	Severity string   `json:"security-severity,omitempty"`
}

// SARIFMessage represents a message
type SARIFMessage struct {
	Text string `json:"text"`
}

// SARIFResult represents a single result
type SARIFResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   SARIFMessage    `json:"message"`
	Locations  []SARIFLocation        `json:"locations"`
	Fixes      []SARIFFix             `json:"fixes,omitempty"`
	Properties *SARIFResultProperties `json:"properties,omitempty"`
}

// SARIFResultProperties lists the labels of every fix a rule offers,
// including the ones that have no textual form.
type SARIFResultProperties struct {
	Fixes []string `json:"fixes"`
}

// SARIFLocation represents a location in the source
type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

// SARIFPhysicalLocation represents a physical location
type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Region           SARIFRegion           `json:"region"`
}

// SARIFArtifactLocation represents an artifact location
type SARIFArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion represents a region in the source
type SARIFRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// SARIFFix describes one proposed fix as a textual replacement.
type SARIFFix struct {
	Description     SARIFMessage          `json:"description"`
	ArtifactChanges []SARIFArtifactChange `json:"artifactChanges"`
}

// SARIFArtifactChange represents a change to an artifact
type SARIFArtifactChange struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Replacements     []SARIFReplacement    `json:"replacements"`
}

// SARIFReplacement represents a replacement
type SARIFReplacement struct {
	DeletedRegion   SARIFRegion  `json:"deletedRegion"`
	InsertedContent SARIFMessage `json:"insertedContent"`
}

// Format implements the Formatter interface for SARIF output
func (f *SARIFFormatter) Format(violations []sdk.Violation, w io.Writer) error {
	rules, index := buildSARIFRules(violations)

	results := make([]SARIFResult, 0, len(violations))
	for _, v := range violations {
		results = append(results, buildSARIFResult(v, index[v.Rule.ID()]))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.buildSARIFDocument(rules, results))
}

// buildSARIFRules lists each reported rule once, in order of first
// appearance, and returns the index of each rule ID.
func buildSARIFRules(violations []sdk.Violation) ([]SARIFRule, map[string]int) {
	rules := []SARIFRule{}
	index := make(map[string]int)

	for _, v := range violations {
		r := v.Rule
		if _, seen := index[r.ID()]; seen {
			continue
		}
		index[r.ID()] = len(rules)
		rules = append(rules, SARIFRule{
			ID:                   r.ID(),
			Name:                 r.Name(),
			ShortDescription:     SARIFMessage{Text: r.Name()},
			FullDescription:      SARIFMessage{Text: r.Description()},
			Help:                 SARIFMessage{Text: r.Recommendation()},
			HelpURI:              HelpURI(r),
			DefaultConfiguration: SARIFConfiguration{Level: sarifLevel(r.Severity())},
			Properties: SARIFRuleProperties{
				Tags:     []string{"security", "java", strings.ToLower(r.ID()[:min(3, len(r.ID()))])},
				Severity: securitySeverity(r.Severity()),
			},
		})
	}
	return rules, index
}

func buildSARIFResult(v sdk.Violation, ruleIndex int) SARIFResult {
	artifact := SARIFArtifactLocation{
		URI:       filepath.ToSlash(v.File),
		URIBaseID: "%SRCROOT%",
	}
	result := SARIFResult{
		RuleID:    v.Rule.ID(),
		RuleIndex: ruleIndex,
		Level:     sarifLevel(v.Rule.Severity()),
		Message:   SARIFMessage{Text: v.Rule.Name()},
		Locations: []SARIFLocation{
			{
				PhysicalLocation: SARIFPhysicalLocation{
					ArtifactLocation: artifact,
					Region: SARIFRegion{
						StartLine:   max(v.Location.Start.Line, 1),
						StartColumn: v.Location.Start.Column,
						EndLine:     v.Location.End.Line,
						EndColumn:   v.Location.End.Column,
					},
				},
			},
		},
	}

	fixes := sdk.ProposedFixes(v.Rule, v.Node)
	if fixes.Len() == 0 {
		return result
	}
	result.Properties = &SARIFResultProperties{Fixes: fixes.Labels()}

	for _, fix := range fixes.All() {
		replacement, ok := textualFix(v.Node, fix.Edit)
		if !ok {
			continue
		}
		result.Fixes = append(result.Fixes, SARIFFix{
			Description: SARIFMessage{Text: fix.Label},
			ArtifactChanges: []SARIFArtifactChange{
				{ArtifactLocation: artifact, Replacements: []SARIFReplacement{replacement}},
			},
		})
	}
	return result
}

// textualFix renders a structural fix as the replacement of the smallest
// changed subtree. It fails when that subtree has no location or when the
// replacement cannot be printed as source.
func textualFix(n *syntax.Node, edit *rewrite.Edit) (SARIFReplacement, bool) {
	root := n.Root()
	fixed, err := edit.Apply(root)
	if err != nil {
		return SARIFReplacement{}, false
	}
	old, replacement, ok := rewrite.Changed(root, fixed)
	if !ok || old == nil || old.Loc.Start.Line < 1 || !syntax.Printable(replacement) {
		return SARIFReplacement{}, false
	}
	return SARIFReplacement{
		DeletedRegion: SARIFRegion{
			StartLine:   old.Loc.Start.Line,
			StartColumn: old.Loc.Start.Column,
			EndLine:     old.Loc.End.Line,
			EndColumn:   old.Loc.End.Column,
		},
		InsertedContent: SARIFMessage{Text: syntax.Print(replacement)},
	}, true
}

func (f *SARIFFormatter) buildSARIFDocument(rules []SARIFRule, results []SARIFResult) SARIF {
	return SARIF{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:           "seccode",
						Version:        f.Version,
						InformationURI: "https://github.com/santosr2/seccode",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// sarifLevel converts a rule severity to a SARIF level
func sarifLevel(severity sdk.Severity) string {
	switch severity {
	case sdk.SeverityHigh:
		return "error"
	case sdk.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// securitySeverity maps severities onto the 0-10 scale code scanning uses.
func securitySeverity(severity sdk.Severity) string {
	switch severity {
	case sdk.SeverityHigh:
		return "8.0"
	case sdk.SeverityMedium:
		return "5.0"
	default:
		return "2.0"
	}
}
