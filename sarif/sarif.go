// Package sarif ingests SARIF (Static Analysis Results Interchange
// Format) reports from external static analyzers and turns their
// findings into the core's only external input shape: a []cfg.Location
// target set. It never talks to search.Coordinator directly - only
// cmd/klee-search wires the two together - matching the core's own
// "SARIF ingestion is an external collaborator" boundary.
package sarif

import (
	"encoding/json"
	"io"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/Columpio/klee/cfg"
)

// Category mirrors the rule-name-to-bug-class mapping each analyzer's
// driver performs with its own vocabulary of rule IDs.
type Category string

const (
	CategoryReachable                Category = "Reachable"
	CategoryDoubleFree                Category = "DoubleFree"
	CategoryUseAfterFree              Category = "UseAfterFree"
	CategoryMayBeNullDeref            Category = "MayBeNullPointerException"
	CategoryMustBeNullDeref           Category = "MustBeNullPointerException"
	CategoryNullCheckAfterDeref       Category = "NullCheckAfterDerefException"
)

// reportJSON/runJSON/... mirror just the subset of the SARIF 2.1.0
// schema the ingest layer reads; everything else in a real report is
// ignored rather than modeled.
type reportJSON struct {
	Schema string    `json:"$schema"`
	Runs   []runJSON `json:"runs"`
}

type runJSON struct {
	Tool    toolJSON     `json:"tool"`
	Results []resultJSON `json:"results"`
}

type toolJSON struct {
	Driver driverJSON `json:"driver"`
}

type driverJSON struct {
	Name            string `json:"name"`
	SemanticVersion string `json:"semanticVersion"`
}

type resultJSON struct {
	RuleID    string           `json:"ruleId"`
	Message   messageJSON      `json:"message"`
	Locations []locationJSON   `json:"locations"`
}

type messageJSON struct {
	Text string `json:"text"`
}

type locationJSON struct {
	PhysicalLocation physicalLocationJSON `json:"physicalLocation"`
}

type physicalLocationJSON struct {
	ArtifactLocation artifactLocationJSON `json:"artifactLocation"`
	Region           regionJSON           `json:"region"`
}

type artifactLocationJSON struct {
	URI string `json:"uri"`
}

type regionJSON struct {
	StartLine int `json:"startLine"`
}

// Finding is one ingested SARIF result: a source position plus the bug
// category the driver's rule ID was mapped to.
type Finding struct {
	ArtifactURI string
	Line        int
	Categories  []Category
	Message     string
}

// Report is the filtered, tool-agnostic result of ingesting a SARIF
// document: only the fields the core's target-extraction step needs.
type Report struct {
	ToolName string
	Findings []Finding
}

// ruleTable maps a (toolName, ruleId) pair to the bug categories the
// teacher's analyzer-specific drivers recognize. An empty slice means
// the rule is not understood by this ingest layer and its result is
// dropped, mirroring the source's "undefined error" warn-and-skip path.
var ruleTable = map[string]map[string][]Category{
	"SecB": {
		"NullDereference":  {CategoryMustBeNullDeref},
		"CheckAfterDeref":  {CategoryNullCheckAfterDeref},
		"DoubleFree":       {CategoryDoubleFree},
		"UseAfterFree":     {CategoryUseAfterFree},
		"Reached":          {CategoryReachable},
	},
	"clang": {
		"core.NullDereference": {CategoryMayBeNullDeref, CategoryMustBeNullDeref},
		"core.Reach":           {CategoryReachable},
	},
	"CppCheck": {
		"nullPointer":    {CategoryMayBeNullDeref, CategoryMustBeNullDeref},
		"ctunullpointer": {CategoryMayBeNullDeref, CategoryMustBeNullDeref},
		"doubleFree":     {CategoryDoubleFree},
	},
	"Infer": {
		"NULL_DEREFERENCE":    {CategoryMayBeNullDeref, CategoryMustBeNullDeref},
		"NULLPTR_DEREFERENCE": {CategoryMayBeNullDeref, CategoryMustBeNullDeref},
		"USE_AFTER_DELETE":    {CategoryUseAfterFree, CategoryDoubleFree},
		"USE_AFTER_FREE":      {CategoryUseAfterFree, CategoryDoubleFree},
	},
}

func categoriesFor(toolName, ruleID string) []Category {
	rules, ok := ruleTable[toolName]
	if !ok {
		return nil
	}
	return rules[ruleID]
}

// minSupportedSchema is the oldest SARIF $schema this ingest layer
// accepts; older/newer-major reports are rejected rather than
// misparsed.
var minSupportedSchema = mustConstraint(">= 2.1.0, < 3.0.0")

func mustConstraint(s string) semver.Constraint {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic("canary - sarif: bad built-in version constraint: " + err.Error())
	}
	return c
}

// ErrUnsupportedSchema is returned when a report's $schema version falls
// outside what this ingest layer understands. A run's tool
// semanticVersion is decoded but not checked.
var ErrUnsupportedSchema = errors.New("sarif: unsupported schema/tool version")

func validateSchemaVersion(schema string) error {
	if schema == "" {
		return nil
	}
	v, err := extractSchemaVersion(schema)
	if err != nil {
		// Unrecognized $schema URL shape: not fatal, just unchecked.
		return nil
	}
	if !v.MatchesAny(minSupportedSchema) {
		return errors.Wrapf(ErrUnsupportedSchema, "schema %q", schema)
	}
	return nil
}

// extractSchemaVersion pulls a semver out of a SARIF $schema URL of the
// conventional shape ".../sarif-schema-2.1.0.json".
func extractSchemaVersion(schema string) (*semver.Version, error) {
	start := -1
	for i := 0; i < len(schema); i++ {
		if schema[i] >= '0' && schema[i] <= '9' {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, errors.Errorf("sarif: no version found in %q", schema)
	}
	end := start
	for end < len(schema) && (schema[end] == '.' || (schema[end] >= '0' && schema[end] <= '9')) {
		end++
	}
	return semver.NewVersion(schema[start:end])
}

// Ingest parses a SARIF document from r and filters it down to the
// findings this ingest layer recognizes, the Go-native equivalent of
// convertAndFilterSarifJson: results whose rule maps to no known
// category are dropped rather than erroring the whole report.
func Ingest(r io.Reader) (Report, error) {
	var doc reportJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Report{}, errors.Wrap(err, "sarif: failed to decode report")
	}
	if err := validateSchemaVersion(doc.Schema); err != nil {
		return Report{}, err
	}
	if len(doc.Runs) == 0 {
		return Report{}, nil
	}
	run := doc.Runs[0]
	report := Report{ToolName: run.Tool.Driver.Name}

	for _, res := range run.Results {
		cats := categoriesFor(report.ToolName, res.RuleID)
		if len(cats) == 0 {
			continue
		}
		if len(res.Locations) == 0 {
			continue
		}
		loc := res.Locations[0].PhysicalLocation
		if loc.ArtifactLocation.URI == "" || loc.Region.StartLine == 0 {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			ArtifactURI: loc.ArtifactLocation.URI,
			Line:        loc.Region.StartLine,
			Categories:  cats,
			Message:     res.Message.Text,
		})
	}
	return report, nil
}

// LocationResolver maps a SARIF finding's (file, line) source position
// to a cfg.Location. Resolution requires knowledge of the loaded
// module's debug info, which is outside this package's and the core's
// scope (see the Non-goals around an LLVM bitcode loader); cmd/klee-
// search supplies a concrete implementation.
type LocationResolver interface {
	Resolve(artifactURI string, line int) (cfg.Location, bool)
}

// Targets resolves every finding in report through resolver, producing
// the []cfg.Location target set search.Config.Targets expects. Findings
// that fail to resolve are skipped rather than failing the whole batch.
func Targets(report Report, resolver LocationResolver) []cfg.Location {
	seen := make(map[cfg.Location]bool)
	var out []cfg.Location
	for _, f := range report.Findings {
		loc, ok := resolver.Resolve(f.ArtifactURI, f.Line)
		if !ok || seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	return out
}
