// Package report defines the QualityReport, the durable contract other
// tooling consumes. The JSON form is validated against an embedded
// schema before it is persisted.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panbanda/scry/pkg/findings"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ProjectMetrics aggregates project-wide structural statistics.
type ProjectMetrics struct {
	FilesAnalyzed     int     `json:"files_analyzed"`
	FilesSkipped      int     `json:"files_skipped"`
	TotalDeclarations int     `json:"total_declarations"`
	TotalBranches     uint32  `json:"total_branches"`
	TotalLoops        uint32  `json:"total_loops"`
	AvgCyclomatic     float64 `json:"avg_cyclomatic"`
	P95Cyclomatic     float64 `json:"p95_cyclomatic"`
}

// FileStats carries the per-file structural summary: how many functions
// a file holds, its summed cyclomatic complexity, a floor on the number
// of test cases needed to cover its branches, and a maintainability
// index starting from 100 where complexity and function length subtract
// and docstring and error-handling coverage add back. Floored at zero.
type FileStats struct {
	Path            string  `json:"path"`
	Functions       int     `json:"functions"`
	Complexity      uint32  `json:"complexity"`
	EstimatedTests  int     `json:"estimated_tests"`
	Maintainability float64 `json:"maintainability"`
}

// SkippedFile records a file excluded from analysis and why.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// KindGroup holds the findings of one kind. Groups appear in the
// canonical kind order so repeated runs serialize identically.
type KindGroup struct {
	Kind     findings.Kind      `json:"kind"`
	Count    int                `json:"count"`
	Findings []findings.Finding `json:"findings"`
}

// QualityReport is the full analysis result.
type QualityReport struct {
	Score           float64        `json:"score"`
	Grade           string         `json:"grade"`
	Metrics         ProjectMetrics `json:"metrics"`
	Findings        []KindGroup    `json:"findings"`
	Recommendations []string       `json:"recommendations"`
	Files           []FileStats    `json:"files,omitempty"`
	SkippedFiles    []SkippedFile  `json:"skipped_files,omitempty"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// New assembles a report, grouping and ordering the findings.
func New(score float64, grade string, metrics ProjectMetrics, fs []findings.Finding, recommendations []string, files []FileStats, skipped []SkippedFile) *QualityReport {
	findings.Sort(fs)

	byKind := findings.GroupByKind(fs)
	var groups []KindGroup
	for _, kind := range findings.Kinds() {
		if group := byKind[kind]; len(group) > 0 {
			groups = append(groups, KindGroup{Kind: kind, Count: len(group), Findings: group})
		}
	}

	return &QualityReport{
		Score:           score,
		Grade:           grade,
		Metrics:         metrics,
		Findings:        groups,
		Recommendations: recommendations,
		Files:           files,
		SkippedFiles:    skipped,
		GeneratedAt:     time.Now().UTC(),
	}
}

// TotalFindings returns the number of findings across all kinds.
func (r *QualityReport) TotalFindings() int {
	total := 0
	for _, group := range r.Findings {
		total += group.Count
	}
	return total
}

// CountByKind returns the number of findings for one kind.
func (r *QualityReport) CountByKind(kind findings.Kind) int {
	for _, group := range r.Findings {
		if group.Kind == kind {
			return group.Count
		}
	}
	return 0
}

// Marshal encodes the report and validates it against the embedded
// schema, so a report that violates the persisted contract never leaves
// the process.
func (r *QualityReport) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Unmarshal parses and validates a persisted report.
func Unmarshal(data []byte) (*QualityReport, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var r QualityReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}

// schemaText is the persisted-report contract. Kept intentionally
// minimal: it pins the fields other tooling depends on, not every
// detail of the internal structs.
const schemaText = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["score", "grade", "metrics", "findings", "recommendations", "generated_at"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "grade": {"enum": ["A+", "A", "B", "C", "D", "F"]},
    "metrics": {
      "type": "object",
      "required": ["files_analyzed", "files_skipped", "total_declarations"],
      "properties": {
        "files_analyzed": {"type": "integer", "minimum": 0},
        "files_skipped": {"type": "integer", "minimum": 0},
        "total_declarations": {"type": "integer", "minimum": 0},
        "total_branches": {"type": "integer", "minimum": 0},
        "total_loops": {"type": "integer", "minimum": 0},
        "avg_cyclomatic": {"type": "number", "minimum": 0},
        "p95_cyclomatic": {"type": "number", "minimum": 0}
      }
    },
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "count", "findings"],
        "properties": {
          "kind": {
            "enum": ["dead_code", "complex_function", "long_function", "naming_violation",
                     "missing_docstring", "error_handling_gap", "magic_number"]
          },
          "count": {"type": "integer", "minimum": 1},
          "findings": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "kind", "severity", "name", "file", "line"],
              "properties": {
                "id": {"type": "string"},
                "severity": {"enum": ["low", "medium", "high"]},
                "confidence": {"enum": ["low", "medium", "high"]},
                "name": {"type": "string"},
                "file": {"type": "string"},
                "line": {"type": "integer", "minimum": 1}
              }
            }
          }
        }
      }
    },
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "functions", "complexity", "estimated_tests", "maintainability"],
        "properties": {
          "path": {"type": "string"},
          "functions": {"type": "integer", "minimum": 0},
          "complexity": {"type": "integer", "minimum": 0},
          "estimated_tests": {"type": "integer", "minimum": 0},
          "maintainability": {"type": "number", "minimum": 0}
        }
      }
    },
    "skipped_files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "reason"],
        "properties": {
          "path": {"type": "string"},
          "reason": {"type": "string"}
        }
      }
    },
    "generated_at": {"type": "string"}
  }
}`

// compiledSchema is built once at init; the schema is a compile-time
// constant so failure here is a programming defect.
var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(schemaText)))
	if err != nil {
		panic(fmt.Sprintf("report schema is not valid JSON: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("quality-report.json", doc); err != nil {
		panic(fmt.Sprintf("report schema rejected: %v", err))
	}
	schema, err := compiler.Compile("quality-report.json")
	if err != nil {
		panic(fmt.Sprintf("report schema does not compile: %v", err))
	}
	return schema
}

// ValidateJSON checks raw report JSON against the persisted contract.
func ValidateJSON(data []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("report is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(instance); err != nil {
		return fmt.Errorf("report violates persisted contract: %w", err)
	}
	return nil
}
