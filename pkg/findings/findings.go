// Package findings defines the finding variants emitted by the analyzers.
package findings

import (
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/zeebo/blake3"
)

// Kind classifies a finding.
type Kind string

const (
	KindDeadCode         Kind = "dead_code"
	KindComplexFunction  Kind = "complex_function"
	KindLongFunction     Kind = "long_function"
	KindNamingViolation  Kind = "naming_violation"
	KindMissingDocstring Kind = "missing_docstring"
	KindErrorHandlingGap Kind = "error_handling_gap"
	KindMagicNumber      Kind = "magic_number"
)

// Kinds returns all finding kinds in their canonical order. Report
// grouping and recommendation tie-breaking both use this order.
func Kinds() []Kind {
	return []Kind{
		KindDeadCode,
		KindComplexFunction,
		KindLongFunction,
		KindNamingViolation,
		KindMissingDocstring,
		KindErrorHandlingGap,
		KindMagicNumber,
	}
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Order returns the canonical position of a kind, for deterministic sorting.
func (k Kind) Order() int {
	for i, kind := range Kinds() {
		if kind == k {
			return i
		}
	}
	return len(Kinds())
}

// Severity indicates how much a finding should weigh on the score.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// Weight returns the score penalty units for a severity.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 7
	case SeverityMedium:
		return 3
	default:
		return 1
	}
}

// Confidence indicates how certain dead-code detection is. Only findings
// of KindDeadCode carry a confidence tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// String returns the string representation.
func (c Confidence) String() string {
	return string(c)
}

// Finding represents a single quality observation about a declaration.
type Finding struct {
	ID         string     `json:"id" toon:"id"`
	Kind       Kind       `json:"kind" toon:"kind"`
	Severity   Severity   `json:"severity" toon:"severity"`
	Confidence Confidence `json:"confidence,omitempty" toon:"confidence,omitempty"`
	Name       string     `json:"name" toon:"name"`
	File       string     `json:"file" toon:"file"`
	Line       uint32     `json:"line" toon:"line"`
	Detail     string     `json:"detail" toon:"detail"`
}

// New creates a finding with a deterministic BLAKE3 identity derived from
// its kind and declaration context.
func New(kind Kind, severity Severity, name, file string, line uint32, detail string) Finding {
	return Finding{
		ID:       contextID(kind, name, file, line),
		Kind:     kind,
		Severity: severity,
		Name:     name,
		File:     file,
		Line:     line,
		Detail:   detail,
	}
}

// contextID generates a short BLAKE3 hash for deduplication.
func contextID(kind Kind, name, file string, line uint32) string {
	data := string(kind) + ":" + name + ":" + file + ":" + strconv.FormatUint(uint64(line), 10)
	hash := blake3.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// Weight returns the combined penalty of a finding: severity weight
// multiplied by the kind weight.
func (f Finding) Weight() float64 {
	return f.Severity.Weight() * KindWeight(f.Kind)
}

// KindWeight returns the score multiplier for a finding kind. Structural
// problems (dead code, complexity) weigh more than stylistic ones.
func KindWeight(kind Kind) float64 {
	switch kind {
	case KindDeadCode, KindComplexFunction:
		return 2.0
	case KindErrorHandlingGap:
		return 1.5
	case KindLongFunction, KindMissingDocstring:
		return 1.0
	default: // naming, magic numbers
		return 0.5
	}
}

// Sort orders findings deterministically: kind order, then file, line, name.
func Sort(list []Finding) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Kind != b.Kind {
			return a.Kind.Order() < b.Kind.Order()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
}

// GroupByKind buckets findings by kind, preserving input order within
// each bucket.
func GroupByKind(list []Finding) map[Kind][]Finding {
	groups := make(map[Kind][]Finding)
	for _, f := range list {
		groups[f.Kind] = append(groups[f.Kind], f)
	}
	return groups
}
