// Package score turns the accumulated findings into a 0-100 quality
// score, a letter grade, and ranked recommendations.
package score

import (
	"math"
	"sort"

	"github.com/panbanda/scry/pkg/findings"
)

// DefaultDensityThreshold is the findings-per-declaration ratio above
// which a finding kind earns a recommendation.
const DefaultDensityThreshold = 0.1

// advice maps each finding kind to its fixed advisory message.
var advice = map[findings.Kind]string{
	findings.KindDeadCode:         "Remove or wire up unreferenced declarations; verify low-confidence hits before deleting.",
	findings.KindComplexFunction:  "Break complex functions into smaller units; deep nesting costs more than branch count.",
	findings.KindLongFunction:     "Split long functions and trim oversized parameter lists.",
	findings.KindNamingViolation:  "Rename declarations to match lower_snake_case functions and UpperCamelCase classes.",
	findings.KindMissingDocstring: "Document public and complex declarations with docstrings.",
	findings.KindErrorHandlingGap: "Add exception handling around IO, network, and parsing code paths.",
	findings.KindMagicNumber:      "Name magic numbers as constants or add intentional values to the allowlist.",
}

// Aggregator computes the weighted deduction model.
type Aggregator struct {
	densityThreshold float64
}

// NewAggregator creates an aggregator. A non-positive density threshold
// falls back to the default.
func NewAggregator(densityThreshold float64) *Aggregator {
	if densityThreshold <= 0 {
		densityThreshold = DefaultDensityThreshold
	}
	return &Aggregator{densityThreshold: densityThreshold}
}

// Result is the scored outcome for a project.
type Result struct {
	Score           float64  `json:"score"`
	Grade           string   `json:"grade"`
	Penalty         float64  `json:"penalty"`
	Recommendations []string `json:"recommendations"`
}

// Aggregate starts at 100 and subtracts each finding's severity weight
// scaled by its kind weight, clamping to [0,100]. totalDeclarations
// feeds the per-kind density that drives recommendations.
func (a *Aggregator) Aggregate(fs []findings.Finding, totalDeclarations int) Result {
	var penalty float64
	kindPenalty := make(map[findings.Kind]float64)
	kindCount := make(map[findings.Kind]int)

	for _, f := range fs {
		w := f.Weight()
		penalty += w
		kindPenalty[f.Kind] += w
		kindCount[f.Kind]++
	}

	score := math.Round((100-penalty)*100) / 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Score:           score,
		Grade:           Grade(score),
		Penalty:         penalty,
		Recommendations: a.recommend(kindPenalty, kindCount, totalDeclarations),
	}
}

// Grade maps a score to its letter grade.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// recommend returns the advisory messages for kinds whose finding
// density exceeds the threshold, most impactful kind first.
func (a *Aggregator) recommend(kindPenalty map[findings.Kind]float64, kindCount map[findings.Kind]int, totalDeclarations int) []string {
	if totalDeclarations <= 0 {
		return nil
	}

	var kinds []findings.Kind
	for _, kind := range findings.Kinds() {
		density := float64(kindCount[kind]) / float64(totalDeclarations)
		if density > a.densityThreshold {
			kinds = append(kinds, kind)
		}
	}

	// Order by weighted penalty, heaviest first. Starting from the
	// canonical kind order makes ties deterministic.
	sort.SliceStable(kinds, func(i, j int) bool {
		return kindPenalty[kinds[i]] > kindPenalty[kinds[j]]
	})

	recommendations := make([]string, len(kinds))
	for i, kind := range kinds {
		recommendations[i] = advice[kind]
	}
	return recommendations
}
