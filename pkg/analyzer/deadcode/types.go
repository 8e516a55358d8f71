package deadcode

import "github.com/panbanda/scry/pkg/findings"

// Analysis is the standalone dead-code result for a set of files.
type Analysis struct {
	Findings []findings.Finding `json:"findings"`
	Summary  Summary            `json:"summary"`
}

// Summary aggregates detection counts.
type Summary struct {
	TotalFiles        int                         `json:"total_files"`
	TotalDeclarations int                         `json:"total_declarations"`
	DeadDeclarations  int                         `json:"dead_declarations"`
	ByConfidence      map[findings.Confidence]int `json:"by_confidence"`
	ByFile            map[string]int              `json:"by_file"`
}
