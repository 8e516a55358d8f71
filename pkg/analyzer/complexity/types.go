package complexity

// Metrics holds the complexity measurements for one function.
type Metrics struct {
	Cyclomatic uint32 `json:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive"`
	Branches   uint32 `json:"branches"`
	Loops      uint32 `json:"loops"`
	Lines      int    `json:"lines"`
}

// FunctionResult is the complexity of a single function.
type FunctionResult struct {
	Name      string  `json:"name"`
	File      string  `json:"file"`
	StartLine uint32  `json:"start_line"`
	EndLine   uint32  `json:"end_line"`
	Metrics   Metrics `json:"metrics"`
}

// FileResult aggregates function complexity for one file.
type FileResult struct {
	Path            string           `json:"path"`
	Functions       []FunctionResult `json:"functions"`
	TotalCyclomatic uint32           `json:"total_cyclomatic"`
	TotalCognitive  uint32           `json:"total_cognitive"`
	AvgCyclomatic   float64          `json:"avg_cyclomatic"`
	AvgCognitive    float64          `json:"avg_cognitive"`
}

// Analysis is the full project result.
type Analysis struct {
	Files   []FileResult `json:"files"`
	Summary Summary      `json:"summary"`
}

// Summary provides aggregate statistics across all functions.
type Summary struct {
	TotalFiles     int     `json:"total_files"`
	TotalFunctions int     `json:"total_functions"`
	AvgCyclomatic  float64 `json:"avg_cyclomatic"`
	AvgCognitive   float64 `json:"avg_cognitive"`
	MaxCyclomatic  uint32  `json:"max_cyclomatic"`
	MaxCognitive   uint32  `json:"max_cognitive"`
	P50Cyclomatic  uint32  `json:"p50_cyclomatic"`
	P90Cyclomatic  uint32  `json:"p90_cyclomatic"`
	P95Cyclomatic  uint32  `json:"p95_cyclomatic"`
	P50Cognitive   uint32  `json:"p50_cognitive"`
	P90Cognitive   uint32  `json:"p90_cognitive"`
	P95Cognitive   uint32  `json:"p95_cognitive"`
}
