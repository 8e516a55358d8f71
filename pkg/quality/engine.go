// Package quality wires the per-file passes, the cross-file merge, and
// the scoring into one engine behind a single Analyze call.
package quality

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/panbanda/scry/internal/fileproc"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/analyzer/complexity"
	"github.com/panbanda/scry/pkg/analyzer/deadcode"
	"github.com/panbanda/scry/pkg/analyzer/rules"
	"github.com/panbanda/scry/pkg/analyzer/score"
	"github.com/panbanda/scry/pkg/config"
	"github.com/panbanda/scry/pkg/findings"
	"github.com/panbanda/scry/pkg/inventory"
	"github.com/panbanda/scry/pkg/parser"
	"github.com/panbanda/scry/pkg/report"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"
)

// Engine runs the full analysis pipeline.
type Engine struct {
	rules      *rules.Engine
	detector   *deadcode.Detector
	aggregator *score.Aggregator
}

// New builds an engine from a validated configuration.
func New(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		rules:      rules.NewEngine(cfg.Rules()),
		detector:   deadcode.NewDetector(cfg.Policy()),
		aggregator: score.NewAggregator(cfg.Thresholds.RecommendationDensity),
	}, nil
}

// fileState is everything one per-file pass produces. Declarations no
// longer carry live tree nodes once the pass returns.
type fileState struct {
	unit     *inventory.SourceUnit
	refs     *inventory.FileReferences
	findings []findings.Finding
}

// Analyze runs the pipeline over already-parsed trees. Files whose tree
// contains syntax errors are skipped and surfaced as report warnings.
// Deterministic for identical input.
func (e *Engine) Analyze(ctx context.Context, parsed []*parser.ParseResult) (*report.QualityReport, error) {
	return e.analyze(ctx, parsed, nil)
}

// AnalyzeFiles reads, parses, and analyzes files from the filesystem.
func (e *Engine) AnalyzeFiles(ctx context.Context, files []string) (*report.QualityReport, error) {
	parsed, procErrs := fileproc.MapFiles(ctx, files, func(psr *parser.Parser, path string) (*parser.ParseResult, error) {
		return psr.ParseFile(path)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var skipped []report.SkippedFile
	if procErrs != nil {
		for _, pe := range procErrs.Errors {
			skipped = append(skipped, report.SkippedFile{Path: pe.Path, Reason: pe.Err.Error()})
		}
	}

	return e.analyze(ctx, parsed, skipped)
}

// analyze is the shared pipeline: parallel per-file passes, the merge
// barrier, then dead-code detection and aggregation over project state.
func (e *Engine) analyze(ctx context.Context, parsed []*parser.ParseResult, skipped []report.SkippedFile) (*report.QualityReport, error) {
	var (
		mu     sync.Mutex
		states []*fileState
	)

	tracker := analyzer.TrackerFromContext(ctx)
	p := pool.New().WithMaxGoroutines(fileproc.MaxWorkers()).WithContext(ctx)
	for _, result := range parsed {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if tracker != nil {
					tracker.Tick(result.Path)
				}
			}()

			if result.HasSyntaxErrors() {
				mu.Lock()
				skipped = append(skipped, report.SkippedFile{Path: result.Path, Reason: "syntax errors"})
				mu.Unlock()
				return nil
			}

			st := e.processFile(result)

			mu.Lock()
			states = append(states, st)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	// Barrier passed: nothing below reads a parse tree, and the
	// reference index is only merged from completed per-file passes.
	sort.Slice(states, func(i, j int) bool { return states[i].unit.Path < states[j].unit.Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	units := make([]*inventory.SourceUnit, len(states))
	fileRefs := make([]*inventory.FileReferences, len(states))
	var all []findings.Finding
	for i, st := range states {
		units[i] = st.unit
		fileRefs[i] = st.refs
		all = append(all, st.findings...)
	}

	inventory.AssignIDs(units)
	refs := inventory.Merge(fileRefs)
	all = append(all, e.detector.Detect(units, refs)...)

	metrics := projectMetrics(units, len(skipped))
	result := e.aggregator.Aggregate(all, metrics.TotalDeclarations)

	return report.New(result.Score, result.Grade, metrics, all, result.Recommendations, fileStats(units), skipped), nil
}

// processFile runs the inventory, complexity, and rule passes for one
// parsed file.
func (e *Engine) processFile(result *parser.ParseResult) *fileState {
	unit := inventory.Build(result)
	for i := range unit.Declarations {
		complexity.Attach(&unit.Declarations[i], result.Source)
	}

	st := &fileState{
		unit:     unit,
		refs:     inventory.CollectReferences(result),
		findings: e.rules.CheckUnit(unit),
	}

	// Drop tree references so nothing downstream can touch a node
	// after the pass completes.
	for i := range unit.Declarations {
		unit.Declarations[i].Body = nil
	}

	return st
}

// projectMetrics aggregates the structural statistics for the report.
func projectMetrics(units []*inventory.SourceUnit, skippedCount int) report.ProjectMetrics {
	metrics := report.ProjectMetrics{
		FilesAnalyzed: len(units),
		FilesSkipped:  skippedCount,
	}

	var cyclomatic []float64
	for _, unit := range units {
		metrics.TotalDeclarations += len(unit.Declarations)
		for _, decl := range unit.Declarations {
			if decl.Kind == inventory.KindClass {
				continue
			}
			metrics.TotalBranches += decl.BranchPoints
			metrics.TotalLoops += decl.LoopCount
			cyclomatic = append(cyclomatic, float64(decl.Cyclomatic))
		}
	}

	if len(cyclomatic) > 0 {
		sort.Float64s(cyclomatic)
		metrics.AvgCyclomatic = stat.Mean(cyclomatic, nil)
		metrics.P95Cyclomatic = stat.Quantile(0.95, stat.Empirical, cyclomatic, nil)
	}

	return metrics
}

// fileStats summarizes each analyzed file. Estimated tests is a floor,
// not a target: every branch wants at least one case, and every
// function wants at least one even when it never branches.
func fileStats(units []*inventory.SourceUnit) []report.FileStats {
	stats := make([]report.FileStats, 0, len(units))
	for _, unit := range units {
		fs := report.FileStats{Path: unit.Path}

		var documented, withTry int
		var lengths, cyclomatic []float64
		for _, decl := range unit.Declarations {
			if decl.Kind == inventory.KindClass {
				continue
			}
			fs.Functions++
			fs.Complexity += decl.Cyclomatic
			cyclomatic = append(cyclomatic, float64(decl.Cyclomatic))
			lengths = append(lengths, float64(decl.EndLine-decl.StartLine+1))
			if decl.HasDocstring {
				documented++
			}
			if decl.HasTryBlock {
				withTry++
			}
		}

		fs.EstimatedTests = max(int(fs.Complexity), fs.Functions)
		fs.Maintainability = maintainabilityIndex(cyclomatic, lengths, documented, withTry)
		stats = append(stats, fs)
	}
	return stats
}

// maintainabilityIndex scores one file starting from 100: average
// complexity and average function length pull the score down, docstring
// and error-handling coverage push it back up. Floored at zero; a file
// with no functions scores a flat 100.
func maintainabilityIndex(cyclomatic, lengths []float64, documented, withTry int) float64 {
	n := len(cyclomatic)
	if n == 0 {
		return 100
	}

	docRatio := float64(documented) / float64(n)
	tryRatio := float64(withTry) / float64(n)

	mi := 100 - stat.Mean(cyclomatic, nil)*2 - stat.Mean(lengths, nil)*0.5 + docRatio*20 + tryRatio*15
	return math.Max(0, math.Round(mi*10)/10)
}
