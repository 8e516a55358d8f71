// Package complexity computes cyclomatic and cognitive complexity for
// Python functions.
package complexity

import (
	"context"
	"sort"

	"github.com/panbanda/scry/internal/fileproc"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/inventory"
	"github.com/panbanda/scry/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// decisionTypes are the node types that add one cyclomatic decision
// point each. A straight-line function scores the base of 1.
var decisionTypes = makeSet([]string{
	"if_statement",
	"elif_clause",
	"conditional_expression",
	"boolean_operator",
	"for_statement",
	"while_statement",
	"except_clause",
	"case_clause",
})

// nestingTypes increment the cognitive nesting depth when entered.
var nestingTypes = makeSet([]string{
	"if_statement",
	"for_statement",
	"while_statement",
	"try_statement",
	"match_statement",
})

// flatTypes add cognitive complexity with the current depth penalty but
// do not deepen nesting.
var flatTypes = makeSet([]string{
	"elif_clause",
	"else_clause",
})

var branchTypes = makeSet([]string{
	"if_statement",
	"elif_clause",
	"conditional_expression",
	"case_clause",
})

var loopTypes = makeSet([]string{
	"for_statement",
	"while_statement",
})

// Cyclomatic returns 1 plus the number of decision points in the body.
func Cyclomatic(body *sitter.Node, source []byte) uint32 {
	if body == nil {
		return 1
	}
	var count uint32
	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if decisionTypes[nodeType] {
			count++
		}
		return true
	})
	return 1 + count
}

// Cognitive returns the cognitive complexity of the body: each control
// structure costs 1 plus its nesting depth, structures that deepen
// nesting raise the depth for everything inside them, and early exits
// inside nested code cost 1 each.
func Cognitive(body *sitter.Node, source []byte) uint32 {
	if body == nil {
		return 0
	}
	return calcCognitive(body, 0)
}

// calcCognitive recurses through the body accumulating increments.
func calcCognitive(node *sitter.Node, depth int) uint32 {
	var complexity uint32

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		childType := child.Type()

		switch {
		case nestingTypes[childType]:
			complexity += 1 + uint32(depth)
			complexity += calcCognitive(child, depth+1)
		case flatTypes[childType]:
			complexity += 1 + uint32(depth)
			complexity += calcCognitive(child, depth)
		case childType == "boolean_operator":
			complexity++
			complexity += calcCognitive(child, depth)
		case childType == "return_statement" || childType == "break_statement" || childType == "continue_statement":
			if depth > 0 {
				complexity++
			}
			complexity += calcCognitive(child, depth)
		default:
			complexity += calcCognitive(child, depth)
		}
	}

	return complexity
}

// CountBranches counts conditional constructs in the body.
func CountBranches(body *sitter.Node, source []byte) uint32 {
	return countTypes(body, source, branchTypes)
}

// CountLoops counts loop constructs in the body.
func CountLoops(body *sitter.Node, source []byte) uint32 {
	return countTypes(body, source, loopTypes)
}

func countTypes(body *sitter.Node, source []byte, types map[string]bool) uint32 {
	if body == nil {
		return 0
	}
	var count uint32
	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if types[nodeType] {
			count++
		}
		return true
	})
	return count
}

// Attach computes every complexity metric for a declaration and stores
// it on the declaration. Called during the per-file pass while the
// declaration body is still alive.
func Attach(decl *inventory.Declaration, source []byte) {
	if decl.Kind == inventory.KindClass {
		return
	}
	decl.Cyclomatic = Cyclomatic(decl.Body, source)
	decl.Cognitive = Cognitive(decl.Body, source)
	decl.BranchPoints = CountBranches(decl.Body, source)
	decl.LoopCount = CountLoops(decl.Body, source)
}

// Analyzer computes complexity metrics across a set of files.
type Analyzer struct {
	parser *parser.Parser
}

// New creates a complexity analyzer.
func New() *Analyzer {
	return &Analyzer{parser: parser.New()}
}

// AnalyzeFile computes complexity for a single file.
func (a *Analyzer) AnalyzeFile(path string) (*FileResult, error) {
	result, err := a.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return analyzeParseResult(result), nil
}

// Analyze processes all files in parallel and aggregates the results.
// Progress is tracked via context using analyzer.WithTracker.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	tracker := analyzer.TrackerFromContext(ctx)
	results, _ := fileproc.MapFiles(ctx, files, func(psr *parser.Parser, path string) (FileResult, error) {
		result, err := psr.ParseFile(path)
		if err != nil {
			return FileResult{}, err
		}
		if tracker != nil {
			tracker.Tick(path)
		}
		return *analyzeParseResult(result), nil
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	return buildAnalysis(results), nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// analyzeParseResult computes per-function metrics for one parsed file.
func analyzeParseResult(result *parser.ParseResult) *FileResult {
	fc := &FileResult{
		Path:      result.Path,
		Functions: make([]FunctionResult, 0),
	}

	for _, fn := range parser.GetFunctions(result) {
		fr := FunctionResult{
			Name:      fn.Name,
			File:      result.Path,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Metrics: Metrics{
				Cyclomatic: Cyclomatic(fn.Body, result.Source),
				Cognitive:  Cognitive(fn.Body, result.Source),
				Branches:   CountBranches(fn.Body, result.Source),
				Loops:      CountLoops(fn.Body, result.Source),
				Lines:      int(fn.EndLine - fn.StartLine + 1),
			},
		}
		fc.Functions = append(fc.Functions, fr)
		fc.TotalCyclomatic += fr.Metrics.Cyclomatic
		fc.TotalCognitive += fr.Metrics.Cognitive
	}

	if len(fc.Functions) > 0 {
		fc.AvgCyclomatic = float64(fc.TotalCyclomatic) / float64(len(fc.Functions))
		fc.AvgCognitive = float64(fc.TotalCognitive) / float64(len(fc.Functions))
	}

	return fc
}

// buildAnalysis aggregates file results into the project summary.
func buildAnalysis(results []FileResult) *Analysis {
	analysis := &Analysis{Files: results}

	var totalCyc, totalCog uint32
	var totalFuncs int

	for _, fc := range results {
		totalCyc += fc.TotalCyclomatic
		totalCog += fc.TotalCognitive
		totalFuncs += len(fc.Functions)
	}

	analysis.Summary.TotalFiles = len(results)
	analysis.Summary.TotalFunctions = totalFuncs
	if totalFuncs > 0 {
		analysis.Summary.AvgCyclomatic = float64(totalCyc) / float64(totalFuncs)
		analysis.Summary.AvgCognitive = float64(totalCog) / float64(totalFuncs)
	}

	allCyclomatic := make([]uint32, 0, totalFuncs)
	allCognitive := make([]uint32, 0, totalFuncs)

	for _, fc := range results {
		for _, fn := range fc.Functions {
			allCyclomatic = append(allCyclomatic, fn.Metrics.Cyclomatic)
			allCognitive = append(allCognitive, fn.Metrics.Cognitive)

			if fn.Metrics.Cyclomatic > analysis.Summary.MaxCyclomatic {
				analysis.Summary.MaxCyclomatic = fn.Metrics.Cyclomatic
			}
			if fn.Metrics.Cognitive > analysis.Summary.MaxCognitive {
				analysis.Summary.MaxCognitive = fn.Metrics.Cognitive
			}
		}
	}

	if len(allCyclomatic) > 0 {
		sort.Slice(allCyclomatic, func(i, j int) bool { return allCyclomatic[i] < allCyclomatic[j] })
		sort.Slice(allCognitive, func(i, j int) bool { return allCognitive[i] < allCognitive[j] })

		analysis.Summary.P50Cyclomatic = percentile(allCyclomatic, 50)
		analysis.Summary.P90Cyclomatic = percentile(allCyclomatic, 90)
		analysis.Summary.P95Cyclomatic = percentile(allCyclomatic, 95)
		analysis.Summary.P50Cognitive = percentile(allCognitive, 50)
		analysis.Summary.P90Cognitive = percentile(allCognitive, 90)
		analysis.Summary.P95Cognitive = percentile(allCognitive, 95)
	}

	return analysis
}

// percentile returns the p-th percentile of a sorted slice.
func percentile(sorted []uint32, p int) uint32 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
