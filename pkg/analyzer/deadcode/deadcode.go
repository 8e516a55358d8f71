// Package deadcode finds declarations with no observed references and
// classifies how confident the detection is. The detector is a
// heuristic over statically visible references, not a whole-program
// reachability proof.
package deadcode

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/scry/internal/fileproc"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/findings"
	"github.com/panbanda/scry/pkg/inventory"
	"github.com/panbanda/scry/pkg/parser"
)

// Disclaimer explains the confidence tier semantics. Renderers include
// it alongside dead-code findings.
const Disclaimer = "Dead-code detection is heuristic: high = private with zero references, " +
	"medium = public with zero references, low = zero direct references but the name " +
	"appears in dynamic-dispatch-prone contexts and may be reached at runtime."

// ReachabilitySet tracks which declaration ids have at least one
// reference, backed by a Roaring bitmap. Safe for concurrent use.
type ReachabilitySet struct {
	bitmap *roaring.Bitmap
	mu     sync.RWMutex
}

// NewReachabilitySet creates an empty set.
func NewReachabilitySet() *ReachabilitySet {
	return &ReachabilitySet{bitmap: roaring.New()}
}

// MarkMany records a batch of referenced declaration ids.
func (s *ReachabilitySet) MarkMany(ids []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.AddMany(ids)
}

// Contains reports whether an id was marked.
func (s *ReachabilitySet) Contains(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.Contains(id)
}

// Count returns the number of marked ids.
func (s *ReachabilitySet) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.GetCardinality()
}

// Policy controls which zero-reference declarations are suppressed as
// likely false positives.
type Policy struct {
	// EntryPoints are base names that frameworks or interpreters invoke.
	EntryPoints []string
	// DecoratorPrefixes suppress declarations carrying a registration
	// or test-framework decorator. Matched against the decorator's
	// dotted name by prefix.
	DecoratorPrefixes []string
	// NamePrefixes suppress interface-override and framework-callback
	// naming conventions.
	NamePrefixes []string
}

// DefaultPolicy returns the exclusions applied when no configuration
// overrides them.
func DefaultPolicy() Policy {
	return Policy{
		EntryPoints: []string{"main", "__main__", "run", "cli"},
		DecoratorPrefixes: []string{
			"pytest", "unittest", "staticmethod", "classmethod",
			"property", "app.route", "route", "register", "override",
			"abstractmethod", "abc.abstractmethod",
		},
		NamePrefixes: []string{"test_", "setup_", "teardown_", "visit_", "on_", "handle_", "do_"},
	}
}

// Detector classifies unreferenced declarations.
type Detector struct {
	policy Policy
}

// NewDetector creates a detector with the given exclusion policy.
func NewDetector(policy Policy) *Detector {
	return &Detector{policy: policy}
}

// Detect runs over the merged project state. Declarations must already
// carry project-wide ids (inventory.AssignIDs). Findings come back in
// unit order, which is deterministic when the units are sorted.
func (d *Detector) Detect(units []*inventory.SourceUnit, refs *inventory.ReferenceIndex) []findings.Finding {
	reachable := NewReachabilitySet()
	for _, unit := range units {
		ids := make([]uint32, 0, len(unit.Declarations))
		for i := range unit.Declarations {
			decl := &unit.Declarations[i]
			if refs.Count(decl.BaseName()) > 0 {
				ids = append(ids, decl.ID)
			}
		}
		reachable.MarkMany(ids)
	}

	var out []findings.Finding
	for _, unit := range units {
		for i := range unit.Declarations {
			decl := &unit.Declarations[i]
			if reachable.Contains(decl.ID) || d.excluded(decl) {
				continue
			}
			out = append(out, d.classify(decl, refs))
		}
	}
	return out
}

// excluded applies the false-positive suppression policy.
func (d *Detector) excluded(decl *inventory.Declaration) bool {
	name := decl.BaseName()

	if decl.IsDunder() {
		return true
	}
	for _, entry := range d.policy.EntryPoints {
		if name == entry {
			return true
		}
	}
	for _, prefix := range d.policy.NamePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, deco := range decl.Decorators {
		for _, prefix := range d.policy.DecoratorPrefixes {
			if deco == prefix || strings.HasPrefix(deco, prefix+".") {
				return true
			}
		}
	}
	return false
}

// classify assigns the confidence tier for an unreferenced declaration.
func (d *Detector) classify(decl *inventory.Declaration, refs *inventory.ReferenceIndex) findings.Finding {
	mentions := refs.Mentions(decl.BaseName())

	var confidence findings.Confidence
	var detail string
	switch {
	case len(mentions) > 0:
		confidence = findings.ConfidenceLow
		contexts := make([]string, len(mentions))
		for i, m := range mentions {
			contexts[i] = string(m)
		}
		detail = fmt.Sprintf("no direct references, but name appears in dynamic contexts: %s",
			strings.Join(contexts, ", "))
	case decl.IsPrivate():
		confidence = findings.ConfidenceHigh
		detail = fmt.Sprintf("private %s with no references anywhere", decl.Kind)
	default:
		confidence = findings.ConfidenceMedium
		detail = fmt.Sprintf("public %s with no references project-wide", decl.Kind)
	}

	severity := findings.SeverityMedium
	if confidence == findings.ConfidenceLow {
		severity = findings.SeverityLow
	}

	f := findings.New(findings.KindDeadCode, severity, decl.Name, decl.File, decl.StartLine, detail)
	f.Confidence = confidence
	return f
}

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer runs standalone dead-code analysis over a set of files.
type Analyzer struct {
	parser   *parser.Parser
	detector *Detector
}

// New creates an analyzer with the default policy.
func New() *Analyzer {
	return NewWithPolicy(DefaultPolicy())
}

// NewWithPolicy creates an analyzer with a custom exclusion policy.
func NewWithPolicy(policy Policy) *Analyzer {
	return &Analyzer{
		parser:   parser.New(),
		detector: NewDetector(policy),
	}
}

// fileState is the per-file output of the parallel pass.
type fileState struct {
	unit *inventory.SourceUnit
	refs *inventory.FileReferences
}

// Analyze builds the project inventory and reference index in parallel,
// then classifies unreferenced declarations after the merge barrier.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	tracker := analyzer.TrackerFromContext(ctx)
	states, _ := fileproc.MapFiles(ctx, files, func(psr *parser.Parser, path string) (fileState, error) {
		result, err := psr.ParseFile(path)
		if err != nil {
			return fileState{}, err
		}
		if tracker != nil {
			tracker.Tick(path)
		}
		return fileState{
			unit: inventory.Build(result),
			refs: inventory.CollectReferences(result),
		}, nil
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(states, func(i, j int) bool { return states[i].unit.Path < states[j].unit.Path })

	units := make([]*inventory.SourceUnit, len(states))
	fileRefs := make([]*inventory.FileReferences, len(states))
	for i, st := range states {
		units[i] = st.unit
		fileRefs[i] = st.refs
	}

	inventory.AssignIDs(units)
	refs := inventory.Merge(fileRefs)

	return buildAnalysis(units, a.detector.Detect(units, refs)), nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// buildAnalysis aggregates findings into the summary counts.
func buildAnalysis(units []*inventory.SourceUnit, dead []findings.Finding) *Analysis {
	analysis := &Analysis{
		Findings: dead,
		Summary: Summary{
			TotalFiles:   len(units),
			ByConfidence: make(map[findings.Confidence]int),
			ByFile:       make(map[string]int),
		},
	}

	for _, unit := range units {
		analysis.Summary.TotalDeclarations += len(unit.Declarations)
	}
	for _, f := range dead {
		analysis.Summary.DeadDeclarations++
		analysis.Summary.ByConfidence[f.Confidence]++
		analysis.Summary.ByFile[f.File]++
	}

	return analysis
}
