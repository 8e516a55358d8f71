package quality

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/scry/pkg/config"
	"github.com/panbanda/scry/pkg/findings"
	"github.com/panbanda/scry/pkg/report"
)

func writeProject(t *testing.T, files map[string]string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine
}

// branchy builds a private function with n sequential branches and no
// docstring.
func branchy(n int) string {
	var b strings.Builder
	b.WriteString("def _helper(x):\n")
	for i := 0; i < n; i++ {
		b.WriteString("    if x:\n        x += 1\n")
	}
	b.WriteString("    return x\n")
	return b.String()
}

func TestAnalyzeFiles_HelperScenario(t *testing.T) {
	paths := writeProject(t, map[string]string{"m.py": branchy(20)})

	r, err := newEngine(t).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("AnalyzeFiles: %v", err)
	}

	if got := r.CountByKind(findings.KindComplexFunction); got != 1 {
		t.Errorf("complex findings = %d, want 1", got)
	}
	if got := r.CountByKind(findings.KindMissingDocstring); got != 1 {
		t.Errorf("docstring findings = %d, want 1", got)
	}
	if got := r.CountByKind(findings.KindDeadCode); got != 1 {
		t.Errorf("dead code findings = %d, want 1", got)
	}

	for _, group := range r.Findings {
		for _, f := range group.Findings {
			if f.Name != "_helper" {
				t.Errorf("finding names %q, want _helper", f.Name)
			}
			if f.Kind == findings.KindDeadCode && f.Confidence != findings.ConfidenceHigh {
				t.Errorf("dead code confidence = %q, want high", f.Confidence)
			}
		}
	}

	// high complex (7*2.0) + high docstring (7*1.0) + medium dead (3*2.0)
	if r.Score != 73 {
		t.Errorf("Score = %v, want 73", r.Score)
	}
	if r.Grade != "B" {
		t.Errorf("Grade = %q, want B", r.Grade)
	}
}

func TestAnalyzeFiles_CleanProject(t *testing.T) {
	paths := writeProject(t, map[string]string{
		"app.py": `def greet(name):
    """Greets someone."""
    return "hello " + name

greet("world")
`,
	})

	r, err := newEngine(t).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("AnalyzeFiles: %v", err)
	}

	if r.Score != 100 {
		t.Errorf("Score = %v, want 100", r.Score)
	}
	if r.Grade != "A+" {
		t.Errorf("Grade = %q, want A+", r.Grade)
	}
	if r.TotalFindings() != 0 {
		t.Errorf("TotalFindings = %d, want 0: %+v", r.TotalFindings(), r.Findings)
	}
	if r.Metrics.TotalDeclarations != 1 {
		t.Errorf("TotalDeclarations = %d, want 1", r.Metrics.TotalDeclarations)
	}
}

func TestAnalyzeFiles_SyntaxErrorIsolated(t *testing.T) {
	paths := writeProject(t, map[string]string{
		"ok.py":     "def fine():\n    \"\"\"Doc.\"\"\"\n    return 1\n\nfine()\n",
		"broken.py": "def broken(:\n",
	})

	r, err := newEngine(t).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("AnalyzeFiles: %v", err)
	}

	if r.Metrics.FilesAnalyzed != 1 {
		t.Errorf("FilesAnalyzed = %d, want 1", r.Metrics.FilesAnalyzed)
	}
	if r.Metrics.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", r.Metrics.FilesSkipped)
	}
	if len(r.SkippedFiles) != 1 || !strings.HasSuffix(r.SkippedFiles[0].Path, "broken.py") {
		t.Errorf("SkippedFiles = %v, want broken.py", r.SkippedFiles)
	}
}

func TestAnalyzeFiles_CrossFileReferencesSurviveMerge(t *testing.T) {
	paths := writeProject(t, map[string]string{
		"lib.py": `def exported():
    """Doc."""
    return 1
`,
		"app.py": `import lib

lib.exported()
`,
	})

	r, err := newEngine(t).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("AnalyzeFiles: %v", err)
	}

	if got := r.CountByKind(findings.KindDeadCode); got != 0 {
		t.Errorf("dead code findings = %d, want 0: cross-file call must count", got)
	}
}

func TestAnalyzeFiles_FileStats(t *testing.T) {
	paths := writeProject(t, map[string]string{
		"a.py": "x = 1\n",
		"b.py": `def greet(name):
    """Doc."""
    return name

greet("x")
`,
	})

	r, err := newEngine(t).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("AnalyzeFiles: %v", err)
	}

	if len(r.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(r.Files))
	}

	empty := r.Files[0]
	if !strings.HasSuffix(empty.Path, "a.py") {
		t.Fatalf("Files[0].Path = %q, want a.py: files must sort by path", empty.Path)
	}
	if empty.Functions != 0 || empty.EstimatedTests != 0 {
		t.Errorf("empty file stats = %+v, want zero functions and tests", empty)
	}
	if empty.Maintainability != 100 {
		t.Errorf("empty file maintainability = %v, want 100", empty.Maintainability)
	}

	doc := r.Files[1]
	if doc.Functions != 1 || doc.Complexity != 1 {
		t.Errorf("documented file stats = %+v, want 1 function with cyclomatic 1", doc)
	}
	if doc.EstimatedTests != 1 {
		t.Errorf("EstimatedTests = %d, want 1", doc.EstimatedTests)
	}
	// 100 - avg cyclomatic 1*2 - avg length 3*0.5 + doc ratio 1*20
	if doc.Maintainability != 116.5 {
		t.Errorf("Maintainability = %v, want 116.5", doc.Maintainability)
	}
}

func TestMaintainabilityIndex(t *testing.T) {
	tests := []struct {
		name       string
		cyclomatic []float64
		lengths    []float64
		documented int
		withTry    int
		want       float64
	}{
		{name: "no functions", want: 100},
		{name: "fully covered", cyclomatic: []float64{3}, lengths: []float64{10}, documented: 1, withTry: 1, want: 124},
		{name: "floors at zero", cyclomatic: []float64{60}, lengths: []float64{100}, want: 0},
		{name: "rounds to tenths", cyclomatic: []float64{1, 2}, lengths: []float64{5, 6}, documented: 1, want: 104.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maintainabilityIndex(tt.cyclomatic, tt.lengths, tt.documented, tt.withTry)
			if got != tt.want {
				t.Errorf("maintainabilityIndex = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeFiles_Deterministic(t *testing.T) {
	paths := writeProject(t, map[string]string{
		"a.py": branchy(12),
		"b.py": "def orphan():\n    return [9999]\n",
		"c.py": "def used(x, y, z, q, r, s):\n    return x\n\nused(1, 2, 3, 4, 5, 6)\n",
	})

	engine := newEngine(t)

	var reports []*report.QualityReport
	for i := 0; i < 3; i++ {
		r, err := engine.AnalyzeFiles(context.Background(), paths)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		reports = append(reports, r)
	}

	first := reports[0]
	for i, r := range reports[1:] {
		if r.Score != first.Score || r.Grade != first.Grade {
			t.Errorf("run %d: score/grade %v/%s differ from %v/%s", i+1, r.Score, r.Grade, first.Score, first.Grade)
		}
		if len(r.Findings) != len(first.Findings) {
			t.Fatalf("run %d: group count %d != %d", i+1, len(r.Findings), len(first.Findings))
		}
		for g := range r.Findings {
			if r.Findings[g].Kind != first.Findings[g].Kind || r.Findings[g].Count != first.Findings[g].Count {
				t.Errorf("run %d: group %d differs", i+1, g)
			}
			for j := range r.Findings[g].Findings {
				if r.Findings[g].Findings[j].ID != first.Findings[g].Findings[j].ID {
					t.Errorf("run %d: finding order or identity differs at %d/%d", i+1, g, j)
				}
			}
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.Complexity = -1

	if _, err := New(cfg); err == nil {
		t.Fatal("New accepted a negative threshold")
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	r, err := newEngine(t).Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if r.Score != 100 {
		t.Errorf("Score = %v, want 100 for empty input", r.Score)
	}
	if r.Metrics.FilesAnalyzed != 0 {
		t.Errorf("FilesAnalyzed = %d, want 0", r.Metrics.FilesAnalyzed)
	}
}
