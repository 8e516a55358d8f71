package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/scry/pkg/analyzer/complexity"
	"github.com/panbanda/scry/pkg/findings"
	"github.com/panbanda/scry/pkg/inventory"
	"github.com/panbanda/scry/pkg/parser"
)

// buildDecls parses source and returns its declarations with complexity
// metrics attached, the way the per-file pass does.
func buildDecls(t *testing.T, source string) []inventory.Declaration {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.py")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}

	unit := inventory.Build(result)
	for i := range unit.Declarations {
		complexity.Attach(&unit.Declarations[i], result.Source)
	}
	return unit.Declarations
}

// findKind returns the first finding of the given kind, or nil.
func findKind(fs []findings.Finding, kind findings.Kind) *findings.Finding {
	for i := range fs {
		if fs[i].Kind == kind {
			return &fs[i]
		}
	}
	return nil
}

// branchyBody builds a function with n sequential if statements.
func branchyBody(name string, n int) string {
	var b strings.Builder
	b.WriteString("def " + name + "(x):\n")
	for i := 0; i < n; i++ {
		b.WriteString("    if x:\n        x += 1\n")
	}
	b.WriteString("    return x\n")
	return b.String()
}

func TestCheckNaming(t *testing.T) {
	decls := buildDecls(t, `def BadName():
    """Doc."""
    pass

def good_name():
    """Doc."""
    pass

class widget_factory:
    """Doc."""

class Widget:
    """Doc."""
`)

	engine := NewEngine(DefaultConfig())

	byName := map[string][]findings.Finding{}
	for i := range decls {
		byName[decls[i].Name] = engine.Check(&decls[i])
	}

	if f := findKind(byName["BadName"], findings.KindNamingViolation); f == nil {
		t.Error("BadName: expected naming violation")
	} else if f.Severity != findings.SeverityLow {
		t.Errorf("BadName severity = %q, want low", f.Severity)
	}
	if findKind(byName["good_name"], findings.KindNamingViolation) != nil {
		t.Error("good_name: unexpected naming violation")
	}
	if findKind(byName["widget_factory"], findings.KindNamingViolation) == nil {
		t.Error("widget_factory: expected naming violation for class")
	}
	if findKind(byName["Widget"], findings.KindNamingViolation) != nil {
		t.Error("Widget: unexpected naming violation")
	}
}

func TestCheckNaming_TestNamesExempt(t *testing.T) {
	decls := buildDecls(t, `def test_HTTPServer_Start():
    """Doc."""
    pass
`)

	engine := NewEngine(DefaultConfig())
	for i := range decls {
		if findKind(engine.Check(&decls[i]), findings.KindNamingViolation) != nil {
			t.Errorf("%s: test names should be exempt", decls[i].Name)
		}
	}
}

func TestCheckNaming_DunderExempt(t *testing.T) {
	decls := buildDecls(t, `class Widget:
    """Doc."""

    def __init__(self):
        pass
`)

	engine := NewEngine(DefaultConfig())
	for i := range decls {
		if decls[i].Name != "Widget.__init__" {
			continue
		}
		fs := engine.Check(&decls[i])
		if findKind(fs, findings.KindNamingViolation) != nil {
			t.Error("__init__: unexpected naming violation")
		}
		if findKind(fs, findings.KindMissingDocstring) != nil {
			t.Error("__init__: unexpected docstring finding")
		}
	}
}

func TestCheckDocstring_PublicAlwaysChecked(t *testing.T) {
	decls := buildDecls(t, `def undocumented():
    return 1

def documented():
    """Has one."""
    return 1
`)

	engine := NewEngine(DefaultConfig())

	for i := range decls {
		fs := engine.Check(&decls[i])
		f := findKind(fs, findings.KindMissingDocstring)
		switch decls[i].Name {
		case "undocumented":
			if f == nil {
				t.Fatal("undocumented: expected missing docstring finding")
			}
			if f.Severity != findings.SeverityMedium {
				t.Errorf("severity = %q, want medium for simple function", f.Severity)
			}
		case "documented":
			if f != nil {
				t.Error("documented: unexpected docstring finding")
			}
		}
	}
}

func TestCheckDocstring_PrivateGatedOnComplexity(t *testing.T) {
	simple := buildDecls(t, "def _tiny():\n    return 1\n")
	complexDecls := buildDecls(t, branchyBody("_helper", 20))

	engine := NewEngine(DefaultConfig())

	if f := findKind(engine.Check(&simple[0]), findings.KindMissingDocstring); f != nil {
		t.Error("_tiny: simple private function should not require a docstring")
	}

	f := findKind(engine.Check(&complexDecls[0]), findings.KindMissingDocstring)
	if f == nil {
		t.Fatal("_helper: complex private function should require a docstring")
	}
	if f.Severity != findings.SeverityHigh {
		t.Errorf("_helper docstring severity = %q, want high", f.Severity)
	}
}

func TestCheckLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LengthThreshold = 3
	engine := NewEngine(cfg)

	medium := buildDecls(t, `def four():
    """Doc."""
    a = 1
    b = 2
    c = 3
    return a + b + c
`)
	// 5 statements including the docstring, above 3 but not above 4 (1.5x).
	f := findKind(engine.Check(&medium[0]), findings.KindLongFunction)
	if f == nil {
		t.Fatal("four: expected long function finding")
	}
	if f.Severity != findings.SeverityHigh {
		t.Errorf("severity = %q, want high above 1.5x threshold", f.Severity)
	}
}

func TestCheckLength_ParamCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParamCountThreshold = 3
	engine := NewEngine(cfg)

	decls := buildDecls(t, `def wide(a, b, c, d):
    """Doc."""
    return a
`)

	f := findKind(engine.Check(&decls[0]), findings.KindLongFunction)
	if f == nil {
		t.Fatal("wide: expected long function finding for parameter count")
	}
	if !strings.Contains(f.Detail, "4 parameters") {
		t.Errorf("Detail = %q, want parameter count mentioned", f.Detail)
	}
}

func TestCheckComplexity_ThresholdControlsFinding(t *testing.T) {
	decls := buildDecls(t, branchyBody("branchy", 8))
	decls[0].HasDocstring = true // isolate the complexity check

	low := DefaultConfig()
	low.ComplexityThreshold = 5
	high := DefaultConfig()
	high.ComplexityThreshold = 50

	if findKind(NewEngine(low).Check(&decls[0]), findings.KindComplexFunction) == nil {
		t.Error("threshold 5: expected complex function finding")
	}
	if findKind(NewEngine(high).Check(&decls[0]), findings.KindComplexFunction) != nil {
		t.Error("threshold 50: unexpected complex function finding")
	}
}

func TestCheckComplexity_HighSeverity(t *testing.T) {
	decls := buildDecls(t, branchyBody("very_branchy", 20))

	engine := NewEngine(DefaultConfig())
	f := findKind(engine.Check(&decls[0]), findings.KindComplexFunction)
	if f == nil {
		t.Fatal("expected complex function finding")
	}
	// cyclomatic 21 is above 10 * 1.5
	if f.Severity != findings.SeverityHigh {
		t.Errorf("severity = %q, want high", f.Severity)
	}
}

func TestCheckErrorHandling(t *testing.T) {
	decls := buildDecls(t, `def fetch_data(url):
    """Doc."""
    resp = client.get(url)
    body = resp.read()
    return body

def fetch_safe(url):
    """Doc."""
    try:
        return client.get(url)
    except ConnectionError:
        return None

def add(a, b):
    """Doc."""
    total = a + b
    doubled = total * 2
    return doubled
`)

	engine := NewEngine(DefaultConfig())

	for i := range decls {
		f := findKind(engine.Check(&decls[i]), findings.KindErrorHandlingGap)
		switch decls[i].Name {
		case "fetch_data":
			if f == nil {
				t.Error("fetch_data: expected error handling gap")
			}
		case "fetch_safe":
			if f != nil {
				t.Error("fetch_safe: unexpected error handling gap, body has try")
			}
		case "add":
			if f != nil {
				t.Error("add: unexpected error handling gap, not IO-shaped")
			}
		}
	}
}

func TestCheckMagicNumbers(t *testing.T) {
	decls := buildDecls(t, `def ports():
    """Doc."""
    return [0, 1, 8443]

def plain():
    """Doc."""
    return [0, 1]
`)

	engine := NewEngine(DefaultConfig())

	for i := range decls {
		f := findKind(engine.Check(&decls[i]), findings.KindMagicNumber)
		switch decls[i].Name {
		case "ports":
			if f == nil {
				t.Fatal("ports: expected magic number finding")
			}
			if !strings.Contains(f.Detail, "8443") {
				t.Errorf("Detail = %q, want 8443 mentioned", f.Detail)
			}
			if f.Severity != findings.SeverityLow {
				t.Errorf("severity = %q, want low", f.Severity)
			}
		case "plain":
			if f != nil {
				t.Error("plain: unexpected magic number finding")
			}
		}
	}
}

func TestCheckUnit_OneFindingPerCheck(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	decls := buildDecls(t, `def messy():
    return [7777, 8888, 9999]
`)

	fs := engine.Check(&decls[0])

	kinds := map[findings.Kind]int{}
	for _, f := range fs {
		kinds[f.Kind]++
	}
	for kind, n := range kinds {
		if n > 1 {
			t.Errorf("kind %s emitted %d findings, want at most 1 per declaration", kind, n)
		}
	}
}
