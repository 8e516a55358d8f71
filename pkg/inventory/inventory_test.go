package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/scry/pkg/parser"
)

func parseSource(t *testing.T, name, source string) *parser.ParseResult {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	p := parser.New()
	t.Cleanup(p.Close)

	result, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("parsing %s: %v", name, err)
	}
	return result
}

func findDecl(t *testing.T, unit *SourceUnit, name string) *Declaration {
	t.Helper()
	for i := range unit.Declarations {
		if unit.Declarations[i].Name == name {
			return &unit.Declarations[i]
		}
	}
	t.Fatalf("declaration %q not found in %v", name, declNames(unit))
	return nil
}

func declNames(unit *SourceUnit) []string {
	names := make([]string, len(unit.Declarations))
	for i, d := range unit.Declarations {
		names[i] = d.Name
	}
	return names
}

func TestBuild_Functions(t *testing.T) {
	result := parseSource(t, "funcs.py", `def fetch(url, timeout=30):
    """Fetch a URL."""
    return get(url, timeout)

def _helper(x):
    return x + 1
`)

	unit := Build(result)

	if len(unit.Declarations) != 2 {
		t.Fatalf("len(Declarations) = %d, want 2", len(unit.Declarations))
	}

	fetch := findDecl(t, unit, "fetch")
	if fetch.Kind != KindFunction {
		t.Errorf("fetch.Kind = %q, want %q", fetch.Kind, KindFunction)
	}
	if fetch.StartLine != 1 {
		t.Errorf("fetch.StartLine = %d, want 1", fetch.StartLine)
	}
	if !fetch.HasDocstring {
		t.Error("fetch.HasDocstring = false, want true")
	}
	if len(fetch.Parameters) != 2 {
		t.Errorf("fetch.Parameters = %v, want 2 entries", fetch.Parameters)
	}
	if fetch.BodyStatements != 2 {
		t.Errorf("fetch.BodyStatements = %d, want 2", fetch.BodyStatements)
	}

	helper := findDecl(t, unit, "_helper")
	if !helper.IsPrivate() {
		t.Error("_helper.IsPrivate() = false, want true")
	}
	if helper.HasDocstring {
		t.Error("_helper.HasDocstring = true, want false")
	}
}

func TestBuild_ClassAndMethods(t *testing.T) {
	result := parseSource(t, "widget.py", `class Widget:
    """A widget."""

    def __init__(self, size):
        self.size = size

    def render(self):
        return str(self.size)
`)

	unit := Build(result)

	widget := findDecl(t, unit, "Widget")
	if widget.Kind != KindClass {
		t.Errorf("Widget.Kind = %q, want %q", widget.Kind, KindClass)
	}

	init := findDecl(t, unit, "Widget.__init__")
	if init.Kind != KindMethod {
		t.Errorf("__init__.Kind = %q, want %q", init.Kind, KindMethod)
	}
	if init.Parent != "Widget" {
		t.Errorf("__init__.Parent = %q, want Widget", init.Parent)
	}
	if !init.IsDunder() {
		t.Error("__init__.IsDunder() = false, want true")
	}
	if init.NestingDepth != 1 {
		t.Errorf("__init__.NestingDepth = %d, want 1", init.NestingDepth)
	}

	render := findDecl(t, unit, "Widget.render")
	if render.BaseName() != "render" {
		t.Errorf("render.BaseName() = %q, want render", render.BaseName())
	}
}

func TestBuild_NestedFunction(t *testing.T) {
	result := parseSource(t, "nested.py", `def outer():
    def inner():
        pass
    return inner
`)

	unit := Build(result)

	inner := findDecl(t, unit, "outer.inner")
	if inner.NestingDepth != 1 {
		t.Errorf("inner.NestingDepth = %d, want 1", inner.NestingDepth)
	}
	if inner.Kind != KindFunction {
		t.Errorf("inner.Kind = %q, want %q", inner.Kind, KindFunction)
	}
}

func TestBuild_Decorators(t *testing.T) {
	result := parseSource(t, "deco.py", `import pytest

@pytest.fixture
def client():
    return make_client()
`)

	unit := Build(result)

	client := findDecl(t, unit, "client")
	if len(client.Decorators) != 1 || client.Decorators[0] != "pytest.fixture" {
		t.Errorf("client.Decorators = %v, want [pytest.fixture]", client.Decorators)
	}
}

func TestBuild_TypeAnnotations(t *testing.T) {
	result := parseSource(t, "typed.py", `def typed(x: int) -> str:
    return str(x)

def untyped(x):
    return x
`)

	unit := Build(result)

	if !findDecl(t, unit, "typed").HasTypeAnnotations {
		t.Error("typed.HasTypeAnnotations = false, want true")
	}
	if findDecl(t, unit, "untyped").HasTypeAnnotations {
		t.Error("untyped.HasTypeAnnotations = true, want false")
	}
}

func TestBuild_TryBlockAndLiterals(t *testing.T) {
	result := parseSource(t, "lits.py", `def risky():
    try:
        return connect(8080)
    except OSError:
        return None

def offsets():
    return [0, 1, -1, 8443]
`)

	unit := Build(result)

	risky := findDecl(t, unit, "risky")
	if !risky.HasTryBlock {
		t.Error("risky.HasTryBlock = false, want true")
	}

	offsets := findDecl(t, unit, "offsets")
	if offsets.HasTryBlock {
		t.Error("offsets.HasTryBlock = true, want false")
	}
	want := []string{"0", "1", "-1", "8443"}
	if len(offsets.NumericLiterals) != len(want) {
		t.Fatalf("offsets.NumericLiterals = %v, want %v", offsets.NumericLiterals, want)
	}
	for i, lit := range want {
		if offsets.NumericLiterals[i] != lit {
			t.Errorf("NumericLiterals[%d] = %q, want %q", i, offsets.NumericLiterals[i], lit)
		}
	}
}

func TestBuild_NestedLiteralsNotDoubleCounted(t *testing.T) {
	result := parseSource(t, "nestlit.py", `def outer():
    def inner():
        return 42
    return 7
`)

	unit := Build(result)

	outer := findDecl(t, unit, "outer")
	if len(outer.NumericLiterals) != 1 || outer.NumericLiterals[0] != "7" {
		t.Errorf("outer.NumericLiterals = %v, want [7]", outer.NumericLiterals)
	}
	inner := findDecl(t, unit, "outer.inner")
	if len(inner.NumericLiterals) != 1 || inner.NumericLiterals[0] != "42" {
		t.Errorf("inner.NumericLiterals = %v, want [42]", inner.NumericLiterals)
	}
}

func TestBuild_DigestAndLines(t *testing.T) {
	source := "def a():\n    pass\n"
	unit := Build(parseSource(t, "digest.py", source))

	if unit.Lines != 2 {
		t.Errorf("Lines = %d, want 2", unit.Lines)
	}
	if unit.Digest == "" {
		t.Error("Digest is empty")
	}

	again := Build(parseSource(t, "digest.py", source))
	if unit.Digest != again.Digest {
		t.Errorf("digest not stable: %s vs %s", unit.Digest, again.Digest)
	}
}

func TestAssignIDs(t *testing.T) {
	a := Build(parseSource(t, "a.py", "def one():\n    pass\n\ndef two():\n    pass\n"))
	b := Build(parseSource(t, "b.py", "def three():\n    pass\n"))

	AssignIDs([]*SourceUnit{a, b})

	if a.Declarations[0].ID != 0 || a.Declarations[1].ID != 1 {
		t.Errorf("a ids = %d, %d, want 0, 1", a.Declarations[0].ID, a.Declarations[1].ID)
	}
	if b.Declarations[0].ID != 2 {
		t.Errorf("b id = %d, want 2", b.Declarations[0].ID)
	}
}

func TestContextHash_Deterministic(t *testing.T) {
	a := contextHash("fetch", "api.py", 10, "function")
	b := contextHash("fetch", "api.py", 10, "function")
	c := contextHash("fetch", "api.py", 11, "function")

	if a != b {
		t.Errorf("same inputs produced different hashes: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different lines produced the same hash")
	}
}
