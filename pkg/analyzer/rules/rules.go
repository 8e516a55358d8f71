// Package rules runs the per-declaration heuristic checks: naming,
// docstrings, length, complexity thresholds, error handling, and magic
// numbers. Each check emits at most one finding per declaration.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/panbanda/scry/pkg/findings"
	"github.com/panbanda/scry/pkg/inventory"
)

// Config carries the externally tunable rule thresholds.
type Config struct {
	// ComplexityThreshold is the cyclomatic score above which a
	// function is flagged as complex. High severity at 1.5x.
	ComplexityThreshold uint32
	// DocstringComplexity is the cyclomatic score above which a missing
	// docstring escalates from medium to high severity. Private
	// declarations are only docstring-checked above ComplexityThreshold.
	DocstringComplexity uint32
	// LengthThreshold is the body statement count above which a
	// function is flagged as long. High severity at 1.5x.
	LengthThreshold int
	// ParamCountThreshold is the parameter count above which a function
	// is flagged as long.
	ParamCountThreshold int
	// MagicNumberAllowlist holds literal texts that never count as
	// magic numbers.
	MagicNumberAllowlist []string
}

// DefaultConfig returns the generic profile thresholds.
func DefaultConfig() Config {
	return Config{
		ComplexityThreshold:  10,
		DocstringComplexity:  5,
		LengthThreshold:      30,
		ParamCountThreshold:  5,
		MagicNumberAllowlist: []string{"0", "1", "-1", "2", "10", "100", "1000"},
	}
}

// Engine evaluates the heuristic checks against declarations.
type Engine struct {
	cfg       Config
	allowlist map[string]bool
}

// NewEngine creates a rule engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	allowlist := make(map[string]bool, len(cfg.MagicNumberAllowlist))
	for _, lit := range cfg.MagicNumberAllowlist {
		allowlist[lit] = true
	}
	return &Engine{cfg: cfg, allowlist: allowlist}
}

// Check runs every rule against one declaration. Safe to call
// concurrently from per-file workers; the engine holds no mutable state.
func (e *Engine) Check(decl *inventory.Declaration) []findings.Finding {
	var out []findings.Finding

	checks := []func(*inventory.Declaration) *findings.Finding{
		e.checkNaming,
		e.checkDocstring,
		e.checkLength,
		e.checkComplexity,
		e.checkErrorHandling,
		e.checkMagicNumbers,
	}
	for _, check := range checks {
		if f := check(decl); f != nil {
			out = append(out, *f)
		}
	}

	return out
}

// CheckUnit runs the rules over every declaration in a source unit.
func (e *Engine) CheckUnit(unit *inventory.SourceUnit) []findings.Finding {
	var out []findings.Finding
	for i := range unit.Declarations {
		out = append(out, e.Check(&unit.Declarations[i])...)
	}
	return out
}

var (
	snakeCasePattern = regexp.MustCompile(`^_*[a-z][a-z0-9_]*$`)
	camelCasePattern = regexp.MustCompile(`^_?[A-Z][A-Za-z0-9]*$`)
)

// checkNaming enforces lower_snake_case for functions and methods and
// UpperCamelCase for classes. Dunder and test names are exempt; test
// names often embed the camel-cased name under test.
func (e *Engine) checkNaming(decl *inventory.Declaration) *findings.Finding {
	if decl.IsDunder() {
		return nil
	}

	name := decl.BaseName()
	if strings.HasPrefix(name, "test_") {
		return nil
	}
	var ok bool
	var want string
	switch decl.Kind {
	case inventory.KindClass:
		ok = camelCasePattern.MatchString(name)
		want = "UpperCamelCase"
	default:
		ok = snakeCasePattern.MatchString(name)
		want = "lower_snake_case"
	}
	if ok {
		return nil
	}

	f := findings.New(findings.KindNamingViolation, findings.SeverityLow,
		decl.Name, decl.File, decl.StartLine,
		fmt.Sprintf("%s name %q does not match %s", decl.Kind, name, want))
	return &f
}

// checkDocstring flags missing docstrings. Public declarations are
// always checked; private ones only once their complexity makes the
// missing documentation costly. Dunder methods are exempt.
func (e *Engine) checkDocstring(decl *inventory.Declaration) *findings.Finding {
	if decl.HasDocstring || decl.IsDunder() {
		return nil
	}
	if decl.IsPrivate() && decl.Cyclomatic <= e.cfg.ComplexityThreshold {
		return nil
	}

	severity := findings.SeverityMedium
	if decl.Cyclomatic > e.cfg.DocstringComplexity {
		severity = findings.SeverityHigh
	}

	f := findings.New(findings.KindMissingDocstring, severity,
		decl.Name, decl.File, decl.StartLine,
		fmt.Sprintf("%s %s has no docstring", decl.Kind, decl.BaseName()))
	return &f
}

// checkLength flags functions with oversized bodies or parameter lists.
func (e *Engine) checkLength(decl *inventory.Declaration) *findings.Finding {
	if decl.Kind == inventory.KindClass {
		return nil
	}

	tooLong := decl.BodyStatements > e.cfg.LengthThreshold
	tooManyParams := len(decl.Parameters) > e.cfg.ParamCountThreshold
	if !tooLong && !tooManyParams {
		return nil
	}

	severity := findings.SeverityMedium
	if decl.BodyStatements > e.cfg.LengthThreshold*3/2 {
		severity = findings.SeverityHigh
	}

	var detail string
	switch {
	case tooLong && tooManyParams:
		detail = fmt.Sprintf("%d statements (limit %d) and %d parameters (limit %d)",
			decl.BodyStatements, e.cfg.LengthThreshold, len(decl.Parameters), e.cfg.ParamCountThreshold)
	case tooLong:
		detail = fmt.Sprintf("%d statements (limit %d)", decl.BodyStatements, e.cfg.LengthThreshold)
	default:
		detail = fmt.Sprintf("%d parameters (limit %d)", len(decl.Parameters), e.cfg.ParamCountThreshold)
	}

	f := findings.New(findings.KindLongFunction, severity,
		decl.Name, decl.File, decl.StartLine, detail)
	return &f
}

// checkComplexity flags functions above the cyclomatic threshold,
// escalating to high severity at 1.5x.
func (e *Engine) checkComplexity(decl *inventory.Declaration) *findings.Finding {
	if decl.Kind == inventory.KindClass || decl.Cyclomatic <= e.cfg.ComplexityThreshold {
		return nil
	}

	severity := findings.SeverityMedium
	if decl.Cyclomatic > e.cfg.ComplexityThreshold*3/2 {
		severity = findings.SeverityHigh
	}

	f := findings.New(findings.KindComplexFunction, severity,
		decl.Name, decl.File, decl.StartLine,
		fmt.Sprintf("cyclomatic %d (limit %d), cognitive %d",
			decl.Cyclomatic, e.cfg.ComplexityThreshold, decl.Cognitive))
	return &f
}

// riskyNameParts mark functions that talk to the outside world: IO,
// network, and parsing conventions where unhandled failure is likely.
var riskyNameParts = []string{
	"read", "write", "open", "close", "connect", "send", "recv",
	"fetch", "request", "download", "upload", "load", "save",
	"parse", "decode", "query",
}

// riskyParams mark parameter names that imply IO or network access.
var riskyParams = map[string]bool{
	"path": true, "filename": true, "file_path": true, "filepath": true,
	"url": true, "uri": true, "host": true, "port": true,
	"address": true, "addr": true, "socket": true, "sock": true,
	"conn": true, "connection": true, "timeout": true,
}

// checkErrorHandling flags IO-shaped functions with a non-trivial body
// and no exception handling.
func (e *Engine) checkErrorHandling(decl *inventory.Declaration) *findings.Finding {
	if decl.Kind == inventory.KindClass || decl.HasTryBlock || decl.BodyStatements < 3 {
		return nil
	}
	if !looksRisky(decl) {
		return nil
	}

	f := findings.New(findings.KindErrorHandlingGap, findings.SeverityMedium,
		decl.Name, decl.File, decl.StartLine,
		fmt.Sprintf("%s performs IO-like work without exception handling", decl.BaseName()))
	return &f
}

// looksRisky reports whether the declaration's name or parameters match
// connection/IO/parsing conventions.
func looksRisky(decl *inventory.Declaration) bool {
	name := strings.ToLower(decl.BaseName())
	for _, part := range riskyNameParts {
		if strings.Contains(name, part) {
			return true
		}
	}
	for _, param := range decl.Parameters {
		if riskyParams[strings.ToLower(param)] {
			return true
		}
	}
	return false
}

// maxReportedLiterals bounds the literal list echoed in the detail text.
const maxReportedLiterals = 5

// checkMagicNumbers flags numeric literals outside the allowlist. One
// finding per declaration regardless of how many literals it contains.
func (e *Engine) checkMagicNumbers(decl *inventory.Declaration) *findings.Finding {
	var magic []string
	for _, lit := range decl.NumericLiterals {
		if !e.allowlist[lit] {
			magic = append(magic, lit)
		}
	}
	if len(magic) == 0 {
		return nil
	}

	shown := magic
	suffix := ""
	if len(shown) > maxReportedLiterals {
		shown = shown[:maxReportedLiterals]
		suffix = fmt.Sprintf(" and %d more", len(magic)-maxReportedLiterals)
	}

	f := findings.New(findings.KindMagicNumber, findings.SeverityLow,
		decl.Name, decl.File, decl.StartLine,
		fmt.Sprintf("unexplained literals: %s%s", strings.Join(shown, ", "), suffix))
	return &f
}
