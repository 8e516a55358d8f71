// Package inventory builds the per-file declaration inventory that the
// downstream analyzers consume: every function, class, and method with
// the structural facts a single syntax-tree walk can observe.
package inventory

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/scry/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"
)

// Kind classifies a declaration.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
)

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Declaration is one function, class, or method recorded during the
// inventory walk. Immutable after the per-file pass completes; Body is
// only valid while the parse tree is alive and is never serialized.
type Declaration struct {
	ID                 uint32   `json:"id"`
	Name               string   `json:"name"` // qualified: Class.method for methods
	Kind               Kind     `json:"kind"`
	File               string   `json:"file"`
	StartLine          uint32   `json:"start_line"`
	EndLine            uint32   `json:"end_line"`
	Parameters         []string `json:"parameters,omitempty"`
	Decorators         []string `json:"decorators,omitempty"`
	HasDocstring       bool     `json:"has_docstring"`
	HasTypeAnnotations bool     `json:"has_type_annotations"`
	NestingDepth       int      `json:"nesting_depth"`
	BodyStatements     int      `json:"body_statements"`
	Parent             string   `json:"parent,omitempty"` // qualified name of enclosing declaration
	ContextHash        string   `json:"context_hash"`

	// Complexity metrics, attached once during the per-file pass.
	Cyclomatic   uint32 `json:"cyclomatic"`
	Cognitive    uint32 `json:"cognitive"`
	BranchPoints uint32 `json:"branch_points"`
	LoopCount    uint32 `json:"loop_count"`

	// Structural facts consumed by the heuristic rule checks.
	HasTryBlock     bool     `json:"has_try_block"`
	NumericLiterals []string `json:"-"`

	Body *sitter.Node `json:"-"`
}

// BaseName returns the final component of the qualified name.
func (d *Declaration) BaseName() string {
	if idx := strings.LastIndexByte(d.Name, '.'); idx >= 0 {
		return d.Name[idx+1:]
	}
	return d.Name
}

// IsPrivate reports whether the declaration is private by convention
// (leading underscore on the final name component).
func (d *Declaration) IsPrivate() bool {
	name := d.BaseName()
	return len(name) > 0 && name[0] == '_'
}

// IsDunder reports whether the final name component is a double-underscore
// name like __init__.
func (d *Declaration) IsDunder() bool {
	name := d.BaseName()
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// SourceUnit is the inventory of a single parsed file. Immutable after
// construction.
type SourceUnit struct {
	Path         string        `json:"path"`
	Lines        int           `json:"lines"`
	Digest       string        `json:"digest"` // xxhash64 of raw content
	Declarations []Declaration `json:"declarations"`
	ParseOK      bool          `json:"parse_ok"`
}

// Build walks a parsed tree once and records every declaration in source
// order. Malformed input is rejected upstream; Build assumes a clean tree.
func Build(result *parser.ParseResult) *SourceUnit {
	unit := &SourceUnit{
		Path:         result.Path,
		Lines:        countLines(result.Source),
		Digest:       strconv.FormatUint(xxhash.Sum64(result.Source), 16),
		Declarations: make([]Declaration, 0),
		ParseOK:      true,
	}

	collectScope(result.Tree.RootNode(), result.Source, result.Path, nil, unit)

	return unit
}

// scopeEntry tracks one enclosing declaration during the walk.
type scopeEntry struct {
	name    string // qualified
	isClass bool
}

// collectScope recurses through the tree tracking the enclosing scope
// stack so each declaration records its qualified name and nesting depth.
func collectScope(node *sitter.Node, source []byte, path string, scope []scopeEntry, unit *SourceUnit) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "function_definition":
			decl := extractDeclaration(child, source, path, scope, false)
			unit.Declarations = append(unit.Declarations, decl)
			if body := child.ChildByFieldName("body"); body != nil {
				collectScope(body, source, path, append(scope, scopeEntry{name: decl.Name}), unit)
			}
		case "class_definition":
			decl := extractDeclaration(child, source, path, scope, true)
			unit.Declarations = append(unit.Declarations, decl)
			if body := child.ChildByFieldName("body"); body != nil {
				collectScope(body, source, path, append(scope, scopeEntry{name: decl.Name, isClass: true}), unit)
			}
		case "decorated_definition":
			// The inner definition is handled above on recursion.
			collectScope(child, source, path, scope, unit)
		default:
			collectScope(child, source, path, scope, unit)
		}
	}
}

// extractDeclaration records the structural facts for one definition node.
func extractDeclaration(node *sitter.Node, source []byte, path string, scope []scopeEntry, isClass bool) Declaration {
	name := parser.GetNodeText(node.ChildByFieldName("name"), source)
	body := node.ChildByFieldName("body")

	kind := KindFunction
	if isClass {
		kind = KindClass
	} else if len(scope) > 0 && scope[len(scope)-1].isClass {
		kind = KindMethod
	}

	qualified := name
	parent := ""
	if len(scope) > 0 {
		parent = scope[len(scope)-1].name
		qualified = parent + "." + name
	}

	line := node.StartPoint().Row + 1
	decl := Declaration{
		Name:           qualified,
		Kind:           kind,
		File:           path,
		StartLine:      line,
		EndLine:        node.EndPoint().Row + 1,
		HasDocstring:   parser.HasDocstring(body, source),
		NestingDepth:   len(scope),
		BodyStatements: countBodyStatements(body),
		Parent:         parent,
		ContextHash:    contextHash(qualified, path, line, string(kind)),
		Body:           body,
	}

	if !isClass {
		decl.Parameters = parser.ExtractParameters(node, source)
		decl.HasTypeAnnotations = hasTypeAnnotations(node)
		decl.HasTryBlock = hasTryBlock(body)
		decl.NumericLiterals = numericLiterals(body, source)
	}

	decl.Decorators = parser.Decorators(node, source)

	return decl
}

// countBodyStatements counts the direct statements of a body block,
// skipping comments.
func countBodyStatements(body *sitter.Node) int {
	if body == nil {
		return 0
	}
	count := 0
	for i := range int(body.ChildCount()) {
		if body.Child(i).IsNamed() && body.Child(i).Type() != "comment" {
			count++
		}
	}
	return count
}

// hasTypeAnnotations reports whether the definition carries a return type
// or any annotated parameter.
func hasTypeAnnotations(node *sitter.Node) bool {
	if node.ChildByFieldName("return_type") != nil {
		return true
	}
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	for i := range int(params.ChildCount()) {
		switch params.Child(i).Type() {
		case "typed_parameter", "typed_default_parameter":
			return true
		}
	}
	return false
}

// hasTryBlock reports whether the body contains a try statement, not
// counting nested function or class bodies.
func hasTryBlock(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	found := false
	walkOwnBody(body, func(n *sitter.Node) bool {
		if n.Type() == "try_statement" {
			found = true
			return false
		}
		return true
	})
	return found
}

// numericLiterals returns the integer and float literal texts within the
// body in source order, not counting nested definitions.
func numericLiterals(body *sitter.Node, source []byte) []string {
	if body == nil {
		return nil
	}
	var literals []string
	walkOwnBody(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "integer", "float":
			text := parser.GetNodeText(n, source)
			// Fold unary minus into the literal so -1 matches the allowlist.
			if parent := n.Parent(); parent != nil && parent.Type() == "unary_operator" &&
				strings.HasPrefix(parser.GetNodeText(parent, source), "-") {
				text = "-" + text
			}
			literals = append(literals, text)
		}
		return true
	})
	return literals
}

// walkOwnBody visits nodes within a body but stops at nested function and
// class definitions, which have their own declarations.
func walkOwnBody(node *sitter.Node, visit func(*sitter.Node) bool) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "function_definition", "class_definition":
			continue
		}
		if !visit(child) {
			return
		}
		walkOwnBody(child, visit)
	}
}

// contextHash generates a short BLAKE3 hash identifying a declaration.
func contextHash(name, file string, line uint32, kind string) string {
	data := name + ":" + file + ":" + strconv.FormatUint(uint64(line), 10) + ":" + kind
	hash := blake3.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// countLines counts newline-terminated lines, matching wc -l plus a
// trailing partial line.
func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}

// AssignIDs numbers every declaration across units with monotonically
// increasing ids, in deterministic unit order. Call after the merge
// barrier, before dead-code detection.
func AssignIDs(units []*SourceUnit) {
	var next uint32
	for _, unit := range units {
		for i := range unit.Declarations {
			unit.Declarations[i].ID = next
			next++
		}
	}
}
