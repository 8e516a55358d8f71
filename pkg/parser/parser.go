// Package parser wraps tree-sitter parsing for Python sources.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Language represents a supported syntax dialect.
type Language string

const (
	LangPython  Language = "python"
	LangUnknown Language = "unknown"
)

// Parser wraps a tree-sitter parser instance.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// ParseFile parses a source file and returns the AST.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, fmt.Errorf("unsupported dialect for file: %s", path)
	}

	return p.Parse(source, lang, path)
}

// Parse parses source code with a specified dialect.
func (p *Parser) Parse(source []byte, lang Language, path string) (*ParseResult, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// HasSyntaxErrors reports whether the parsed tree contains ERROR nodes.
// Files with syntax errors are excluded from analysis rather than
// half-analyzed.
func (r *ParseResult) HasSyntaxErrors() bool {
	if r.Tree == nil {
		return true
	}
	return r.Tree.RootNode().HasError()
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a dialect.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return python.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", lang)
	}
}

// DetectLanguage determines the dialect from a file path.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".py", ".pyw", ".pyi":
		return LangPython
	default:
		return LangUnknown
	}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
// Use this when you need to check node types frequently.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type() // Cache the type once per node
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// FunctionNode represents a parsed function definition.
type FunctionNode struct {
	Name       string
	StartLine  uint32
	EndLine    uint32
	Parameters []string
	Body       *sitter.Node
}

// GetFunctions extracts all function definitions from parsed code.
func GetFunctions(result *ParseResult) []FunctionNode {
	var functions []FunctionNode
	root := result.Tree.RootNode()

	Walk(root, result.Source, func(node *sitter.Node, source []byte) bool {
		if node.Type() == "function_definition" {
			fn := extractFunction(node, source)
			if fn != nil {
				functions = append(functions, *fn)
			}
		}
		return true
	})

	return functions
}

// extractFunction extracts function details from a function_definition node.
func extractFunction(node *sitter.Node, source []byte) *FunctionNode {
	fn := &FunctionNode{
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		fn.Name = GetNodeText(nameNode, source)
	}
	if fn.Name == "" {
		return nil
	}

	fn.Parameters = ExtractParameters(node, source)
	fn.Body = node.ChildByFieldName("body")

	return fn
}

// ExtractParameters returns the parameter names of a function_definition
// node. Default values, type annotations, and the *args/**kwargs markers
// are stripped down to the bare identifier.
func ExtractParameters(node *sitter.Node, source []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var names []string
	for i := range int(params.ChildCount()) {
		child := params.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, GetNodeText(child, source))
		case "default_parameter", "typed_parameter", "typed_default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				names = append(names, GetNodeText(nameNode, source))
			} else if child.ChildCount() > 0 && child.Child(0).Type() == "identifier" {
				names = append(names, GetNodeText(child.Child(0), source))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			for j := range int(child.ChildCount()) {
				if child.Child(j).Type() == "identifier" {
					names = append(names, GetNodeText(child.Child(j), source))
				}
			}
		}
	}
	return names
}

// Decorators returns the decorator names applied to a definition node,
// verbatim minus the leading "@". For `@app.route("/x")` the recorded
// name is `app.route`.
func Decorators(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}

	var names []string
	for i := range int(parent.ChildCount()) {
		child := parent.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(GetNodeText(child, source), "@")
		// Strip call arguments: app.route("/x") -> app.route
		if idx := strings.IndexByte(text, '('); idx >= 0 {
			text = text[:idx]
		}
		names = append(names, strings.TrimSpace(text))
	}
	return names
}

// HasDocstring reports whether a function/class body opens with a string
// literal expression statement.
func HasDocstring(body *sitter.Node, source []byte) bool {
	if body == nil {
		return false
	}
	for i := range int(body.ChildCount()) {
		child := body.Child(i)
		if child.Type() == "comment" {
			continue
		}
		if child.Type() == "expression_statement" && child.ChildCount() > 0 {
			return child.Child(0).Type() == "string"
		}
		return false
	}
	return false
}
