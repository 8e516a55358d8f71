package inventory

import (
	"regexp"

	"github.com/panbanda/scry/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// MentionContext classifies a dynamic mention of a name, where the name
// appears without a direct call but may still be reached at runtime.
type MentionContext string

const (
	// MentionValue is an identifier passed or assigned as a value,
	// typically a callback.
	MentionValue MentionContext = "value-reference"
	// MentionContainer is an identifier stored in a list, tuple, set,
	// or dict, typically a dispatch table.
	MentionContainer MentionContext = "container-element"
	// MentionString is a name appearing inside a string literal,
	// typically getattr or __all__ usage.
	MentionString MentionContext = "string-literal"
)

// FileReferences holds the reference counts observed in one file, keyed
// by the final name component. Built during the per-file pass and merged
// into the project ReferenceIndex after the barrier.
type FileReferences struct {
	Path     string
	Calls    map[string]int
	Mentions map[string]map[MentionContext]bool
}

var identifierWord = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// CollectReferences walks a parsed tree and records every call target,
// attribute access, and dynamic mention.
func CollectReferences(result *parser.ParseResult) *FileReferences {
	refs := &FileReferences{
		Path:     result.Path,
		Calls:    make(map[string]int),
		Mentions: make(map[string]map[MentionContext]bool),
	}

	parser.WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		switch nodeType {
		case "call":
			refs.recordCall(node, source)
		case "attribute":
			// obj.name counts as a reference to name even outside a call.
			if attr := node.ChildByFieldName("attribute"); attr != nil {
				refs.Calls[parser.GetNodeText(attr, source)]++
			}
		case "decorator":
			refs.recordDecorator(node, source)
		case "import_statement", "import_from_statement":
			refs.recordImport(node, source)
		case "list", "tuple", "set", "dictionary":
			refs.recordContainer(node, source)
		case "string":
			refs.recordString(node, source)
			return false
		}
		return true
	})

	return refs
}

// recordCall counts the callee and flags bare identifiers passed as
// arguments as value mentions.
func (r *FileReferences) recordCall(node *sitter.Node, source []byte) {
	fn := node.ChildByFieldName("function")
	if fn != nil {
		switch fn.Type() {
		case "identifier":
			r.Calls[parser.GetNodeText(fn, source)]++
		case "attribute":
			if attr := fn.ChildByFieldName("attribute"); attr != nil {
				r.Calls[parser.GetNodeText(attr, source)]++
			}
		}
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := range int(args.ChildCount()) {
		arg := args.Child(i)
		switch arg.Type() {
		case "identifier":
			r.mention(parser.GetNodeText(arg, source), MentionValue)
		case "keyword_argument":
			if value := arg.ChildByFieldName("value"); value != nil && value.Type() == "identifier" {
				r.mention(parser.GetNodeText(value, source), MentionValue)
			}
		}
	}
}

// recordDecorator counts the decorated name's decorator as a call, since
// applying a decorator invokes it.
func (r *FileReferences) recordDecorator(node *sitter.Node, source []byte) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			r.Calls[parser.GetNodeText(child, source)]++
		case "attribute":
			if attr := child.ChildByFieldName("attribute"); attr != nil {
				r.Calls[parser.GetNodeText(attr, source)]++
			}
		case "call":
			// handled by the call visitor
		}
	}
}

// recordImport counts imported names as references: an aliased import
// or an __init__ re-export keeps the target alive even when every later
// use goes through the alias. The enclosing module name is not counted.
func (r *FileReferences) recordImport(node *sitter.Node, source []byte) {
	module := node.ChildByFieldName("module_name")
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			r.countFinalComponent(child, source)
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				r.countFinalComponent(name, source)
			}
		}
	}
}

// countFinalComponent counts the last identifier of a dotted name.
func (r *FileReferences) countFinalComponent(node *sitter.Node, source []byte) {
	if n := int(node.NamedChildCount()); n > 0 {
		r.Calls[parser.GetNodeText(node.NamedChild(n-1), source)]++
		return
	}
	r.Calls[parser.GetNodeText(node, source)]++
}

// recordContainer flags bare identifiers stored as container elements.
func (r *FileReferences) recordContainer(node *sitter.Node, source []byte) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			r.mention(parser.GetNodeText(child, source), MentionContainer)
		case "pair":
			if value := child.ChildByFieldName("value"); value != nil && value.Type() == "identifier" {
				r.mention(parser.GetNodeText(value, source), MentionContainer)
			}
			if key := child.ChildByFieldName("key"); key != nil && key.Type() == "identifier" {
				r.mention(parser.GetNodeText(key, source), MentionContainer)
			}
		}
	}
}

// recordString flags identifier-shaped words inside string literals,
// which may name declarations reached via getattr or __all__.
func (r *FileReferences) recordString(node *sitter.Node, source []byte) {
	text := parser.GetNodeText(node, source)
	for _, word := range identifierWord.FindAllString(text, -1) {
		r.mention(word, MentionString)
	}
}

func (r *FileReferences) mention(name string, ctx MentionContext) {
	if r.Mentions[name] == nil {
		r.Mentions[name] = make(map[MentionContext]bool)
	}
	r.Mentions[name][ctx] = true
}
