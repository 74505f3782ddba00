package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	maxSignature = 200
	maxDocstring = 500
	maxBody      = 2048
	maxTypeBody  = 3072
)

// extractSymbols walks the tree emitting one Symbol per matching
// declaration node. When a class is emitted its children are walked once
// with the class name as enclosing context, so methods carry
// Class.method qualified names.
func extractSymbols(root *sitter.Node, src []byte, langTag string) []Symbol {
	var symbols []Symbol
	var visit func(n *sitter.Node, class string)

	visit = func(n *sitter.Node, class string) {
		switch n.Type() {
		case "function_declaration", "function_definition":
			if sym, ok := newSymbol(n, src, langTag, "function"); ok {
				if class != "" {
					sym.QualifiedName = class + "." + sym.Name
				}
				symbols = append(symbols, sym)
			}
		case "method_definition":
			if sym, ok := newSymbol(n, src, langTag, "method"); ok {
				if class != "" {
					sym.QualifiedName = class + "." + sym.Name
				}
				symbols = append(symbols, sym)
			}
		case "class_declaration", "class_definition":
			if sym, ok := newSymbol(n, src, langTag, "class"); ok {
				symbols = append(symbols, sym)
				walkChildren(n, sym.Name, visit)
				return
			}
		case "interface_declaration":
			if sym, ok := newSymbol(n, src, langTag, "interface"); ok {
				symbols = append(symbols, sym)
			}
		case "type_alias_declaration":
			if sym, ok := newSymbol(n, src, langTag, "type"); ok {
				symbols = append(symbols, sym)
			}
		case "enum_declaration":
			if sym, ok := newSymbol(n, src, langTag, "enum"); ok {
				symbols = append(symbols, sym)
			}
		case "lexical_declaration", "variable_declaration":
			if sym, ok := newVariableSymbol(n, src); ok {
				symbols = append(symbols, sym)
			}
		}
		walkChildren(n, class, visit)
	}

	walkChildren(root, "", visit)
	return symbols
}

func walkChildren(n *sitter.Node, class string, visit func(*sitter.Node, string)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		visit(n.NamedChild(i), class)
	}
}

// newSymbol builds a Symbol for a named declaration node. Nodes without
// a name field are skipped.
func newSymbol(n *sitter.Node, src []byte, langTag, kind string) (Symbol, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return Symbol{}, false
	}
	body := maxBody
	if kind == "class" || kind == "interface" {
		body = maxTypeBody
	}
	text := n.Content(src)
	return Symbol{
		Name:      nameNode.Content(src),
		Kind:      kind,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Signature: truncate(firstLine(text), maxSignature),
		Docstring: docstringFor(n, src),
		Content:   truncate(text, body),
		Exported:  isExported(n, nameNode.Content(src), langTag),
	}, true
}

// newVariableSymbol handles exported lexical/variable declarations: an
// arrow-function initializer makes it a function, anything else a
// variable. Non-exported declarations emit nothing.
func newVariableSymbol(n *sitter.Node, src []byte) (Symbol, bool) {
	parent := n.Parent()
	if parent == nil || !isExportForm(parent.Type()) {
		return Symbol{}, false
	}
	declarator := firstChildOfType(n, "variable_declarator")
	if declarator == nil {
		return Symbol{}, false
	}
	nameNode := declarator.ChildByFieldName("name")
	if nameNode == nil {
		return Symbol{}, false
	}
	kind := "variable"
	if value := declarator.ChildByFieldName("value"); value != nil && value.Type() == "arrow_function" {
		kind = "function"
	}
	text := n.Content(src)
	return Symbol{
		Name:      nameNode.Content(src),
		Kind:      kind,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Signature: truncate(firstLine(text), maxSignature),
		Docstring: docstringFor(n, src),
		Content:   truncate(text, maxBody),
		Exported:  true,
	}, true
}

// docstringFor returns the text of the immediately preceding sibling if
// it is a comment.
func docstringFor(n *sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	return truncate(prev.Content(src), maxDocstring)
}

// isExported implements the export heuristic: an export-statement
// parent, a decorated_definition under an export-statement, or a Python
// module-level name not starting with "_".
func isExported(n *sitter.Node, name, langTag string) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	if isExportForm(parent.Type()) {
		return true
	}
	if parent.Type() == "decorated_definition" {
		if grand := parent.Parent(); grand != nil && isExportForm(grand.Type()) {
			return true
		}
	}
	if langTag == "python" && parent.Type() == "module" && !strings.HasPrefix(name, "_") {
		return true
	}
	return false
}

func isExportForm(nodeType string) bool {
	return nodeType == "export_statement" || nodeType == "export_declaration"
}

func firstChildOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}
