package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractImports collects import statements. The source specifier comes
// from the node's source field (or its first string child); imported
// names come from the import clause. Python-style bare imports with no
// source string use the module node text as the source.
func extractImports(root *sitter.Node, src []byte) []Import {
	var imports []Import
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_statement" && n.Type() != "import_declaration" {
			return
		}
		if imp, ok := newImport(n, src); ok {
			imports = append(imports, imp)
		}
	})
	return imports
}

func newImport(n *sitter.Node, src []byte) (Import, bool) {
	source := importSource(n, src)
	if source == "" {
		// Bare `import X`: the module node itself is the source.
		module := firstChildOfType(n, "dotted_name")
		if module == nil {
			module = firstChildOfType(n, "aliased_import")
		}
		if module == nil {
			return Import{}, false
		}
		return Import{Source: module.Content(src), Default: true}, true
	}

	names := importedNames(n, src)
	return Import{Source: source, Names: names, Default: len(names) == 0}, true
}

func importSource(n *sitter.Node, src []byte) string {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "string" || child.Type() == "string_literal" {
				sourceNode = child
				break
			}
		}
	}
	if sourceNode == nil {
		return ""
	}
	return strings.Trim(sourceNode.Content(src), `"'`+"`")
}

// importedNames descends import_clause -> named_imports ->
// import_specifier. A plain identifier as the clause's first named child
// is a default import and contributes its name too.
func importedNames(n *sitter.Node, src []byte) []string {
	var names []string
	clause := firstChildOfType(n, "import_clause")
	if clause == nil {
		return nil
	}
	if first := clause.NamedChild(0); first != nil && first.Type() == "identifier" {
		names = append(names, first.Content(src))
	}
	if named := firstChildOfType(clause, "named_imports"); named != nil {
		for i := 0; i < int(named.NamedChildCount()); i++ {
			spec := named.NamedChild(i)
			if spec.Type() != "import_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = spec.NamedChild(0)
			}
			if nameNode != nil {
				names = append(names, nameNode.Content(src))
			}
		}
	}
	return names
}

// walk visits every named node in the tree, depth first.
func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}
