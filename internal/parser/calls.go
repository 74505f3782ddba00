package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// noiseCalls are callees too common to carry signal.
var noiseCalls = map[string]bool{
	"console.log":   true,
	"console.error": true,
	"console.warn":  true,
	"console.info":  true,
	"console.debug": true,
	"print":         true,
	"require":       true,
}

const maxCalleeLen = 100

// extractCalls attributes each call expression to its enclosing symbol.
// Dotted callees keep only their last two parts, so `a.b.c.d()` records
// `c.d`. Calls with no enclosing symbol (module-level statements) are
// skipped.
func extractCalls(root *sitter.Node, src []byte) []Call {
	var calls []Call
	walk(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		fnNode := n.ChildByFieldName("function")
		if fnNode == nil {
			return
		}
		called := fnNode.Content(src)
		if parts := strings.Split(called, "."); len(parts) > 2 {
			called = strings.Join(parts[len(parts)-2:], ".")
		}
		if noiseCalls[called] || len(called) >= maxCalleeLen {
			return
		}
		caller := enclosingSymbolName(n, src)
		if caller == "" {
			return
		}
		calls = append(calls, Call{
			Caller: caller,
			Called: called,
			Line:   int(n.StartPoint().Row) + 1,
		})
	})
	return calls
}

// enclosingSymbolName climbs ancestors to the nearest definition or
// variable declarator and returns its name.
func enclosingSymbolName(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_declaration", "function_definition", "method_definition",
			"class_declaration", "class_definition":
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(src)
			}
		case "variable_declarator":
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(src)
			}
		case "lexical_declaration", "variable_declaration":
			if declarator := firstChildOfType(p, "variable_declarator"); declarator != nil {
				if nameNode := declarator.ChildByFieldName("name"); nameNode != nil {
					return nameNode.Content(src)
				}
			}
		}
	}
	return ""
}
