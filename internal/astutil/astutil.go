// Package astutil holds pure, stateless functions over a tree-sitter syntax
// tree: text extraction, typed-child lookup, recursive type search, and
// position conversion. Nothing here allocates a Symbol or touches the
// resolution cache — handlers (internal/cpp) build on these primitives.
package astutil

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// TextOf returns the exact source slice a node spans.
func TextOf(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// ChildByField returns the named field child, or nil if the field is absent
// on this node. Never panics on a missing optional field.
func ChildByField(node *tree_sitter.Node, fieldName string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(fieldName)
}

// FirstDescendantOfType performs a depth-first search for the first
// descendant (including node itself) whose Kind() matches typeName. Returns
// nil if none is found.
func FirstDescendantOfType(node *tree_sitter.Node, typeName string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == typeName {
		return node
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if found := FirstDescendantOfType(child, typeName); found != nil {
			return found
		}
	}
	return nil
}

// NodeLineColumn returns 1-based start/end line and column for node.
// Tree-sitter positions are 0-based rows/columns; the graph model is 1-based
// throughout (spec.md §3).
func NodeLineColumn(node *tree_sitter.Node) (startLine, startCol, endLine, endCol int) {
	if node == nil {
		return 0, 0, 0, 0
	}
	start := node.StartPosition()
	end := node.EndPosition()
	return int(start.Row) + 1, int(start.Column) + 1, int(end.Row) + 1, int(end.Column) + 1
}

// NamedChildren returns the named (non-anonymous) children of node, in
// source order.
func NamedChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	count := node.NamedChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// DescendantsOfType performs a depth-first search collecting every
// descendant (including node itself) whose Kind() matches one of typeNames.
// Does not descend into a matched node's subtree further than necessary —
// it still visits nested matches, since a function can contain nested
// lambdas of the same or different kinds.
func DescendantsOfType(node *tree_sitter.Node, typeNames ...string) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	want := make(map[string]struct{}, len(typeNames))
	for _, t := range typeNames {
		want[t] = struct{}{}
	}
	var out []*tree_sitter.Node
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if _, ok := want[n.Kind()]; ok {
			out = append(out, n)
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}

// PrecedingDocComment returns the contiguous run of "comment" nodes
// immediately preceding node among its siblings, joined in source order, or
// "" if node has no immediately preceding comment. Node identity is
// compared by byte span rather than pointer equality since the binding may
// hand back a freshly allocated wrapper for the same underlying syntax node
// on each Child call.
func PrecedingDocComment(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	parent := node.Parent()
	if parent == nil {
		return ""
	}
	count := parent.ChildCount()
	idx := -1
	for i := uint(0); i < count; i++ {
		c := parent.Child(i)
		if c != nil && c.StartByte() == node.StartByte() && c.EndByte() == node.EndByte() {
			idx = int(i)
			break
		}
	}
	if idx <= 0 {
		return ""
	}
	var comments []string
	for i := idx - 1; i >= 0; i-- {
		sib := parent.Child(uint(i))
		if sib == nil || sib.Kind() != "comment" {
			break
		}
		comments = append(comments, TextOf(sib, source))
	}
	for l, r := 0, len(comments)-1; l < r; l, r = l+1, r-1 {
		comments[l], comments[r] = comments[r], comments[l]
	}
	if len(comments) == 0 {
		return ""
	}
	return strings.Join(comments, "\n")
}

// WalkAncestors calls visit on each ancestor of node, innermost first,
// stopping as soon as visit returns false. Used by handlers walking up the AST hierarchy to build a qualified name
// (spec.md §4.4: "ascend through enclosing namespace_definition /
// class_specifier / struct_specifier nodes").
func WalkAncestors(node *tree_sitter.Node, visit func(n *tree_sitter.Node) bool) {
	for n := node.Parent(); n != nil; n = n.Parent() {
		if !visit(n) {
			return
		}
	}
}
