package cpp

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// qualifiedNameFromAST ascends through enclosing namespace_definition,
// class_specifier, and struct_specifier nodes, prepending their names, per
// spec.md §4.4: qualifiedName must come from the AST hierarchy, never the
// mutable scope stack, to avoid duplication when a handler is revisited.
func qualifiedNameFromAST(node *tree_sitter.Node, source []byte, simpleName string) string {
	var ancestors []*tree_sitter.Node
	astutil.WalkAncestors(node, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "namespace_definition", "class_specifier", "struct_specifier":
			ancestors = append(ancestors, n)
		}
		return true
	})

	segments := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		nameNode := astutil.ChildByField(ancestors[i], "name")
		if nameNode == nil {
			continue
		}
		text := astutil.TextOf(nameNode, source)
		if text != "" {
			segments = append(segments, text)
		}
	}
	if simpleName != "" {
		segments = append(segments, simpleName)
	}
	return strings.Join(segments, "::")
}

// isInsideExportBlock reports whether node has an "export_declaration"
// ancestor (spec.md §4.4: "isExported iff enclosed in an export
// declaration").
func isInsideExportBlock(node *tree_sitter.Node) bool {
	found := false
	astutil.WalkAncestors(node, func(n *tree_sitter.Node) bool {
		if n.Kind() == "export_declaration" {
			found = true
			return false
		}
		return true
	})
	return found
}

// attachDocComment captures the contiguous "//" / "/* */" block immediately
// preceding node into s.Features["docComment"], when present (spec.md §12
// "doc-comment capture", grounded on the teacher's
// extractDocCommentBeforeNode). Additive only: never required by an
// invariant, so a missing comment is not an error.
func attachDocComment(ctx *ParseContext, s *types.Symbol, node *tree_sitter.Node) {
	if doc := astutil.PrecedingDocComment(node, ctx.Source); doc != "" {
		s.Features["docComment"] = doc
	}
}

// stripParamWhitespace removes whitespace from a parameter-list text for
// the overload-disambiguation suffix (spec.md §4.4: "paramSignature is the
// parameter list with whitespace removed").
func stripParamWhitespace(paramText string) string {
	var b strings.Builder
	for _, r := range paramText {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
