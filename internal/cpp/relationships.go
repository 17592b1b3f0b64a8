package cpp

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// onCall handles call_expression nodes, resolving the target through the
// resolution cache (spec.md §4.5). This `calls` Relationship is always
// emitted, independent of the complexity-gated CallEdges cflow produces.
func onCall(ctx *ParseContext, node *tree_sitter.Node) {
	caller := ctx.EnclosingFunction()
	if caller == nil {
		return
	}

	funcNode := astutil.ChildByField(node, "function")
	if funcNode == nil {
		return
	}

	var targetText string
	switch funcNode.Kind() {
	case "field_expression":
		if field := astutil.ChildByField(funcNode, "field"); field != nil {
			targetText = astutil.TextOf(field, ctx.Source)
		}
	case "qualified_identifier", "identifier":
		targetText = astutil.TextOf(funcNode, ctx.Source)
	default:
		targetText = astutil.TextOf(funcNode, ctx.Source)
	}
	if targetText == "" || isControlKeyword(targetText) || isLogMacro(targetText) {
		return
	}

	rel, err := types.NewRelationship(ctx.Project, caller.symbolID, types.RelCalls, 1.0)
	if err != nil {
		return
	}
	line, col, _, _ := astutil.NodeLineColumn(node)
	rel.ContextLine = line
	rel.ContextColumn = col
	rel.ContextSnippet = astutil.TextOf(node, ctx.Source)

	resolved := ctx.Cache.ResolveSymbol(targetText, ctx.ResolutionContext())
	if resolved == nil && !strings.Contains(targetText, "::") {
		if scope := ctx.CurrentScope(); scope != nil {
			resolved = ctx.Cache.ResolveSymbol(scope.qualifiedName+"::"+targetText, ctx.ResolutionContext())
		}
	}
	if resolved != nil {
		rel.ToID = resolved.ID
		rel.Confidence = 1.0
	} else {
		rel.UnresolvedTarget = targetText
		rel.Confidence = 0.6
	}
	ctx.addRelationship(rel)
}

// onInheritance handles a class/struct's base_class_clause, one `inherits`
// Relationship per base (spec.md §4.5).
func onInheritance(ctx *ParseContext, derived *types.Symbol, baseClause *tree_sitter.Node) {
	text := astutil.TextOf(baseClause, ctx.Source)
	text = strings.TrimPrefix(strings.TrimSpace(text), ":")
	for _, rawBase := range strings.Split(text, ",") {
		base := cleanBaseName(rawBase)
		if base == "" {
			continue
		}
		rel, err := types.NewRelationship(ctx.Project, derived.ID, types.RelInherits, 1.0)
		if err != nil {
			continue
		}
		line, col, _, _ := astutil.NodeLineColumn(baseClause)
		rel.ContextLine = line
		rel.ContextColumn = col

		resolved := ctx.Cache.ResolveSymbol(base, ctx.ResolutionContext())
		if resolved != nil {
			rel.ToID = resolved.ID
			rel.Confidence = 1.0
		} else {
			rel.UnresolvedTarget = base
			rel.Confidence = 0.9
		}
		ctx.addRelationship(rel)
	}
}

// cleanBaseName strips access specifiers (public/private/protected),
// "virtual", template arguments, and namespace qualification from a raw
// base-class-clause segment, leaving the simple base class name.
func cleanBaseName(raw string) string {
	s := strings.TrimSpace(raw)
	for _, kw := range []string{"public", "private", "protected", "virtual"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, kw))
	}
	if idx := strings.Index(s, "<"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "::"); idx >= 0 {
		s = s[idx+2:]
	}
	return s
}

// onFieldAccess handles field_expression nodes used as reads or writes
// (spec.md §4.5): a write is a field_expression on the left side of an
// assignment_expression, a read otherwise. Only field_expression nodes
// (`obj.x`, `obj->x`, `this->x`) reach this handler; a bare member name `x`
// used inside a method produces no relationship. Inside a class/struct,
// whatever the receiver expression, the lookup tries `<class>::<field>`
// first and records the class in the "implicitReceiver" metadata.
func onFieldAccess(ctx *ParseContext, node *tree_sitter.Node) {
	fieldNode := astutil.ChildByField(node, "field")
	if fieldNode == nil {
		return
	}
	fieldName := astutil.TextOf(fieldNode, ctx.Source)
	if fieldName == "" {
		return
	}

	caller := ctx.EnclosingFunction()
	if caller == nil {
		return
	}

	relType := types.RelReadsField
	if parent := node.Parent(); parent != nil && parent.Kind() == "assignment_expression" {
		if left := astutil.ChildByField(parent, "left"); left != nil && nodesEqual(left, node) {
			relType = types.RelWritesField
		}
	}

	rel, err := types.NewRelationship(ctx.Project, caller.symbolID, relType, 0.8)
	if err != nil {
		return
	}
	line, col, _, _ := astutil.NodeLineColumn(node)
	rel.ContextLine = line
	rel.ContextColumn = col

	receiverQualified := fieldName
	if enclosing := ctx.CurrentClassOrStruct(); enclosing != nil {
		receiverQualified = enclosing.qualifiedName + "::" + fieldName
		rel.Metadata["implicitReceiver"] = enclosing.qualifiedName
	}

	resolved := ctx.Cache.ResolveSymbol(receiverQualified, ctx.ResolutionContext())
	if resolved == nil {
		resolved = ctx.Cache.ResolveSymbol(fieldName, ctx.ResolutionContext())
	}
	if resolved != nil {
		rel.ToID = resolved.ID
		rel.Confidence = 0.9
	} else {
		rel.UnresolvedTarget = fieldName
		rel.Confidence = 0.6
	}
	ctx.addRelationship(rel)
}

func nodesEqual(a, b *tree_sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// onImport handles preproc_include nodes and `import module;` declarations
// (spec.md §4.5): synthesizes one Module symbol per file on first use, then
// an `imports` Relationship to the target text.
func onImport(ctx *ParseContext, node *tree_sitter.Node) {
	text := astutil.TextOf(node, ctx.Source)
	target := strings.TrimSpace(text)
	target = strings.TrimPrefix(target, "#include")
	target = strings.TrimPrefix(target, "import")
	target = strings.TrimSuffix(strings.TrimSpace(target), ";")
	target = strings.Trim(strings.TrimSpace(target), "<>\"")
	if target == "" {
		return
	}

	if ctx.ModuleSymbol.IsNil() {
		startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)
		mod, err := types.NewSymbol(types.SymbolOpts{
			Project:       ctx.Project,
			Language:      ctx.Language,
			Name:          ctx.FilePath,
			QualifiedName: ctx.FilePath,
			Kind:          types.SymbolModule,
			FilePath:      ctx.FilePath,
			Start:         types.Position{Line: startLine, Column: startCol},
			End:           types.Position{Line: endLine, Column: endCol},
			Confidence:    1.0,
		})
		if err == nil {
			ctx.ModuleSymbol = ctx.addSymbol(mod)
		}
	}
	if ctx.ModuleSymbol.IsNil() {
		return
	}

	rel, err := types.NewRelationship(ctx.Project, ctx.ModuleSymbol, types.RelImports, 1.0)
	if err != nil {
		return
	}
	line, col, _, _ := astutil.NodeLineColumn(node)
	rel.ContextLine = line
	rel.ContextColumn = col
	rel.UnresolvedTarget = target
	ctx.addRelationship(rel)
}

// onTypeReference handles type_identifier / qualified_identifier nodes that
// appear in non-definition position (signatures, bodies), emitting a
// `references` Relationship at lower confidence (spec.md §4.5).
func onTypeReference(ctx *ParseContext, node *tree_sitter.Node) {
	if isDefinitionPositionName(node) {
		return
	}
	name := astutil.TextOf(node, ctx.Source)
	if name == "" || isControlKeyword(name) {
		return
	}

	from := ctx.EnclosingFunction()
	var fromID types.CompositeSymbolID
	if from != nil {
		fromID = from.symbolID
	} else if scope := ctx.CurrentScope(); scope != nil {
		fromID = scope.symbolID
	} else {
		return
	}

	rel, err := types.NewRelationship(ctx.Project, fromID, types.RelReferences, 0.5)
	if err != nil {
		return
	}
	line, col, _, _ := astutil.NodeLineColumn(node)
	rel.ContextLine = line
	rel.ContextColumn = col

	resolved := ctx.Cache.ResolveSymbol(name, ctx.ResolutionContext())
	if resolved != nil {
		rel.ToID = resolved.ID
		rel.Confidence = 0.7
	} else {
		rel.UnresolvedTarget = name
	}
	ctx.addRelationship(rel)
}

// isDefinitionPositionName reports whether node is itself the "name" field
// of its parent (a definition site, not a reference).
func isDefinitionPositionName(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	nameField := astutil.ChildByField(parent, "name")
	if nameField == nil {
		return false
	}
	return nodesEqual(nameField, node)
}
