package cpp

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// templateParam is one parameter captured from a template_parameter_list,
// pending attachment to the wrapped class/function symbol (spec.md §4.4).
type templateParam struct {
	name string
	kind string // "typename", "class", or "non-type"
}

// onClass handles class_specifier / struct_specifier nodes (spec.md §4.4).
func onClass(ctx *ParseContext, node *tree_sitter.Node) {
	nameNode := astutil.ChildByField(node, "name")
	if nameNode == nil {
		// Anonymous class/struct: nothing to emit as a named symbol, but
		// still traverse its body so members are visited with file scope.
		walkChildren(ctx, node)
		return
	}
	name := astutil.TextOf(nameNode, ctx.Source)

	kind := types.SymbolClass
	if node.Kind() == "struct_specifier" {
		kind = types.SymbolStruct
	}

	qualifiedName := qualifiedNameFromAST(node, ctx.Source, name)
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)

	var parent *types.Symbol
	if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedName,
		Kind:          kind,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		IsExported:    isInsideExportBlock(node),
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}

	attachDocComment(ctx, s, node)

	id := ctx.addSymbol(s)
	consumePendingTemplateParams(ctx, s)
	ctx.pushScope(kind, name, qualifiedName, id)
	defer ctx.popScope()

	if base := astutil.ChildByField(node, "base_class_clause"); base != nil {
		onInheritance(ctx, s, base)
	}

	// struct members default to public, class members to private, until an
	// access_specifier node inside the body says otherwise; restore the
	// enclosing level once this class/struct's body has been walked.
	savedAccess := ctx.CurrentAccessLevel
	ctx.CurrentAccessLevel = types.VisibilityPublic
	if kind == types.SymbolClass {
		ctx.CurrentAccessLevel = types.VisibilityPrivate
	}
	defer func() { ctx.CurrentAccessLevel = savedAccess }()

	walkChildren(ctx, node)
}

// onNamespace handles namespace_definition nodes, including the C++17
// nested form "namespace A::B { ... }" (spec.md §4.4).
func onNamespace(ctx *ParseContext, node *tree_sitter.Node) {
	nameNode := astutil.ChildByField(node, "name")
	if nameNode == nil {
		walkChildren(ctx, node)
		return
	}
	fullName := astutil.TextOf(nameNode, ctx.Source)
	segments := strings.Split(fullName, "::")

	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)

	pushed := 0
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		qualifiedName := qualifiedNameFromAST(node, ctx.Source, seg)
		if outer := ctx.CurrentNamespace(); outer != "" && pushed > 0 {
			qualifiedName = outer + "::" + seg
		}

		var parent *types.Symbol
		if top := ctx.CurrentScope(); top != nil {
			parent = ctx.Arena.Get(top.symbolID)
		}

		s, err := types.NewSymbol(types.SymbolOpts{
			Project:       ctx.Project,
			Language:      ctx.Language,
			Name:          seg,
			QualifiedName: qualifiedName,
			Kind:          types.SymbolNamespace,
			FilePath:      ctx.FilePath,
			Start:         types.Position{Line: startLine, Column: startCol},
			End:           types.Position{Line: endLine, Column: endCol},
			Namespace:     qualifiedName,
			Parent:        parent,
			Confidence:    1.0,
		})
		if err != nil {
			ctx.dropInvalid()
			continue
		}
		id := ctx.addSymbol(s)
		ctx.pushScope(types.SymbolNamespace, seg, qualifiedName, id)
		pushed++
	}
	defer func() {
		for i := 0; i < pushed; i++ {
			ctx.popScope()
		}
	}()

	walkChildren(ctx, node)
}

// onFunction handles function_definition nodes: functions, methods,
// constructors, destructors (spec.md §4.4).
func onFunction(ctx *ParseContext, node *tree_sitter.Node) {
	declarator := astutil.ChildByField(node, "declarator")
	funcDeclarator := astutil.FirstDescendantOfType(declarator, "function_declarator")
	if funcDeclarator == nil {
		walkChildren(ctx, node)
		return
	}

	nameNode := astutil.ChildByField(funcDeclarator, "declarator")
	if nameNode == nil {
		walkChildren(ctx, node)
		return
	}
	name := astutil.TextOf(nameNode, ctx.Source)
	if isLogMacro(name) {
		walkChildren(ctx, node)
		return
	}

	paramsNode := astutil.ChildByField(funcDeclarator, "parameters")
	paramText := ""
	if paramsNode != nil {
		paramText = astutil.TextOf(paramsNode, ctx.Source)
	}
	// The parameter_list node's text includes its own parentheses.
	paramText = strings.TrimSuffix(strings.TrimPrefix(paramText, "("), ")")
	paramSig := stripParamWhitespace(paramText)

	isConst := strings.Contains(astutil.TextOf(funcDeclarator, ctx.Source), ") const")

	returnType := "void"
	if typeNode := astutil.ChildByField(node, "type"); typeNode != nil {
		returnType = astutil.TextOf(typeNode, ctx.Source)
	}

	enclosingClass := ctx.CurrentClassOrStruct()
	isMethod := enclosingClass != nil || nameNode.Kind() == "field_identifier"

	kind := types.SymbolFunction
	if isMethod {
		kind = types.SymbolMethod
	}
	if enclosingClass != nil && name == enclosingClass.name {
		kind = types.SymbolConstructor
	}
	if strings.HasPrefix(name, "~") {
		kind = types.SymbolDestructor
	}

	signature := fmt.Sprintf("%s(%s)", name, paramSig)
	if isConst {
		signature += " const"
	}

	qualifiedName := qualifiedNameFromAST(node, ctx.Source, name) + "(" + paramSig + ")"
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)

	var parent *types.Symbol
	if enclosingClass != nil {
		parent = ctx.Arena.Get(enclosingClass.symbolID)
	} else if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedName,
		Kind:          kind,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		ReturnType:    returnType,
		Signature:     signature,
		Visibility:    ctx.CurrentAccessLevel,
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		IsExported:    isInsideExportBlock(node),
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}

	tagNameHeuristics(s, name)
	attachDocComment(ctx, s, node)

	id := ctx.addSymbol(s)
	consumePendingTemplateParams(ctx, s)
	ctx.pushScope(kind, name, qualifiedName, id)
	defer ctx.popScope()

	if body := astutil.ChildByField(node, "body"); body != nil {
		analyzeFunctionBody(ctx, s, body, startLine, endLine)
		walkChildren(ctx, body)
	}
}

// onAccessSpecifier handles an access_specifier node ("public:", "private:",
// "protected:") inside a class/struct body, updating the level every
// subsequently visited member picks up until the next specifier or the
// enclosing body's close (spec.md §4.4 "Visibility").
func onAccessSpecifier(ctx *ParseContext, node *tree_sitter.Node) {
	text := astutil.TextOf(node, ctx.Source)
	switch {
	case strings.HasPrefix(text, "private"):
		ctx.CurrentAccessLevel = types.VisibilityPrivate
	case strings.HasPrefix(text, "protected"):
		ctx.CurrentAccessLevel = types.VisibilityProtected
	case strings.HasPrefix(text, "public"):
		ctx.CurrentAccessLevel = types.VisibilityPublic
	}
}

// onVariable handles field_declaration, parameter_declaration, and
// declaration nodes (spec.md §4.4), including structured bindings.
func onVariable(ctx *ParseContext, node *tree_sitter.Node) {
	if binding := astutil.FirstDescendantOfType(node, "structured_binding_declarator"); binding != nil {
		onStructuredBinding(ctx, node, binding)
		return
	}

	declarator := astutil.ChildByField(node, "declarator")
	if declarator == nil {
		return
	}

	// A field_declaration (or file-scope declaration) whose declarator wraps
	// a function_declarator is a function/method prototype ("void f();"),
	// not a data field — route it through onFunction so it comes out as
	// method/function, not field (spec.md §4.4, S1). onFunction already
	// tolerates a missing "body" field, which is exactly what a prototype
	// has. parameter_declaration is excluded: a function-pointer-typed
	// parameter also has a function_declarator in its declarator, but it's a
	// parameter, not a prototype.
	if node.Kind() != "parameter_declaration" && astutil.FirstDescendantOfType(declarator, "function_declarator") != nil {
		onFunction(ctx, node)
		return
	}

	nameNode := astutil.FirstDescendantOfType(declarator, "identifier")
	if nameNode == nil {
		nameNode = astutil.FirstDescendantOfType(declarator, "field_identifier")
	}
	if nameNode == nil {
		return
	}
	name := astutil.TextOf(nameNode, ctx.Source)

	kind := types.SymbolVariable
	var parent *types.Symbol
	if node.Kind() == "field_declaration" {
		kind = types.SymbolField
		if enclosing := ctx.CurrentClassOrStruct(); enclosing != nil {
			parent = ctx.Arena.Get(enclosing.symbolID)
		}
	} else if node.Kind() == "parameter_declaration" {
		kind = types.SymbolParameter
	} else if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	returnType := ""
	if typeNode := astutil.ChildByField(node, "type"); typeNode != nil {
		returnType = astutil.TextOf(typeNode, ctx.Source)
	}

	qualifiedName := qualifiedNameFromAST(node, ctx.Source, name)
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)
	mods := detectModifiers(node, ctx.Source)

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedName,
		Kind:          kind,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		ReturnType:    returnType,
		Visibility:    ctx.CurrentAccessLevel,
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}
	tagModifiers(s.Tag, mods)
	if len(mods.rawWords) > 0 {
		s.Features["modifiers"] = mods.rawWords
	}
	attachDocComment(ctx, s, node)
	ctx.addSymbol(s)
}

// onStructuredBinding handles `auto [a, b, c] = ...;` (spec.md §4.4, S5).
func onStructuredBinding(ctx *ParseContext, declNode, binding *tree_sitter.Node) {
	names := astutil.DescendantsOfType(binding, "identifier")
	var bound []string
	for _, n := range names {
		bound = append(bound, astutil.TextOf(n, ctx.Source))
	}
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(declNode)

	var parent *types.Symbol
	if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	for i, name := range bound {
		qualifiedName := qualifiedNameFromAST(declNode, ctx.Source, name)
		s, err := types.NewSymbol(types.SymbolOpts{
			Project:       ctx.Project,
			Language:      ctx.Language,
			Name:          name,
			QualifiedName: qualifiedName,
			Kind:          types.SymbolVariable,
			FilePath:      ctx.FilePath,
			Start:         types.Position{Line: startLine, Column: startCol},
			End:           types.Position{Line: endLine, Column: endCol},
			ReturnType:    "auto",
			Namespace:     ctx.CurrentNamespace(),
			Parent:        parent,
			Confidence:    1.0,
		})
		if err != nil {
			ctx.dropInvalid()
			continue
		}
		s.Tag("structured_binding")
		s.Tag("auto_deduced")
		s.Tag("modern_cpp")
		s.Features["bindingVariables"] = append([]string{}, bound...)
		s.Features["bindingIndex"] = i
		ctx.addSymbol(s)
	}
}

// onEnum handles enum_specifier nodes; enumerators become child variables
// (spec.md §4.4).
func onEnum(ctx *ParseContext, node *tree_sitter.Node) {
	nameNode := astutil.ChildByField(node, "name")
	if nameNode == nil {
		walkChildren(ctx, node)
		return
	}
	name := astutil.TextOf(nameNode, ctx.Source)
	qualifiedName := qualifiedNameFromAST(node, ctx.Source, name)
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)

	var parent *types.Symbol
	if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedName,
		Kind:          types.SymbolEnum,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}
	attachDocComment(ctx, s, node)
	id := ctx.addSymbol(s)
	ctx.pushScope(types.SymbolEnum, name, qualifiedName, id)
	defer ctx.popScope()

	if body := astutil.ChildByField(node, "body"); body != nil {
		for _, enumerator := range astutil.DescendantsOfType(body, "enumerator") {
			enumeratorName := astutil.ChildByField(enumerator, "name")
			if enumeratorName == nil {
				continue
			}
			eName := astutil.TextOf(enumeratorName, ctx.Source)
			eLine, eCol, eEndLine, eEndCol := astutil.NodeLineColumn(enumerator)
			es, err := types.NewSymbol(types.SymbolOpts{
				Project:       ctx.Project,
				Language:      ctx.Language,
				Name:          eName,
				QualifiedName: qualifiedName + "::" + eName,
				Kind:          types.SymbolVariable,
				FilePath:      ctx.FilePath,
				Start:         types.Position{Line: eLine, Column: eCol},
				End:           types.Position{Line: eEndLine, Column: eEndCol},
				Namespace:     ctx.CurrentNamespace(),
				Parent:        s,
				Confidence:    1.0,
			})
			if err != nil {
				ctx.dropInvalid()
				continue
			}
			es.Tag("enumerator")
			ctx.addSymbol(es)
		}
	}
}

// onTypedef handles type_definition, alias_declaration, and using_declaration
// (spec.md §4.4). `using namespace X;` records an import instead of a
// symbol.
func onTypedef(ctx *ParseContext, node *tree_sitter.Node) {
	text := astutil.TextOf(node, ctx.Source)
	if node.Kind() == "using_declaration" && strings.HasPrefix(strings.TrimSpace(text), "using namespace") {
		target := strings.TrimSpace(text)
		target = strings.TrimPrefix(target, "using namespace")
		target = strings.TrimSuffix(strings.TrimSpace(target), ";")
		if target != "" {
			ctx.ImportedNamespaces = append(ctx.ImportedNamespaces, target)
		}
		return
	}

	var nameNode *tree_sitter.Node
	if n := astutil.ChildByField(node, "name"); n != nil {
		nameNode = n
	} else if n := astutil.ChildByField(node, "declarator"); n != nil {
		nameNode = astutil.FirstDescendantOfType(n, "type_identifier")
	}
	if nameNode == nil {
		return
	}
	name := astutil.TextOf(nameNode, ctx.Source)
	qualifiedName := qualifiedNameFromAST(node, ctx.Source, name)
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)

	var parent *types.Symbol
	if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedName,
		Kind:          types.SymbolTypedef,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}
	if node.Kind() == "using_declaration" {
		if typeNode := astutil.ChildByField(node, "type"); typeNode != nil {
			ctx.TypeAliases[name] = astutil.TextOf(typeNode, ctx.Source)
		}
	}
	attachDocComment(ctx, s, node)
	ctx.addSymbol(s)
}

// onTemplate handles template_declaration nodes: wraps a class/function/
// struct handler (spec.md §4.4).
func onTemplate(ctx *ParseContext, node *tree_sitter.Node) {
	params := astutil.ChildByField(node, "parameters")
	var captured []templateParam
	if params != nil {
		for _, p := range astutil.NamedChildren(params) {
			switch p.Kind() {
			case "type_parameter_declaration":
				if n := astutil.ChildByField(p, "name"); n != nil {
					kind := "typename"
					if strings.HasPrefix(astutil.TextOf(p, ctx.Source), "class") {
						kind = "class"
					}
					captured = append(captured, templateParam{name: astutil.TextOf(n, ctx.Source), kind: kind})
				}
			case "parameter_declaration":
				if n := astutil.ChildByField(p, "declarator"); n != nil {
					captured = append(captured, templateParam{name: astutil.TextOf(n, ctx.Source), kind: "non-type"})
				}
			}
		}
	}

	ctx.TemplateDepth++
	ctx.pendingTemplateParams = captured
	walkChildren(ctx, node)
	ctx.pendingTemplateParams = nil
	ctx.TemplateDepth--
}

// consumePendingTemplateParams attaches any captured template parameters to
// the symbol the enclosing template_declaration wraps, tagging it
// `template` and emitting one parameter Symbol per parameter with parent =
// the inner symbol (spec.md §4.4).
func consumePendingTemplateParams(ctx *ParseContext, inner *types.Symbol) {
	if len(ctx.pendingTemplateParams) == 0 {
		return
	}
	inner.Tag("template")
	names := make([]string, 0, len(ctx.pendingTemplateParams))
	for _, p := range ctx.pendingTemplateParams {
		names = append(names, p.name)
	}
	inner.Features["templateParameters"] = names

	for _, p := range ctx.pendingTemplateParams {
		ps, err := types.NewSymbol(types.SymbolOpts{
			Project:       ctx.Project,
			Language:      ctx.Language,
			Name:          p.name,
			QualifiedName: inner.QualifiedName + "::" + p.name,
			Kind:          types.SymbolParameter,
			FilePath:      ctx.FilePath,
			Start:         inner.Start,
			End:           inner.Start,
			Namespace:     inner.Namespace,
			Parent:        inner,
			Confidence:    1.0,
		})
		if err != nil {
			ctx.dropInvalid()
			continue
		}
		ps.Tag("template_parameter")
		ps.Features["templateParameterKind"] = p.kind
		ctx.addSymbol(ps)
	}
	ctx.pendingTemplateParams = nil
}

// onLambda handles lambda_expression nodes (spec.md §4.4).
func onLambda(ctx *ParseContext, node *tree_sitter.Node) {
	startLine, startCol, endLine, endCol := astutil.NodeLineColumn(node)
	name := fmt.Sprintf("lambda_%d_%d", startLine, startCol)

	captures := ""
	if c := astutil.ChildByField(node, "captures"); c != nil {
		captures = astutil.TextOf(c, ctx.Source)
	}
	params := ""
	if declarator := astutil.ChildByField(node, "declarator"); declarator != nil {
		if p := astutil.ChildByField(declarator, "parameters"); p != nil {
			params = astutil.TextOf(p, ctx.Source)
		}
	}

	var parent *types.Symbol
	if top := ctx.CurrentScope(); top != nil {
		parent = ctx.Arena.Get(top.symbolID)
	}

	s, err := types.NewSymbol(types.SymbolOpts{
		Project:       ctx.Project,
		Language:      ctx.Language,
		Name:          name,
		QualifiedName: qualifiedNameFromAST(node, ctx.Source, name),
		Kind:          types.SymbolLambda,
		FilePath:      ctx.FilePath,
		Start:         types.Position{Line: startLine, Column: startCol},
		End:           types.Position{Line: endLine, Column: endCol},
		Signature:     captures + params,
		Namespace:     ctx.CurrentNamespace(),
		Parent:        parent,
		Confidence:    1.0,
	})
	if err != nil {
		ctx.dropInvalid()
		return
	}
	id := ctx.addSymbol(s)
	ctx.pushScope(types.SymbolLambda, name, s.QualifiedName, id)
	defer ctx.popScope()

	if body := astutil.ChildByField(node, "body"); body != nil {
		walkChildren(ctx, body)
	}
}
