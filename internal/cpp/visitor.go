package cpp

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/cflow"
	"github.com/standardbeagle/cxxgraph/internal/complexity"
	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// Parse runs the unified visitor over a tree-sitter C++ AST, producing a
// complete types.ParseResult (spec.md §4.9, §6).
func Parse(project types.ProjectID, language types.LanguageID, fileID types.FileID, filePath string, source []byte, tree *tree_sitter.Tree, cache *rescache.Cache, opts types.ParseOptions) *types.ParseResult {
	ctx := NewParseContext(project, language, fileID, filePath, source, cache)
	ctx.Options = opts
	cache.BeginFile(fileID)
	defer cache.EndFile(fileID)

	visit(ctx, tree.RootNode())
	if opts.EnablePatternDetection {
		detectWholeFilePatterns(ctx)
	}

	// Child-id slices are only consulted during traversal and pattern
	// detection above; once this file's symbols are handed off, the slab
	// they were drawn from can be reused for the next file.
	ctx.Arena.Release()

	symbols := ctx.Arena.All()
	return &types.ParseResult{
		FilePath:      filePath,
		Symbols:       symbols,
		Relationships: ctx.Relationships,
		Patterns:      ctx.Patterns,
		ControlFlow:   ctx.ControlFlow,
		Stats:         ctx.Stats,
	}
}

// visit is the depth-first traversal driver; handlers call walkChildren to
// recurse into children they don't fully consume themselves.
func visit(ctx *ParseContext, node *tree_sitter.Node) {
	if node == nil {
		return
	}
	ctx.Stats.NodesVisited++

	switch node.Kind() {
	case "class_specifier", "struct_specifier":
		onClass(ctx, node)
	case "namespace_definition":
		onNamespace(ctx, node)
	case "function_definition":
		onFunction(ctx, node)
	case "field_declaration", "parameter_declaration", "declaration":
		onVariable(ctx, node)
		walkChildren(ctx, node)
	case "enum_specifier":
		onEnum(ctx, node)
	case "type_definition", "alias_declaration", "using_declaration":
		onTypedef(ctx, node)
	case "template_declaration":
		onTemplate(ctx, node)
	case "lambda_expression":
		onLambda(ctx, node)
	case "call_expression":
		onCall(ctx, node)
		walkChildren(ctx, node)
	case "field_expression":
		onFieldAccess(ctx, node)
		walkChildren(ctx, node)
	case "preproc_include":
		onImport(ctx, node)
	case "base_class_clause":
		// handled inline by onClass; avoid double-visiting here.
	case "access_specifier":
		onAccessSpecifier(ctx, node)
	case "type_identifier", "qualified_identifier":
		onTypeReference(ctx, node)
		walkChildren(ctx, node)
	case "import_declaration":
		onImport(ctx, node)
	default:
		walkChildren(ctx, node)
	}
}

// walkChildren visits every named and anonymous child of node in source
// order.
func walkChildren(ctx *ParseContext, node *tree_sitter.Node) {
	if node == nil {
		return
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		visit(ctx, node.Child(i))
	}
}

// analyzeFunctionBody runs the complexity gate (spec.md §4.7/§4.8) and, when
// the score meets the gate, the control-flow analyzer (C8), merging the
// result into the file's accumulated ControlFlow.
func analyzeFunctionBody(ctx *ParseContext, fn *types.Symbol, body *tree_sitter.Node, startLine, endLine int) {
	if !ctx.Options.EnableComplexity {
		return
	}
	ctx.Stats.ComplexityChecks++

	var params *tree_sitter.Node
	funcDeclarator := astutil.FirstDescendantOfType(body.Parent(), "function_declarator")
	if funcDeclarator != nil {
		params = astutil.ChildByField(funcDeclarator, "parameters")
	}

	metrics := complexity.Analyze(fn.Name, body, params, startLine, endLine)
	fn.Features["cyclomaticComplexity"] = metrics.CyclomaticComplexity
	fn.Features["cognitiveComplexity"] = metrics.CognitiveComplexity
	fn.Features["nestingDepth"] = metrics.NestingDepth
	fn.Features["parameterCount"] = metrics.ParameterCount

	if !ctx.Options.EnableControlFlow || metrics.CyclomaticComplexity < complexity.Gate {
		return
	}

	ctx.Stats.ControlFlowAnalyzed++
	result := cflow.Analyze(fn.ID, body, ctx.Source, startLine, endLine)
	ctx.ControlFlow.Blocks = append(ctx.ControlFlow.Blocks, result.Blocks...)
	ctx.ControlFlow.Calls = append(ctx.ControlFlow.Calls, result.Calls...)
}
