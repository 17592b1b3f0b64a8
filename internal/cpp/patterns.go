package cpp

import (
	"strings"

	"github.com/standardbeagle/cxxgraph/internal/types"
)

// singletonAccessorNames are the conventional spellings of a singleton's
// static accessor, checked case-insensitively against a method's simple
// name.
var singletonAccessorNames = map[string]struct{}{
	"instance": {}, "getinstance": {}, "get_instance": {}, "sharedinstance": {},
}

// detectWholeFilePatterns runs the whole-file pattern detectors spec.md
// §4.10 step 5 calls out (RAII, singleton, factory, gpu-execution), after
// the main traversal has populated ctx.Arena. Unlike the per-symbol name
// tags tagNameHeuristics applies during traversal, these need the complete
// containment forest: RAII and singleton both look at a class's full set of
// children, which isn't known until the class body has been fully walked.
func detectWholeFilePatterns(ctx *ParseContext) {
	for _, sym := range ctx.Arena.All() {
		switch sym.Kind {
		case types.SymbolClass, types.SymbolStruct:
			detectClassPatterns(ctx, sym)
		case types.SymbolFunction, types.SymbolMethod:
			detectNameHeuristicPattern(ctx, sym)
		}
	}
}

// detectNameHeuristicPattern turns the factory/gpu_execution tags
// tagNameHeuristics already applied (AST path: onFunction; fallback path:
// the function/method handlers in fallback.go) into Pattern records, so a
// persisted project carries these as queryable patterns, not just symbol
// tags (spec.md §4.6 step 7, §3 "Pattern").
func detectNameHeuristicPattern(ctx *ParseContext, sym *types.Symbol) {
	if sym.HasTag("factory") {
		p := types.NewPattern(ctx.Project, "factory", sym.QualifiedName, 0.6, sym.ID)
		p.Details["heuristic"] = "name contains factory/create"
		ctx.Patterns = append(ctx.Patterns, p)
	}
	if sym.HasTag("gpu_execution") {
		p := types.NewPattern(ctx.Project, "gpu_execution", sym.QualifiedName, 0.6, sym.ID)
		p.Details["heuristic"] = "name contains gpu/kernel/cuda/opencl/compute/shader"
		ctx.Patterns = append(ctx.Patterns, p)
	}
}

// detectClassPatterns inspects one class/struct's children for an RAII
// constructor/destructor pair and a singleton-shaped private constructor
// plus static accessor (spec.md §4.10 step 5).
func detectClassPatterns(ctx *ParseContext, class *types.Symbol) {
	var ctors, dtors, accessors []*types.Symbol

	for _, childID := range ctx.Arena.ChildrenOf(class.ID) {
		child := ctx.Arena.Get(childID)
		if child == nil {
			continue
		}
		switch child.Kind {
		case types.SymbolConstructor:
			ctors = append(ctors, child)
		case types.SymbolDestructor:
			dtors = append(dtors, child)
		case types.SymbolMethod:
			if isSingletonAccessorName(child.SimpleName()) {
				accessors = append(accessors, child)
			}
		}
	}

	if len(ctors) > 0 && len(dtors) > 0 {
		ids := []types.CompositeSymbolID{class.ID}
		for _, c := range ctors {
			ids = append(ids, c.ID)
		}
		for _, d := range dtors {
			ids = append(ids, d.ID)
		}
		p := types.NewPattern(ctx.Project, "raii", class.QualifiedName, 0.6, ids...)
		p.Details["heuristic"] = "class declares both a constructor and a destructor"
		ctx.Patterns = append(ctx.Patterns, p)
	}

	privateCtor := false
	for _, c := range ctors {
		if c.Visibility == types.VisibilityPrivate || c.Visibility == types.VisibilityProtected {
			privateCtor = true
			break
		}
	}
	if privateCtor && len(accessors) > 0 {
		ids := []types.CompositeSymbolID{class.ID}
		for _, a := range accessors {
			ids = append(ids, a.ID)
		}
		p := types.NewPattern(ctx.Project, "singleton", class.QualifiedName, 0.7, ids...)
		p.Details["heuristic"] = "non-public constructor with a static-style instance accessor"
		ctx.Patterns = append(ctx.Patterns, p)
	}
}

func isSingletonAccessorName(name string) bool {
	_, ok := singletonAccessorNames[strings.ToLower(name)]
	return ok
}
