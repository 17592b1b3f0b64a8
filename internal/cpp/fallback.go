package cpp

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/cxxgraph/internal/complexity"
	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// fallbackControlFlowBudget is N in spec.md §4.6 step 5: the maximum number
// of functions per file the line-oriented pass will run pattern-based
// control flow on; later functions get only the complexity estimate.
const fallbackControlFlowBudget = 10

var (
	namespaceLineRe = regexp.MustCompile(`^\s*(?:export\s+)?namespace\s+([A-Za-z_][A-Za-z0-9_:]*)\s*\{?\s*$`)
	classLineRe     = regexp.MustCompile(`^\s*(?:export\s+)?(?:template\s*<[^>]*>\s*)?(class|struct)\s+([A-Za-z_]\w*)\s*(?::\s*([^{]+))?\{?\s*$`)
	qualifiedFnRe   = regexp.MustCompile(`^\s*[\w:<>,\*&\s]+?\s+([A-Za-z_]\w*)::([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(const)?\s*\{?\s*$`)
	plainFnRe       = regexp.MustCompile(`^\s*(?:(inline|static|virtual|constexpr)\s+)*[\w:<>,\*&\s]+?\s+([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(const)?\s*\{?\s*$`)
	memberDeclRe    = regexp.MustCompile(`^\s*(?:(public|private|protected)\s*:)?\s*(?:(static|const|mutable|constexpr)\s+)*[\w:<>,\*&\s]+\s+([A-Za-z_]\w*)\s*(=\s*[^;]+)?;\s*$`)
	closeBraceRe    = regexp.MustCompile(`\}`)
)

// fallbackScope is one entry of the fallback's namespace/class stack.
type fallbackScope struct {
	kind          types.SymbolKind
	name          string
	qualifiedName string
	symbolID      types.CompositeSymbolID
	entryDepth    int
}

// ParseFallback runs the deterministic line-oriented extractor (C6),
// used when the grammar is unavailable, parsing throws, or the file exceeds
// the large-file threshold (spec.md §4.6).
func ParseFallback(project types.ProjectID, language types.LanguageID, fileID types.FileID, filePath string, source []byte, cache *rescache.Cache, opts types.ParseOptions) *types.ParseResult {
	ctx := NewParseContext(project, language, fileID, filePath, source, cache)
	ctx.Options = opts
	ctx.Stats.UsedFallback = true
	cache.BeginFile(fileID)
	defer cache.EndFile(fileID)

	lines := joinMultilineSignatures(strings.Split(string(source), "\n"))

	var scopes []fallbackScope
	depth := 0
	functionsAnalyzed := 0

	popScopesBelow := func() {
		for len(scopes) > 0 && depth < scopes[len(scopes)-1].entryDepth {
			scopes = scopes[:len(scopes)-1]
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case namespaceLineRe.MatchString(line):
			m := namespaceLineRe.FindStringSubmatch(line)
			for _, seg := range strings.Split(m[1], "::") {
				qualifiedName := seg
				if len(scopes) > 0 {
					qualifiedName = scopes[len(scopes)-1].qualifiedName + "::" + seg
				}
				s, err := types.NewSymbol(types.SymbolOpts{
					Project: project, Language: language, Name: seg, QualifiedName: qualifiedName,
					Kind: types.SymbolNamespace, FilePath: filePath,
					Start: types.Position{Line: lineNo, Column: 1}, Confidence: 0.9,
				})
				if err != nil {
					ctx.dropInvalid()
					continue
				}
				id := ctx.addSymbol(s)
				scopes = append(scopes, fallbackScope{kind: types.SymbolNamespace, name: seg, qualifiedName: qualifiedName, symbolID: id, entryDepth: depth + 1})
			}

		case classLineRe.MatchString(line):
			m := classLineRe.FindStringSubmatch(line)
			kind := types.SymbolClass
			if m[1] == "struct" {
				kind = types.SymbolStruct
			}
			name := m[2]
			qualifiedName := name
			var parent *types.Symbol
			if len(scopes) > 0 {
				top := scopes[len(scopes)-1]
				qualifiedName = top.qualifiedName + "::" + name
				parent = ctx.Arena.Get(top.symbolID)
			}
			s, err := types.NewSymbol(types.SymbolOpts{
				Project: project, Language: language, Name: name, QualifiedName: qualifiedName,
				Kind: kind, FilePath: filePath, Start: types.Position{Line: lineNo, Column: 1},
				Parent: parent, Confidence: 0.9,
			})
			if err != nil {
				ctx.dropInvalid()
				continue
			}
			id := ctx.addSymbol(s)
			scopes = append(scopes, fallbackScope{kind: kind, name: name, qualifiedName: qualifiedName, symbolID: id, entryDepth: depth + 1})

			if bases := strings.TrimSpace(m[3]); bases != "" {
				for _, rawBase := range strings.Split(bases, ",") {
					base := cleanBaseName(rawBase)
					if base == "" {
						continue
					}
					rel, err := types.NewRelationship(project, id, types.RelInherits, 0.8)
					if err != nil {
						continue
					}
					rel.ContextLine = lineNo
					resolved := cache.ResolveSymbol(base, ctx.ResolutionContext())
					if resolved != nil {
						rel.ToID = resolved.ID
					} else {
						rel.UnresolvedTarget = base
					}
					ctx.addRelationship(rel)
				}
			}

		case qualifiedFnRe.MatchString(line):
			m := qualifiedFnRe.FindStringSubmatch(line)
			className, fnName, params := m[1], m[2], m[3]
			if isLogMacro(fnName) {
				break
			}
			qualifiedName := className + "::" + fnName + "(" + stripParamWhitespace(params) + ")"
			var parent *types.Symbol
			for _, sc := range scopes {
				if sc.name == className {
					parent = ctx.Arena.Get(sc.symbolID)
				}
			}
			s, err := types.NewSymbol(types.SymbolOpts{
				Project: project, Language: language, Name: fnName, QualifiedName: qualifiedName,
				Kind: types.SymbolMethod, FilePath: filePath, Start: types.Position{Line: lineNo, Column: 1},
				Parent: parent, Confidence: 0.9,
			})
			if err != nil {
				ctx.dropInvalid()
				break
			}
			id := ctx.addSymbol(s)
			tagNameHeuristics(s, fnName)
			functionsAnalyzed = analyzeFallbackFunction(ctx, s, lines, i, functionsAnalyzed)
			scopes = append(scopes, fallbackScope{kind: types.SymbolMethod, name: fnName, qualifiedName: qualifiedName, symbolID: id, entryDepth: depth + 1})

		case plainFnRe.MatchString(line):
			m := plainFnRe.FindStringSubmatch(line)
			fnName, params := m[2], m[3]
			if isLogMacro(fnName) || isControlKeyword(fnName) {
				break
			}
			kind := types.SymbolFunction
			var parent *types.Symbol
			if top := topClassScope(scopes); top != nil {
				kind = types.SymbolMethod
				parent = ctx.Arena.Get(top.symbolID)
			}
			qualifiedName := fnName + "(" + stripParamWhitespace(params) + ")"
			if top := topClassScope(scopes); top != nil {
				qualifiedName = top.qualifiedName + "::" + qualifiedName
			} else if len(scopes) > 0 {
				qualifiedName = scopes[len(scopes)-1].qualifiedName + "::" + qualifiedName
			}
			s, err := types.NewSymbol(types.SymbolOpts{
				Project: project, Language: language, Name: fnName, QualifiedName: qualifiedName,
				Kind: kind, FilePath: filePath, Start: types.Position{Line: lineNo, Column: 1},
				Parent: parent, Confidence: 0.9,
			})
			if err != nil {
				ctx.dropInvalid()
				break
			}
			id := ctx.addSymbol(s)
			tagNameHeuristics(s, fnName)
			functionsAnalyzed = analyzeFallbackFunction(ctx, s, lines, i, functionsAnalyzed)
			scopes = append(scopes, fallbackScope{kind: kind, name: fnName, qualifiedName: qualifiedName, symbolID: id, entryDepth: depth + 1})

		case memberDeclRe.MatchString(line):
			if top := topClassScope(scopes); top != nil {
				m := memberDeclRe.FindStringSubmatch(line)
				name := m[3]
				parent := ctx.Arena.Get(top.symbolID)
				s, err := types.NewSymbol(types.SymbolOpts{
					Project: project, Language: language, Name: name, QualifiedName: top.qualifiedName + "::" + name,
					Kind: types.SymbolField, FilePath: filePath, Start: types.Position{Line: lineNo, Column: 1},
					Parent: parent, Confidence: 0.8,
				})
				if err == nil {
					ctx.addSymbol(s)
				} else {
					ctx.dropInvalid()
				}
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if closeBraceRe.MatchString(line) {
			popScopesBelow()
		}
	}

	if opts.EnablePatternDetection {
		detectWholeFilePatterns(ctx)
	}

	// See Parse's matching call: child-id slices aren't needed once this
	// file's symbols are handed off.
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

// analyzeFallbackFunction always records a line-based complexity estimate,
// and runs pattern-based control flow (C8.1) only while under budget and
// above the complexity gate (spec.md §4.6 step 5). No member-access
// (reads/writes field) analysis is done on the fallback path. Returns the
// updated budget counter.
func analyzeFallbackFunction(ctx *ParseContext, fn *types.Symbol, lines []string, startIdx, functionsAnalyzed int) int {
	ctx.Stats.ComplexityChecks++
	score := estimateLineComplexity(lines, startIdx)
	fn.Features["cyclomaticComplexity"] = score

	if score >= complexity.Gate && functionsAnalyzed < fallbackControlFlowBudget {
		ctx.Stats.ControlFlowAnalyzed++
		emitFallbackControlFlow(ctx, fn, lines, startIdx)
		return functionsAnalyzed + 1
	}
	return functionsAnalyzed
}

// estimateLineComplexity approximates C7's scoring from raw text when no
// AST is available: base 1, +1 per decision keyword found in the function's
// body up to its closing brace or the 200-line scan bound.
func estimateLineComplexity(lines []string, startIdx int) int {
	score := 1
	depth := 0
	entered := false
	limit := startIdx + 200
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := startIdx; i < limit; i++ {
		line := lines[i]
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if strings.Contains(line, "{") {
			entered = true
		}
		for _, kw := range []string{"if (", "if(", "else if", "for (", "for(", "while (", "while(", "switch (", "switch(", "catch "} {
			if strings.Contains(line, kw) {
				score++
			}
		}
		if entered && depth <= 0 {
			break
		}
	}
	return score
}

// emitFallbackControlFlow extracts a coarse entry/exit block pair plus one
// call edge per recognized `name(` call site, filtering control keywords
// and LOG macros (spec.md §4.6 step 5, §4.4).
func emitFallbackControlFlow(ctx *ParseContext, fn *types.Symbol, lines []string, startIdx int) {
	limit := startIdx + 200
	if limit > len(lines) {
		limit = len(lines)
	}
	ctx.ControlFlow.Blocks = append(ctx.ControlFlow.Blocks, types.ControlFlowBlock{
		Symbol: fn.ID, BlockType: types.BlockEntry, StartLine: startIdx + 1, EndLine: startIdx + 1,
	})

	callRe := regexp.MustCompile(`([A-Za-z_]\w*)\s*\(`)
	for i := startIdx; i < limit; i++ {
		for _, m := range callRe.FindAllStringSubmatch(lines[i], -1) {
			name := m[1]
			if isControlKeyword(name) || isLogMacro(name) {
				continue
			}
			ctx.ControlFlow.Calls = append(ctx.ControlFlow.Calls, types.CallEdge{
				CallerSymbol: fn.ID, TargetName: name, Line: i + 1,
			})
		}
	}
	ctx.ControlFlow.Blocks = append(ctx.ControlFlow.Blocks, types.ControlFlowBlock{
		Symbol: fn.ID, BlockType: types.BlockExit, StartLine: limit, EndLine: limit,
	})
}

// joinMultilineSignatures joins a function signature split across up to 3
// lines (spec.md §4.6 step 1): the join completes only once both `)` and
// `{` have been seen within the lookahead window; otherwise the original
// lines are left untouched.
func joinMultilineSignatures(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.Contains(line, "(") && !strings.Contains(line, ")") {
			joined := line
			found := false
			for look := 1; look <= 3 && i+look < len(lines); look++ {
				joined += " " + strings.TrimSpace(lines[i+look])
				if strings.Contains(joined, ")") && strings.Contains(joined, "{") {
					found = true
					i += look
					break
				}
			}
			if found {
				out = append(out, joined)
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

// topClassScope returns the innermost class/struct entry in scopes, or nil.
func topClassScope(scopes []fallbackScope) *fallbackScope {
	for i := len(scopes) - 1; i >= 0; i-- {
		if scopes[i].kind == types.SymbolClass || scopes[i].kind == types.SymbolStruct {
			return &scopes[i]
		}
	}
	return nil
}

// tagNameHeuristics applies the factory/gpu-execution name-based pattern
// tags spec.md §4.6 step 7 names.
func tagNameHeuristics(s *types.Symbol, name string) {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "factory") || strings.Contains(lower, "create") {
		s.Tag("factory")
	}
	for _, kw := range []string{"gpu", "kernel", "cuda", "opencl", "compute", "shader"} {
		if strings.Contains(lower, kw) {
			s.Tag("gpu_execution")
			break
		}
	}
}
