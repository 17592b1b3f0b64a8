// Package cflow implements the control-flow analyzer (C8): basic-block
// extraction and call-edge extraction for functions above the complexity
// gate. Grounded on the teacher's AST-walk style (internal/analysis), but
// built fresh around spec.md §4.8's block model instead of the teacher's
// search-oriented metrics.
package cflow

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// MaxScanLines bounds how far into a function control-flow analysis scans
// (spec.md §4.8: "scan at most K lines into the function, default K=200").
const MaxScanLines = 200

var blockKindByNodeType = map[string]types.BlockType{
	"if_statement":     types.BlockConditional,
	"for_statement":    types.BlockLoop,
	"while_statement":  types.BlockLoop,
	"do_statement":     types.BlockLoop,
	"switch_statement": types.BlockSwitch,
	"try_statement":    types.BlockException,
	"catch_clause":     types.BlockException,
}

var loopTypeByNodeType = map[string]string{
	"for_statement":   "for",
	"while_statement":  "while",
	"do_statement":     "do_while",
}

// controlKeywords are never recorded as call targets even when they appear
// lexically as an identifier followed by '(' (spec.md §4.4 edge case,
// reused here since call edges are extracted during the same walk).
var controlKeywords = map[string]struct{}{
	"if": {}, "while": {}, "for": {}, "switch": {}, "catch": {},
	"sizeof": {}, "typeof": {}, "return": {},
}

// IsLogMacro reports whether name matches one of the conventional logging
// macro spellings that must never be treated as a symbol definition or call
// target (spec.md §4.4).
func IsLogMacro(name string) bool {
	switch name {
	case "LOG_INFO", "LOG_ERROR", "LOG_WARN", "LOG_WARNING", "LOG_DEBUG", "LOG_FATAL", "LOG_TRACE":
		return true
	}
	return false
}

// Result bundles the blocks and call edges found in one function.
type Result struct {
	Blocks []types.ControlFlowBlock
	Calls  []types.CallEdge
}

// Analyze walks a function body, emitting an entry block, one block per
// control construct, call edges, and a closing exit block. caller is the
// enclosing function Symbol's id, used to attribute call edges. source is
// the full file's bytes, used to slice condition text and call targets.
func Analyze(caller types.CompositeSymbolID, body *tree_sitter.Node, source []byte, startLine, endLine int) Result {
	var res Result
	seq := 0

	entryStart, _, _, _ := astutil.NodeLineColumn(body)
	res.Blocks = append(res.Blocks, types.ControlFlowBlock{
		Symbol:    caller,
		BlockType: types.BlockEntry,
		StartLine: entryStart,
		EndLine:   entryStart,
		Sequence:  seq,
	})
	seq++

	limit := startLine + MaxScanLines

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		nodeStart, _, nodeEnd, _ := astutil.NodeLineColumn(n)
		if nodeStart > limit {
			return
		}

		kind := n.Kind()
		if blockType, ok := blockKindByNodeType[kind]; ok {
			block := types.ControlFlowBlock{
				Symbol:    caller,
				BlockType: blockType,
				StartLine: nodeStart,
				EndLine:   nodeEnd,
				Condition: conditionText(n, source),
				LoopType:  loopTypeByNodeType[kind],
				Sequence:  seq,
			}
			res.Blocks = append(res.Blocks, block)
			seq++
		}

		if kind == "call_expression" {
			if edge, ok := callEdge(caller, n, source); ok {
				res.Calls = append(res.Calls, edge)
			}
		}

		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(body)

	_, _, bodyEnd, _ := astutil.NodeLineColumn(body)
	res.Blocks = append(res.Blocks, types.ControlFlowBlock{
		Symbol:    caller,
		BlockType: types.BlockExit,
		StartLine: bodyEnd,
		EndLine:   bodyEnd,
		Sequence:  seq,
	})

	return res
}

func conditionText(n *tree_sitter.Node, source []byte) string {
	cond := astutil.ChildByField(n, "condition")
	if cond == nil {
		return ""
	}
	return astutil.TextOf(cond, source)
}

func callEdge(caller types.CompositeSymbolID, call *tree_sitter.Node, source []byte) (types.CallEdge, bool) {
	fn := astutil.ChildByField(call, "function")
	if fn == nil {
		return types.CallEdge{}, false
	}
	kind := fn.Kind()

	var targetNode *tree_sitter.Node
	callType := types.CallDirect
	switch kind {
	case "identifier":
		targetNode = fn
	case "field_expression":
		targetNode = astutil.ChildByField(fn, "field")
		callType = types.CallMethod
	case "qualified_identifier":
		targetNode = fn
	default:
		return types.CallEdge{}, false
	}
	if targetNode == nil {
		return types.CallEdge{}, false
	}

	name := astutil.TextOf(targetNode, source)
	if IsControlKeyword(name) || IsLogMacro(name) {
		return types.CallEdge{}, false
	}

	line, col, _, _ := astutil.NodeLineColumn(call)
	return types.CallEdge{
		CallerSymbol: caller,
		TargetName:   name,
		Line:         line,
		Column:       col,
		CallType:     callType,
	}, true
}

// IsControlKeyword reports whether name is one of the keywords that must
// never be recorded as a call target even when followed by '(' in source
// text (spec.md §4.4).
func IsControlKeyword(name string) bool {
	_, ok := controlKeywords[name]
	return ok
}
