package cflow

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

func parseBody(t *testing.T, src string) (*tree_sitter.Tree, *tree_sitter.Node, []byte) {
	t.Helper()
	parser := tree_sitter.NewParser()
	defer parser.Close()
	lang := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	content := []byte(src)
	tree := parser.Parse(content, nil)
	if tree == nil {
		t.Fatal("Parse returned nil tree")
	}
	fn := astutil.FirstDescendantOfType(tree.RootNode(), "function_definition")
	if fn == nil {
		t.Fatal("expected a function_definition node")
	}
	body := astutil.ChildByField(fn, "body")
	return tree, body, content
}

func countBlockType(blocks []types.ControlFlowBlock, bt types.BlockType) int {
	n := 0
	for _, b := range blocks {
		if b.BlockType == bt {
			n++
		}
	}
	return n
}

func TestAnalyze_EntryAndExitAlwaysPresent(t *testing.T) {
	tree, body, src := parseBody(t, "void f() {}")
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, src, 1, 1)
	if countBlockType(res.Blocks, types.BlockEntry) != 1 {
		t.Errorf("expected exactly one entry block")
	}
	if countBlockType(res.Blocks, types.BlockExit) != 1 {
		t.Errorf("expected exactly one exit block")
	}
}

func TestAnalyze_S6Shape(t *testing.T) {
	src := `void g(int x) {
    if (x == 1) {}
    if (x == 2) {}
    if (x == 3) {}
    for (int i = 0; i < x; i++) {}
    switch (x) {
        case 0: break;
        default: break;
    }
}`
	tree, body, content := parseBody(t, src)
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, content, 1, 9)

	if got := countBlockType(res.Blocks, types.BlockConditional); got != 3 {
		t.Errorf("conditional blocks = %d, want 3", got)
	}
	if got := countBlockType(res.Blocks, types.BlockLoop); got != 1 {
		t.Errorf("loop blocks = %d, want 1", got)
	}
	if got := countBlockType(res.Blocks, types.BlockSwitch); got != 1 {
		t.Errorf("switch blocks = %d, want 1", got)
	}
}

func TestAnalyze_BlocksInSourceOrder(t *testing.T) {
	src := `void g(int x) {
    if (x == 1) {}
    for (int i = 0; i < x; i++) {}
}`
	tree, body, content := parseBody(t, src)
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, content, 1, 3)

	var seenStarts []int
	for _, b := range res.Blocks {
		seenStarts = append(seenStarts, b.StartLine)
	}
	for i := 1; i < len(seenStarts); i++ {
		if seenStarts[i] < seenStarts[i-1] {
			t.Fatalf("blocks out of source order: %v", seenStarts)
		}
	}
}

func TestAnalyze_CallEdgeExtracted(t *testing.T) {
	tree, body, content := parseBody(t, "void g() { helper(); }")
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, content, 1, 1)
	if len(res.Calls) != 1 {
		t.Fatalf("expected 1 call edge, got %d", len(res.Calls))
	}
	if res.Calls[0].TargetName != "helper" {
		t.Errorf("TargetName = %q, want helper", res.Calls[0].TargetName)
	}
}

func TestAnalyze_ControlKeywordNeverACallTarget(t *testing.T) {
	tree, body, content := parseBody(t, "void g(int x) { if (x) { return; } }")
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, content, 1, 1)
	for _, c := range res.Calls {
		if IsControlKeyword(c.TargetName) {
			t.Errorf("control keyword %q recorded as call target", c.TargetName)
		}
	}
}

func TestAnalyze_LogMacroExcludedFromCalls(t *testing.T) {
	tree, body, content := parseBody(t, `void g() { LOG_ERROR("boom"); }`)
	defer tree.Close()

	res := Analyze(types.CompositeSymbolID{FileID: 1, LocalID: 1}, body, content, 1, 1)
	for _, c := range res.Calls {
		if c.TargetName == "LOG_ERROR" {
			t.Errorf("LOG_ERROR recorded as a call target")
		}
	}
}
