package complexity

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
)

func parseFunction(t *testing.T, src string) (*tree_sitter.Tree, *tree_sitter.Node, *tree_sitter.Node) {
	t.Helper()
	parser := tree_sitter.NewParser()
	defer parser.Close()
	lang := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	tree := parser.Parse([]byte(src), nil)
	if tree == nil {
		t.Fatal("Parse returned nil tree")
	}
	fn := astutil.FirstDescendantOfType(tree.RootNode(), "function_definition")
	if fn == nil {
		t.Fatal("expected a function_definition node")
	}
	body := astutil.ChildByField(fn, "body")
	declarator := astutil.ChildByField(fn, "declarator")
	var params *tree_sitter.Node
	if declarator != nil {
		params = astutil.ChildByField(declarator, "parameters")
	}
	return tree, body, params
}

func TestAnalyze_TrivialBodyScoresZero(t *testing.T) {
	tree, body, params := parseFunction(t, "void f() {}")
	defer tree.Close()

	m := Analyze("f", body, params, 1, 1)
	if m.CyclomaticComplexity != 0 {
		t.Errorf("CyclomaticComplexity = %d, want 0", m.CyclomaticComplexity)
	}
}

func TestAnalyze_SimpleFunctionBaseComplexityOne(t *testing.T) {
	src := `void f(int a, int b) {
    int c = a + b;
    int d = c * 2;
}`
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	m := Analyze("f", body, params, 1, 4)
	if m.CyclomaticComplexity != 1 {
		t.Errorf("CyclomaticComplexity = %d, want 1", m.CyclomaticComplexity)
	}
	if m.ParameterCount != 2 {
		t.Errorf("ParameterCount = %d, want 2", m.ParameterCount)
	}
}

func TestAnalyze_ThreeIfsOneForOneSwitch(t *testing.T) {
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
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	m := Analyze("g", body, params, 1, 9)
	// base 1 + 3*1 (if) + 1*2 (for) + 1*2 (switch) = 8, per spec.md S6.
	if m.CyclomaticComplexity < 8 {
		t.Errorf("CyclomaticComplexity = %d, want >= 8", m.CyclomaticComplexity)
	}
}

func TestAnalyze_NameAdjustment_ProcessAddsOne(t *testing.T) {
	src := `void process(int x) {
    int y = x;
    int z = y;
}`
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	plain := Analyze("run", body, params, 1, 4)
	named := Analyze("process", body, params, 1, 4)
	if named.CyclomaticComplexity != plain.CyclomaticComplexity+1 {
		t.Errorf("process() complexity = %d, want %d", named.CyclomaticComplexity, plain.CyclomaticComplexity+1)
	}
}

func TestAnalyze_NameAdjustment_GetSubtractsOne(t *testing.T) {
	src := `int getX(int x) {
    if (x > 0) { return x; }
    return 0;
}`
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	plain := Analyze("fetch", body, params, 1, 4)
	getter := Analyze("getX", body, params, 1, 4)
	if getter.CyclomaticComplexity >= plain.CyclomaticComplexity {
		t.Errorf("getX() complexity = %d, want less than fetch() = %d", getter.CyclomaticComplexity, plain.CyclomaticComplexity)
	}
}

func TestAnalyze_ScoreNeverNegative(t *testing.T) {
	src := `int get(int x) {
    return x;
}`
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	m := Analyze("get", body, params, 1, 3)
	if m.CyclomaticComplexity < 0 {
		t.Errorf("CyclomaticComplexity = %d, want >= 0", m.CyclomaticComplexity)
	}
}

func TestAnalyze_ReadabilityAndTestabilityInRange(t *testing.T) {
	src := `void g(int x) {
    if (x == 1) {}
    if (x == 2) {}
}`
	tree, body, params := parseFunction(t, src)
	defer tree.Close()

	m := Analyze("g", body, params, 1, 4)
	if m.Readability < 0 || m.Readability > 1 {
		t.Errorf("Readability = %f, want in [0,1]", m.Readability)
	}
	if m.Testability < 0 || m.Testability > 1 {
		t.Errorf("Testability = %f, want in [0,1]", m.Testability)
	}
}
