package cpp

import (
	"strings"
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

func parseCpp(t *testing.T, src string) *tree_sitter.Tree {
	t.Helper()
	p := tree_sitter.NewParser()
	defer p.Close()
	lang := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := p.SetLanguage(lang); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	tree := p.Parse([]byte(src), nil)
	if tree == nil {
		t.Fatal("Parse returned nil tree")
	}
	return tree
}

func fullOptions() types.ParseOptions {
	return types.ParseOptions{
		EnableComplexity:       true,
		EnableControlFlow:      true,
		EnablePatternDetection: true,
	}
}

func symbolByName(result *types.ParseResult, name string) *types.Symbol {
	for _, s := range result.Symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// TestParse_S1_NamespaceClassMethod exercises seed scenario S1 (spec.md §8):
// a namespace containing a class containing a method, checking
// qualifiedName construction walks the AST hierarchy, not the scope stack.
func TestParse_S1_NamespaceClassMethod(t *testing.T) {
	src := `namespace app {
class Widget {
public:
    void Render() {
        int x = 1;
    }
};
}`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "widget.cpp", []byte(src), tree, cache, fullOptions())

	widget := symbolByName(result, "Widget")
	if widget == nil {
		t.Fatal("expected a Widget class symbol")
	}
	if widget.QualifiedName != "app::Widget" {
		t.Errorf("Widget.QualifiedName = %q, want app::Widget", widget.QualifiedName)
	}

	render := symbolByName(result, "Render")
	if render == nil {
		t.Fatal("expected a Render method symbol")
	}
	if render.QualifiedName != "app::Widget::Render()" {
		t.Errorf("Render.QualifiedName = %q, want app::Widget::Render()", render.QualifiedName)
	}
	if render.ParentID != widget.ID {
		t.Errorf("Render.ParentID = %v, want %v", render.ParentID, widget.ID)
	}
	if types.HasAdjacentDuplicateSegment(render.QualifiedName) {
		t.Errorf("unexpected adjacent duplicate segment in %q", render.QualifiedName)
	}
}

// TestParse_S1_MethodPrototypeWithoutBody exercises spec.md §8's S1 as
// written: "struct S { int x; void f(); }" must yield a field x and a
// method f, not a second field, even though f has no body here.
func TestParse_S1_MethodPrototypeWithoutBody(t *testing.T) {
	src := `struct S {
    int x;
    void f();
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "s.cpp", []byte(src), tree, cache, fullOptions())

	field := symbolByName(result, "x")
	if field == nil {
		t.Fatal("expected an x field symbol")
	}
	if field.Kind != types.SymbolField {
		t.Errorf("x.Kind = %v, want SymbolField", field.Kind)
	}

	method := symbolByName(result, "f")
	if method == nil {
		t.Fatal("expected an f method symbol")
	}
	if method.Kind != types.SymbolMethod {
		t.Errorf("f.Kind = %v, want SymbolMethod", method.Kind)
	}
	if !strings.HasPrefix(method.QualifiedName, "S::f(") {
		t.Errorf("f.QualifiedName = %q, want it to start with S::f(", method.QualifiedName)
	}
}

// TestParse_S2_InheritanceAndCall exercises seed scenario S2: a derived
// class calling a method, producing both an inherits relationship and a
// calls relationship.
func TestParse_S2_InheritanceAndCall(t *testing.T) {
	src := `class Base {
public:
    void Foo() {}
};
class Derived : public Base {
public:
    void Bar() {
        Foo();
    }
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "derived.cpp", []byte(src), tree, cache, fullOptions())

	var sawInherits, sawCalls bool
	for _, r := range result.Relationships {
		if r.Type == types.RelInherits {
			sawInherits = true
		}
		if r.Type == types.RelCalls {
			sawCalls = true
		}
	}
	if !sawInherits {
		t.Error("expected a RelInherits relationship for Derived : public Base")
	}
	if !sawCalls {
		t.Error("expected a RelCalls relationship for Foo() call inside Bar()")
	}
}

// TestParse_S5_ComplexityGateControlsControlFlow verifies the complexity
// gate (spec.md §4.7/§4.8): a function at or above the gate produces
// control-flow blocks, a trivial one doesn't.
func TestParse_S5_ComplexityGateControlsControlFlow(t *testing.T) {
	src := `void trivial() {
    int x = 1;
}
void branchy(int x) {
    if (x == 1) {
        x = 2;
    } else {
        x = 3;
    }
}`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "gate.cpp", []byte(src), tree, cache, fullOptions())

	trivial := symbolByName(result, "trivial")
	if trivial == nil {
		t.Fatal("expected trivial() symbol")
	}
	if cc, _ := trivial.Features["cyclomaticComplexity"].(int); cc >= 2 {
		t.Errorf("trivial() cyclomaticComplexity = %d, want < 2", cc)
	}

	sawBlockForBranchy := false
	branchy := symbolByName(result, "branchy")
	if branchy == nil {
		t.Fatal("expected branchy() symbol")
	}
	for _, b := range result.ControlFlow.Blocks {
		if b.Symbol == branchy.ID {
			sawBlockForBranchy = true
		}
	}
	if !sawBlockForBranchy {
		t.Error("expected control-flow blocks for branchy(), which is at/above the complexity gate")
	}
}

// TestParse_StructuredBinding exercises C++17 structured bindings (spec.md
// §4.4): one Variable symbol per bound identifier, tagged appropriately.
func TestParse_StructuredBinding(t *testing.T) {
	src := `void f() {
    auto [a, b] = make_pair();
}`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "binding.cpp", []byte(src), tree, cache, fullOptions())

	a := symbolByName(result, "a")
	b := symbolByName(result, "b")
	if a == nil || b == nil {
		t.Fatalf("expected structured binding symbols a and b, got %d symbols", len(result.Symbols))
	}
	if !a.HasTag("structured_binding") {
		t.Error("expected a to be tagged structured_binding")
	}
}

// TestParse_UnresolvedCallStaysUnresolved checks that a call to a name that
// cannot be found anywhere still produces a lower-confidence Relationship
// rather than being dropped (spec.md §4.5).
func TestParse_UnresolvedCallStaysUnresolved(t *testing.T) {
	src := `void caller() {
    totallyUnknownFunction();
}`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "unresolved.cpp", []byte(src), tree, cache, fullOptions())

	found := false
	for _, r := range result.Relationships {
		if r.Type == types.RelCalls && r.IsUnresolved() {
			found = true
			if r.Confidence >= 1.0 {
				t.Errorf("unresolved call confidence = %f, want < 1.0", r.Confidence)
			}
		}
	}
	if !found {
		t.Error("expected an unresolved RelCalls relationship for totallyUnknownFunction")
	}
}
