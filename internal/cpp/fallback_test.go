package cpp

import (
	"testing"

	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

func TestParseFallback_NamespaceClassMethod(t *testing.T) {
	src := `namespace app {
class Widget {
public:
    void Render();
};
}
`
	cache := rescache.New(100)
	result := ParseFallback(1, 1, 1, "widget.cpp", []byte(src), cache, fullOptions())

	if !result.Stats.UsedFallback {
		t.Error("expected Stats.UsedFallback = true")
	}
	widget := symbolByName(result, "Widget")
	if widget == nil {
		t.Fatal("expected a Widget class symbol")
	}
	if widget.QualifiedName != "app::Widget" {
		t.Errorf("Widget.QualifiedName = %q, want app::Widget", widget.QualifiedName)
	}
}

func TestParseFallback_InheritanceClause(t *testing.T) {
	src := `class Base {
};
class Derived : public Base {
};
`
	cache := rescache.New(100)
	result := ParseFallback(1, 1, 1, "derived.cpp", []byte(src), cache, fullOptions())

	found := false
	for _, r := range result.Relationships {
		if r.Type == types.RelInherits {
			found = true
		}
	}
	if !found {
		t.Error("expected a RelInherits relationship for Derived : public Base")
	}
}

func TestParseFallback_ScopeExitsOnClosingBrace(t *testing.T) {
	src := `class Outer {
    int field;
};
int freeVar;
`
	cache := rescache.New(100)
	result := ParseFallback(1, 1, 1, "scope.cpp", []byte(src), cache, fullOptions())

	outer := symbolByName(result, "Outer")
	if outer == nil {
		t.Fatal("expected Outer class symbol")
	}
	field := symbolByName(result, "field")
	if field == nil {
		t.Fatal("expected field member symbol")
	}
	if field.QualifiedName != "Outer::field" {
		t.Errorf("field.QualifiedName = %q, want Outer::field", field.QualifiedName)
	}
	if free := symbolByName(result, "freeVar"); free != nil {
		t.Errorf("freeVar after Outer's closing brace was emitted as %q, want no member symbol", free.QualifiedName)
	}
}

func TestParseFallback_ControlFlowGatedByComplexity(t *testing.T) {
	src := `void branchy(int x) {
    if (x == 1) {
        doThing();
    } else if (x == 2) {
        doOther();
    }
}
`
	cache := rescache.New(100)
	result := ParseFallback(1, 1, 1, "gate.cpp", []byte(src), cache, fullOptions())

	fn := symbolByName(result, "branchy")
	if fn == nil {
		t.Fatal("expected branchy() symbol")
	}
	if len(result.ControlFlow.Blocks) == 0 {
		t.Error("expected control-flow blocks for a branchy function above the complexity gate")
	}
}

func TestParseFallback_FactoryNameHeuristic(t *testing.T) {
	src := `Widget* createWidget() {
    return nullptr;
}
`
	cache := rescache.New(100)
	result := ParseFallback(1, 1, 1, "factory.cpp", []byte(src), cache, fullOptions())

	fn := symbolByName(result, "createWidget")
	if fn == nil {
		t.Fatal("expected createWidget() symbol")
	}
	if !fn.HasTag("factory") {
		t.Error("expected createWidget() to be tagged factory")
	}
}

func TestJoinMultilineSignatures_JoinsAcrossLines(t *testing.T) {
	lines := []string{
		"void multi(int a,",
		"           int b) {",
		"}",
	}
	out := joinMultilineSignatures(lines)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0] != "void multi(int a, int b) {" {
		t.Errorf("joined line = %q", out[0])
	}
}

func TestJoinMultilineSignatures_AbortsWhenNoCloseParen(t *testing.T) {
	lines := []string{
		"int unterminated(int a,",
		"int b,",
		"int c,",
		"int d,",
		"int e",
	}
	out := joinMultilineSignatures(lines)
	if out[0] != lines[0] {
		t.Errorf("expected line 0 untouched when no ) found within lookahead, got %q", out[0])
	}
}
