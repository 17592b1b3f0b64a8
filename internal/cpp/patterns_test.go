package cpp

import (
	"strings"
	"testing"

	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

func patternsByType(result *types.ParseResult, patternType string) []*types.Pattern {
	var out []*types.Pattern
	for _, p := range result.Patterns {
		if p.PatternType == patternType {
			out = append(out, p)
		}
	}
	return out
}

// TestDetectWholeFilePatterns_RAII covers spec.md §4.10 step 5: a class with
// both a constructor and a destructor is flagged as an RAII guard.
func TestDetectWholeFilePatterns_RAII(t *testing.T) {
	src := `class Guard {
public:
    Guard() {}
    ~Guard() {}
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "guard.cpp", []byte(src), tree, cache, fullOptions())

	raii := patternsByType(result, "raii")
	if len(raii) != 1 {
		t.Fatalf("expected exactly 1 raii pattern, got %d", len(raii))
	}
	if raii[0].PatternName != "Guard" {
		t.Errorf("raii PatternName = %q, want Guard", raii[0].PatternName)
	}
}

// TestDetectWholeFilePatterns_Singleton covers the singleton shape: a
// non-public constructor plus a static-style instance accessor.
func TestDetectWholeFilePatterns_Singleton(t *testing.T) {
	src := `class Logger {
private:
    Logger() {}
public:
    static Logger& instance() {
        return *(new Logger());
    }
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "logger.cpp", []byte(src), tree, cache, fullOptions())

	ctor := symbolByName(result, "Logger")
	if ctor == nil {
		t.Fatal("expected a Logger constructor symbol")
	}
	if ctor.Visibility != types.VisibilityPrivate {
		t.Errorf("Logger() Visibility = %v, want private", ctor.Visibility)
	}

	singletons := patternsByType(result, "singleton")
	if len(singletons) != 1 {
		t.Fatalf("expected exactly 1 singleton pattern, got %d", len(singletons))
	}
	if singletons[0].PatternName != "Logger" {
		t.Errorf("singleton PatternName = %q, want Logger", singletons[0].PatternName)
	}
}

// TestDetectWholeFilePatterns_NoFalsePositiveWithPublicConstructor ensures a
// plain class with a public constructor and an unrelated static method isn't
// mistaken for a singleton.
func TestDetectWholeFilePatterns_NoFalsePositiveWithPublicConstructor(t *testing.T) {
	src := `class Point {
public:
    Point() {}
    static int origin() { return 0; }
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "point.cpp", []byte(src), tree, cache, fullOptions())

	if singletons := patternsByType(result, "singleton"); len(singletons) != 0 {
		t.Errorf("expected no singleton pattern for Point, got %d", len(singletons))
	}
}

// TestDetectWholeFilePatterns_FactoryAndGPU covers the name-heuristic
// patterns (spec.md §4.6 step 7), now surfaced as Pattern records rather
// than just symbol tags.
func TestDetectWholeFilePatterns_FactoryAndGPU(t *testing.T) {
	src := `Widget* createWidget() {
    return nullptr;
}
void launchKernel() {
}`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	result := Parse(1, 1, 1, "heuristics.cpp", []byte(src), tree, cache, fullOptions())

	factories := patternsByType(result, "factory")
	if len(factories) != 1 {
		t.Fatalf("expected exactly 1 factory pattern, got %d", len(factories))
	}
	if !strings.HasPrefix(factories[0].PatternName, "createWidget(") {
		t.Errorf("factory PatternName = %q, want a createWidget(...) qualified name", factories[0].PatternName)
	}

	gpu := patternsByType(result, "gpu_execution")
	if len(gpu) != 1 {
		t.Fatalf("expected exactly 1 gpu_execution pattern, got %d", len(gpu))
	}
}

// TestDetectWholeFilePatterns_DisabledByOption confirms
// EnablePatternDetection gates the whole-file pass, matching the AST-path
// gating every other optional analyzer already follows.
func TestDetectWholeFilePatterns_DisabledByOption(t *testing.T) {
	src := `class Guard {
public:
    Guard() {}
    ~Guard() {}
};`
	tree := parseCpp(t, src)
	defer tree.Close()

	cache := rescache.New(100)
	opts := fullOptions()
	opts.EnablePatternDetection = false
	result := Parse(1, 1, 1, "guard.cpp", []byte(src), tree, cache, opts)

	if len(result.Patterns) != 0 {
		t.Errorf("expected no patterns when EnablePatternDetection is false, got %d", len(result.Patterns))
	}
}
