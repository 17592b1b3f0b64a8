package rescache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cxxgraph/internal/types"
)

func mustSymbol(t *testing.T, qn string, kind types.SymbolKind, file types.FileID, local uint32) *types.Symbol {
	t.Helper()
	s, err := types.NewSymbol(types.SymbolOpts{
		ID:            types.CompositeSymbolID{FileID: file, LocalID: local},
		Name:          qn,
		QualifiedName: qn,
		Kind:          kind,
		FilePath:      fmt.Sprintf("file%d.cpp", file),
		Confidence:    1.0,
	})
	require.NoError(t, err)
	return s
}

func TestAddSymbol_IdempotentByQualifiedNameFileLine(t *testing.T) {
	c := New(10)
	s1 := mustSymbol(t, "A::f", types.SymbolFunction, 1, 1)
	require.NoError(t, c.AddSymbol(s1))
	require.NoError(t, c.AddSymbol(s1))

	stats := c.Statistics()
	assert.Equal(t, 1, stats.Size)
}

func TestResolveSymbol_FullyQualified(t *testing.T) {
	c := New(10)
	s := mustSymbol(t, "A::B::S", types.SymbolStruct, 1, 1)
	require.NoError(t, c.AddSymbol(s))

	got := c.ResolveSymbol("A::B::S", ResolutionContext{})
	require.NotNil(t, got)
	assert.Equal(t, "A::B::S", got.QualifiedName)
}

func TestResolveSymbol_CurrentNamespace(t *testing.T) {
	c := New(10)
	s := mustSymbol(t, "A::helper", types.SymbolFunction, 1, 1)
	require.NoError(t, c.AddSymbol(s))

	got := c.ResolveSymbol("helper", ResolutionContext{CurrentNamespace: "A"})
	require.NotNil(t, got)
	assert.Equal(t, "A::helper", got.QualifiedName)
}

func TestResolveSymbol_ImportedNamespaceInOrder(t *testing.T) {
	c := New(10)
	require.NoError(t, c.AddSymbol(mustSymbol(t, "B::helper", types.SymbolFunction, 1, 1)))

	got := c.ResolveSymbol("helper", ResolutionContext{
		ImportedNamespaces: []string{"A", "B"},
	})
	require.NotNil(t, got)
	assert.Equal(t, "B::helper", got.QualifiedName)
}

func TestResolveSymbol_TypeAlias(t *testing.T) {
	c := New(10)
	require.NoError(t, c.AddSymbol(mustSymbol(t, "std::vector", types.SymbolClass, 1, 1)))

	got := c.ResolveSymbol("Vec", ResolutionContext{
		TypeAliases: map[string]string{"Vec": "std::vector"},
	})
	require.NotNil(t, got)
	assert.Equal(t, "std::vector", got.QualifiedName)
}

func TestResolveSymbol_AmbiguousSimpleNameReturnsNil(t *testing.T) {
	c := New(10)
	require.NoError(t, c.AddSymbol(mustSymbol(t, "A::run", types.SymbolFunction, 1, 1)))
	require.NoError(t, c.AddSymbol(mustSymbol(t, "B::run", types.SymbolFunction, 2, 1)))

	got := c.ResolveSymbol("run", ResolutionContext{})
	assert.Nil(t, got)
}

func TestResolveSymbol_UnknownReferenceIsMiss(t *testing.T) {
	c := New(10)
	got := c.ResolveSymbol("nope", ResolutionContext{})
	assert.Nil(t, got)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestStatistics_SizeCapsAtCapacity(t *testing.T) {
	c := New(5)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.AddSymbol(mustSymbol(t, fmt.Sprintf("ns::sym%d", i), types.SymbolFunction, types.FileID(i), 1)))
	}
	stats := c.Statistics()
	assert.LessOrEqual(t, stats.Size, 5)
}

func TestClear_ResetsIndicesAndCounters(t *testing.T) {
	c := New(10)
	require.NoError(t, c.AddSymbol(mustSymbol(t, "A::f", types.SymbolFunction, 1, 1)))
	c.ResolveSymbol("A::f", ResolutionContext{})

	c.Clear()

	stats := c.Statistics()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(0), stats.Evictions)

	assert.Nil(t, c.ResolveSymbol("A::f", ResolutionContext{}))
}

func TestBeginEndFile_PinningDoesNotPreventNormalEviction(t *testing.T) {
	c := New(5)
	c.BeginFile(1)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.AddSymbol(mustSymbol(t, fmt.Sprintf("ns::sym%d", i), types.SymbolFunction, types.FileID(2), 1)))
	}
	c.EndFile(1)

	stats := c.Statistics()
	assert.LessOrEqual(t, stats.Size, 5)
}
