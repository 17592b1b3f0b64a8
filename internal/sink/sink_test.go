package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cxxgraph/internal/types"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	db, err := Connect(":memory:", false)
	require.NoError(t, err)
	return New(db, types.ProjectID(1))
}

func mustSymbol(t *testing.T, local uint32, name string) *types.Symbol {
	t.Helper()
	s, err := types.NewSymbol(types.SymbolOpts{
		ID:            types.CompositeSymbolID{FileID: 1, LocalID: local},
		Project:       1,
		Name:          name,
		QualifiedName: name,
		Kind:          types.SymbolFunction,
		FilePath:      "a.cpp",
		Start:         types.Position{Line: int(local) + 1, Column: 1},
		Confidence:    1.0,
	})
	require.NoError(t, err)
	return s
}

func TestSubmit_PersistsSymbolsAndFileIndex(t *testing.T) {
	s := newTestSink(t)

	fn := mustSymbol(t, 1, "f")
	fn.Features["cyclomaticComplexity"] = 1
	fn.Tag("leaf")

	result := &types.ParseResult{
		FilePath: "a.cpp",
		Symbols:  []*types.Symbol{fn},
	}
	index := types.FileIndex{Project: 1, FilePath: "a.cpp", FileHash: "abc", IsIndexed: true, SymbolCount: 1}

	require.NoError(t, s.Submit(result, index))

	var count int64
	require.NoError(t, s.db.Model(&universalSymbolRow{}).Where("file_path = ?", "a.cpp").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var fileIdxCount int64
	require.NoError(t, s.db.Model(&fileIndexRow{}).Where("file_path = ?", "a.cpp").Count(&fileIdxCount).Error)
	assert.Equal(t, int64(1), fileIdxCount)
}

func TestSubmit_ReindexReplacesPriorRows(t *testing.T) {
	s := newTestSink(t)

	first := mustSymbol(t, 1, "f")
	require.NoError(t, s.Submit(&types.ParseResult{FilePath: "a.cpp", Symbols: []*types.Symbol{first}}, types.FileIndex{Project: 1, FilePath: "a.cpp"}))

	second := mustSymbol(t, 1, "g")
	require.NoError(t, s.Submit(&types.ParseResult{FilePath: "a.cpp", Symbols: []*types.Symbol{second}}, types.FileIndex{Project: 1, FilePath: "a.cpp"}))

	var rows []universalSymbolRow
	require.NoError(t, s.db.Where("file_path = ?", "a.cpp").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "g", rows[0].Name)
}

func TestSubmit_PersistsRelationshipsAndCallEdges(t *testing.T) {
	s := newTestSink(t)

	caller := mustSymbol(t, 1, "caller")
	callee := mustSymbol(t, 2, "callee")
	rel, err := types.NewRelationship(1, caller.ID, types.RelCalls, 1.0)
	require.NoError(t, err)
	rel.ToID = callee.ID

	result := &types.ParseResult{
		FilePath:      "a.cpp",
		Symbols:       []*types.Symbol{caller, callee},
		Relationships: []*types.Relationship{rel},
		ControlFlow: types.ControlFlowResult{
			Calls: []types.CallEdge{{CallerSymbol: caller.ID, TargetName: "callee", ResolvedID: callee.ID, Line: 2}},
		},
	}
	require.NoError(t, s.Submit(result, types.FileIndex{Project: 1, FilePath: "a.cpp"}))

	var relCount int64
	require.NoError(t, s.db.Model(&universalRelationshipRow{}).Count(&relCount).Error)
	assert.Equal(t, int64(1), relCount)

	var callCount int64
	require.NoError(t, s.db.Model(&symbolCallRow{}).Count(&callCount).Error)
	assert.Equal(t, int64(1), callCount)
}
