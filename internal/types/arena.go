package types

import "github.com/standardbeagle/cxxgraph/internal/alloc"

// SymbolArena is the per-file symbol store the visitor (C9) appends to.
// Symbols reference their parent by CompositeSymbolID, never by pointer, so
// the containment forest carries no ownership cycles (design note: "arena +
// integer ids"). Child-id slices are drawn from a slab allocator since a
// typical file produces many small, short-lived children lists (namespace
// members, class fields) that would otherwise churn the GC.
type SymbolArena struct {
	file     FileID
	symbols  []*Symbol
	children *alloc.SlabAllocator[CompositeSymbolID]
	childIdx map[CompositeSymbolID][]CompositeSymbolID
}

// childSlab is shared by every SymbolArena, so slices one file's arena
// releases can be drawn again by the next file's arena.
var childSlab = alloc.NewSlabAllocatorWithDefaults[CompositeSymbolID]()

func NewSymbolArena(file FileID) *SymbolArena {
	return &SymbolArena{
		file:     file,
		children: childSlab,
		childIdx: make(map[CompositeSymbolID][]CompositeSymbolID),
	}
}

// Add assigns the next LocalID in this file and appends to the arena,
// recording the parent/child edge when the symbol has a parent.
func (a *SymbolArena) Add(s *Symbol) CompositeSymbolID {
	id := CompositeSymbolID{FileID: a.file, LocalID: uint32(len(a.symbols)) + 1}
	s.ID = id
	a.symbols = append(a.symbols, s)
	if !s.ParentID.IsNil() {
		slice, ok := a.childIdx[s.ParentID]
		if !ok {
			slice = a.children.Get(4)
		}
		a.childIdx[s.ParentID] = append(slice, id)
	}
	return id
}

// Get returns the symbol for id, or nil if it isn't in this arena.
func (a *SymbolArena) Get(id CompositeSymbolID) *Symbol {
	if id.FileID != a.file || id.LocalID == 0 || int(id.LocalID) > len(a.symbols) {
		return nil
	}
	return a.symbols[id.LocalID-1]
}

// ChildrenOf returns the ids of symbols whose ParentID is parent.
func (a *SymbolArena) ChildrenOf(parent CompositeSymbolID) []CompositeSymbolID {
	return a.childIdx[parent]
}

// All returns every symbol added to the arena, in emission order.
func (a *SymbolArena) All() []*Symbol {
	return a.symbols
}

// Release returns the arena's pooled child-id slices to the slab allocator;
// ChildrenOf returns nil afterwards, while Get and All still work. Call once
// nothing will consult ChildrenOf again.
func (a *SymbolArena) Release() {
	for k, v := range a.childIdx {
		a.children.Put(v)
		delete(a.childIdx, k)
	}
}
