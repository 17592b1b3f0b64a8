// Package types defines the universal symbol graph model (C3): the
// project/language identities and the Symbol, Relationship, Pattern,
// ControlFlowBlock, CallEdge and FileIndex entities parsers emit, along
// with the invariants their constructors enforce. It holds no I/O.
package types

import (
	"fmt"

	"github.com/standardbeagle/cxxgraph/internal/idcodec"
)

// FileID identifies a source file within a project. Assigned by the host
// application's file discovery layer; the core treats it as an opaque key.
type FileID uint32

// ProjectID identifies an indexed root.
type ProjectID uint32

// LanguageID identifies a parser family (C++, Python, ...).
type LanguageID uint16

// CompositeSymbolID packs a FileID and a per-file local symbol index into a
// single comparable value, avoiding a global counter shared across
// concurrently-parsed files. Mirrors the arena + integer id design note:
// symbols never hold pointers to their parent, only ids.
type CompositeSymbolID struct {
	FileID  FileID
	LocalID uint32
}

// NilSymbolID is the zero value, meaning "no symbol" (e.g. an unresolved
// relationship endpoint).
var NilSymbolID = CompositeSymbolID{}

func (id CompositeSymbolID) IsNil() bool {
	return id == NilSymbolID
}

func (id CompositeSymbolID) String() string {
	return fmt.Sprintf("Symbol[f=%d,l=%d]", id.FileID, id.LocalID)
}

// Token returns a short base-63 external identifier for id, suitable for
// embedding in a URL or a CLI argument without the "Symbol[...]" framing.
// Two CompositeSymbolIDs never collide on their Token since the packing is
// a bijection.
func (id CompositeSymbolID) Token() string {
	return idcodec.Encode(idcodec.PackUint32Pair(uint32(id.LocalID), uint32(id.FileID)))
}

// ParseToken is the inverse of Token.
func ParseToken(token string) (CompositeSymbolID, error) {
	packed, err := idcodec.Decode(token)
	if err != nil {
		return NilSymbolID, err
	}
	local, file := idcodec.UnpackUint32Pair(packed)
	return CompositeSymbolID{FileID: FileID(file), LocalID: local}, nil
}
