package types

import "fmt"

// RelationshipType enumerates the directed edge kinds the core can emit
// (spec.md §3).
type RelationshipType uint8

const (
	RelCalls RelationshipType = iota
	RelInherits
	RelImplements
	RelOverrides
	RelReadsField
	RelWritesField
	RelImports
	RelExports
	RelReferences
	RelUses
	RelContains
	RelMemberOf
	RelInstantiates
)

func (t RelationshipType) String() string {
	switch t {
	case RelCalls:
		return "calls"
	case RelInherits:
		return "inherits"
	case RelImplements:
		return "implements"
	case RelOverrides:
		return "overrides"
	case RelReadsField:
		return "reads_field"
	case RelWritesField:
		return "writes_field"
	case RelImports:
		return "imports"
	case RelExports:
		return "exports"
	case RelReferences:
		return "references"
	case RelUses:
		return "uses"
	case RelContains:
		return "contains"
	case RelMemberOf:
		return "member_of"
	case RelInstantiates:
		return "instantiates"
	default:
		return "unknown"
	}
}

// Relationship is a directed, typed edge between two symbols. ToID is
// NilSymbolID for an unresolved relationship; UnresolvedTarget then carries
// the textual name to be resolved in the post-parse sweep (spec.md §7).
type Relationship struct {
	Project ProjectID

	FromID CompositeSymbolID
	ToID   CompositeSymbolID // NilSymbolID when unresolved

	Type       RelationshipType
	Confidence float64

	ContextLine     int
	ContextColumn   int
	ContextSnippet  string

	UnresolvedTarget string         // set iff ToID.IsNil()
	Metadata         map[string]any // opaque, e.g. implicit-receiver class name
}

// NewRelationship validates confidence and from/type invariants (spec.md §8
// property 3 is checked by the caller, which knows the emitting file).
func NewRelationship(project ProjectID, from CompositeSymbolID, relType RelationshipType, confidence float64) (*Relationship, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: relationship confidence %.2f out of [0,1]", ErrInvalidSymbol, confidence)
	}
	if from.IsNil() {
		return nil, fmt.Errorf("%w: relationship has no source symbol", ErrInvalidSymbol)
	}
	return &Relationship{
		Project:    project,
		FromID:     from,
		Type:       relType,
		Confidence: confidence,
		Metadata:   make(map[string]any),
	}, nil
}

// IsUnresolved reports whether the relationship still needs the post-parse
// symbol-table sweep to bind ToID.
func (r *Relationship) IsUnresolved() bool {
	return r.ToID.IsNil()
}

// Key returns the (fromId, toId, type) uniqueness key from spec.md §3/§6.
// Unresolved relationships (ToID nil) are never deduplicated by this key —
// two unresolved calls to the same textual name from the same function are
// distinct observations until resolved.
type RelationshipKey struct {
	From CompositeSymbolID
	To   CompositeSymbolID
	Type RelationshipType
}

func (r *Relationship) Key() (RelationshipKey, bool) {
	if r.IsUnresolved() {
		return RelationshipKey{}, false
	}
	return RelationshipKey{From: r.FromID, To: r.ToID, Type: r.Type}, true
}
