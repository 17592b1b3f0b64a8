package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSymbol is returned by symbol constructors when an invariant in
// spec.md §3/§8 is violated. Handlers (C4) drop the symbol and count the
// failure in ParseStats rather than aborting the file.
var ErrInvalidSymbol = errors.New("invalid symbol")

// SymbolKind is the universal declaration kind, shared across languages.
type SymbolKind uint8

const (
	SymbolNamespace SymbolKind = iota
	SymbolClass
	SymbolStruct
	SymbolFunction
	SymbolMethod
	SymbolConstructor
	SymbolDestructor
	SymbolField
	SymbolVariable
	SymbolParameter
	SymbolEnum
	SymbolTypedef
	SymbolLambda
	SymbolModule
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolNamespace:
		return "namespace"
	case SymbolClass:
		return "class"
	case SymbolStruct:
		return "struct"
	case SymbolFunction:
		return "function"
	case SymbolMethod:
		return "method"
	case SymbolConstructor:
		return "constructor"
	case SymbolDestructor:
		return "destructor"
	case SymbolField:
		return "field"
	case SymbolVariable:
		return "variable"
	case SymbolParameter:
		return "parameter"
	case SymbolEnum:
		return "enum"
	case SymbolTypedef:
		return "typedef"
	case SymbolLambda:
		return "lambda"
	case SymbolModule:
		return "module"
	default:
		return "unknown"
	}
}

// Visibility mirrors a declaration's access specifier.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityInternal
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityProtected:
		return "protected"
	case VisibilityInternal:
		return "internal"
	default:
		return "public"
	}
}

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Symbol is the universal symbol record (spec.md §3). ParentID refers to
// the parent by CompositeSymbolID (handlers take parents from the file's
// SymbolArena, internal/types/arena.go), never by pointer, so the forest
// has no ownership cycles.
type Symbol struct {
	ID CompositeSymbolID

	Project  ProjectID
	Language LanguageID

	Name          string
	QualifiedName string
	Kind          SymbolKind

	FilePath string
	Start    Position
	End      Position // zero value means "unknown"

	ReturnType string
	Signature  string
	Visibility Visibility

	Namespace string
	ParentID  CompositeSymbolID // NilSymbolID if none

	IsExported bool
	IsAsync    bool
	IsAbstract bool

	Features      map[string]any
	SemanticTags  map[string]struct{}
	Confidence    float64
}

// SymbolOpts is the constructor input for NewSymbol. Parent is optional
// and, when supplied, is validated against the containment rules in
// spec.md §3: a field's parent must be a class/struct, and a non-namespace
// parent must share the child's file.
type SymbolOpts struct {
	ID            CompositeSymbolID
	Project       ProjectID
	Language      LanguageID
	Name          string
	QualifiedName string
	Kind          SymbolKind
	FilePath      string
	Start         Position
	End           Position
	ReturnType    string
	Signature     string
	Visibility    Visibility
	Namespace     string
	Parent        *Symbol
	IsExported    bool
	IsAsync       bool
	IsAbstract    bool
	Confidence    float64
}

// NewSymbol validates and constructs a Symbol, enforcing the invariants in
// spec.md §3 ("Invariants (always)"). Repeated adjacent qualifiedName
// segments (§8 property 1) are not rejected here; see
// HasAdjacentDuplicateSegment.
func NewSymbol(o SymbolOpts) (*Symbol, error) {
	if o.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidSymbol)
	}
	if o.QualifiedName == "" {
		o.QualifiedName = o.Name
	}
	if o.FilePath == "" {
		return nil, fmt.Errorf("%w: empty filePath for %s", ErrInvalidSymbol, o.QualifiedName)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %.2f out of [0,1] for %s", ErrInvalidSymbol, o.Confidence, o.QualifiedName)
	}
	if o.Namespace != "" && !strings.HasPrefix(o.QualifiedName, o.Namespace) {
		return nil, fmt.Errorf("%w: qualifiedName %q does not start with namespace %q", ErrInvalidSymbol, o.QualifiedName, o.Namespace)
	}
	if o.Kind == SymbolField {
		if o.Parent == nil || (o.Parent.Kind != SymbolClass && o.Parent.Kind != SymbolStruct) {
			return nil, fmt.Errorf("%w: field %q requires a class/struct parent", ErrInvalidSymbol, o.QualifiedName)
		}
	}
	if o.Parent != nil {
		if o.Parent.Kind != SymbolNamespace && o.Parent.FilePath != o.FilePath {
			return nil, fmt.Errorf("%w: parent of %q is in a different file and is not a namespace", ErrInvalidSymbol, o.QualifiedName)
		}
	}
	if o.Kind == SymbolConstructor && o.Parent != nil && o.Name != o.Parent.Name {
		return nil, fmt.Errorf("%w: constructor name %q must equal parent class name %q", ErrInvalidSymbol, o.Name, o.Parent.Name)
	}
	if o.Kind == SymbolDestructor && o.Parent != nil && o.Name != "~"+o.Parent.Name {
		return nil, fmt.Errorf("%w: destructor name %q must equal ~%s", ErrInvalidSymbol, o.Name, o.Parent.Name)
	}

	parentID := NilSymbolID
	if o.Parent != nil {
		parentID = o.Parent.ID
	}

	return &Symbol{
		ID:            o.ID,
		Project:       o.Project,
		Language:      o.Language,
		Name:          o.Name,
		QualifiedName: o.QualifiedName,
		Kind:          o.Kind,
		FilePath:      o.FilePath,
		Start:         o.Start,
		End:           o.End,
		ReturnType:    o.ReturnType,
		Signature:     o.Signature,
		Visibility:    o.Visibility,
		Namespace:     o.Namespace,
		ParentID:      parentID,
		IsExported:    o.IsExported,
		IsAsync:       o.IsAsync,
		IsAbstract:    o.IsAbstract,
		Features:      make(map[string]any),
		SemanticTags:  make(map[string]struct{}),
		Confidence:    o.Confidence,
	}, nil
}

// HasAdjacentDuplicateSegment reports whether a "::"-joined qualified name
// repeats a segment back-to-back, e.g. "A::A::X". This is a diagnostic, not
// a constructor-time hard error: a legitimately nested same-named scope
// ("A::A" where an outer A genuinely contains a nested A) produces the same
// shape, and only the caller who built the qualified name from the AST
// hierarchy (C4) knows which case it is. Handlers that build qualifiedName
// by walking the scope stack, instead of the AST hierarchy, are the bug
// this catches (spec.md §8 property 1, §9 "AST-hierarchy-based qualified
// name construction").
func HasAdjacentDuplicateSegment(qualifiedName string) bool {
	segments := strings.Split(qualifiedName, "::")
	for i := 1; i < len(segments); i++ {
		if segments[i] != "" && segments[i] == segments[i-1] {
			return true
		}
	}
	return false
}

// Tag adds a lowercase semantic tag to the symbol.
func (s *Symbol) Tag(tag string) {
	s.SemanticTags[strings.ToLower(tag)] = struct{}{}
}

// HasTag reports whether the symbol carries the given semantic tag.
func (s *Symbol) HasTag(tag string) bool {
	_, ok := s.SemanticTags[strings.ToLower(tag)]
	return ok
}

// SimpleName returns the last "::"-delimited segment of QualifiedName.
func (s *Symbol) SimpleName() string {
	idx := strings.LastIndex(s.QualifiedName, "::")
	if idx < 0 {
		return s.QualifiedName
	}
	return s.QualifiedName[idx+2:]
}
