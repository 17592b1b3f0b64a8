package cpp

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cxxgraph/internal/astutil"
)

// logMacroNames are the conventional logging macro spellings that must
// never be treated as symbol definitions even when they lexically resemble
// function calls or declarations (spec.md §4.4).
var logMacroNames = map[string]struct{}{
	"LOG_INFO": {}, "LOG_ERROR": {}, "LOG_WARN": {}, "LOG_WARNING": {},
	"LOG_DEBUG": {}, "LOG_FATAL": {}, "LOG_TRACE": {},
}

func isLogMacro(name string) bool {
	_, ok := logMacroNames[name]
	return ok
}

// controlKeywords must never be recorded as call targets (spec.md §4.4).
var controlKeywords = map[string]struct{}{
	"if": {}, "while": {}, "for": {}, "switch": {}, "catch": {},
	"sizeof": {}, "typeof": {}, "return": {},
}

func isControlKeyword(name string) bool {
	_, ok := controlKeywords[name]
	return ok
}

// modifierSet is the result of detectModifiers: which semantic tags apply
// to a variable/field declaration, plus the raw token spellings found, in
// the order first seen (spec.md §12 "modifier-list extraction as
// first-class feature bag entries").
type modifierSet struct {
	Inline      bool
	Constexpr   bool
	Const       bool
	Static      bool
	ThreadLocal bool
	Extern      bool
	Mutable     bool

	rawWords []string
}

// detectModifiers inspects a declaration node's AST children first
// (storage_class_specifier, type_qualifier nodes), then falls back to a
// substring match on the declaration's full text for resilience against
// grammar nodes the visitor doesn't explicitly enumerate (spec.md §4.4).
func detectModifiers(node *tree_sitter.Node, source []byte) modifierSet {
	var m modifierSet

	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		text := astutil.TextOf(child, source)
		switch child.Kind() {
		case "storage_class_specifier":
			applyModifierWord(&m, text)
		case "type_qualifier":
			applyModifierWord(&m, text)
		default:
			if text == "constexpr" || text == "inline" || text == "mutable" {
				applyModifierWord(&m, text)
			}
		}
	}

	full := astutil.TextOf(node, source)
	for _, word := range []string{"inline", "constexpr", "const", "static", "thread_local", "extern", "mutable"} {
		if containsWord(full, word) {
			applyModifierWord(&m, word)
		}
	}

	return m
}

func applyModifierWord(m *modifierSet, word string) {
	wasSet := true
	switch word {
	case "inline":
		wasSet = m.Inline
		m.Inline = true
	case "constexpr":
		wasSet = m.Constexpr
		m.Constexpr = true
	case "const":
		wasSet = m.Const
		m.Const = true
	case "static":
		wasSet = m.Static
		m.Static = true
	case "thread_local":
		wasSet = m.ThreadLocal
		m.ThreadLocal = true
	case "extern":
		wasSet = m.Extern
		m.Extern = true
	case "mutable":
		wasSet = m.Mutable
		m.Mutable = true
	default:
		return
	}
	if !wasSet {
		m.rawWords = append(m.rawWords, word)
	}
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	if idx < 0 {
		return false
	}
	before := idx == 0 || isBoundary(rune(text[idx-1]))
	afterIdx := idx + len(word)
	after := afterIdx >= len(text) || isBoundary(rune(text[afterIdx]))
	return before && after
}

func isBoundary(r rune) bool {
	return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
}

// tagModifiers applies the semantic tags a modifierSet implies, including
// the inline -> modern_cpp implication (spec.md §4.4).
func tagModifiers(tags func(string), m modifierSet) {
	if m.Inline {
		tags("inline")
		tags("modern_cpp")
	}
	if m.Constexpr {
		tags("constexpr")
	}
	if m.Const {
		tags("const")
	}
	if m.Static {
		tags("static")
	}
	if m.ThreadLocal {
		tags("thread_local")
	}
	if m.Extern {
		tags("extern")
	}
	if m.Mutable {
		tags("mutable")
	}
}
