package types

import "time"

// FileIndex is the per-file bookkeeping record the driver (C10) produces
// after each parse (spec.md §3, §6). Unique by (Project, FilePath).
type FileIndex struct {
	Project  ProjectID
	Language LanguageID
	FilePath string

	FileHash string // content hash, e.g. xxhash of the raw bytes

	ParseDurationMs int64

	SymbolCount       int
	RelationshipCount int
	PatternCount      int

	IsIndexed bool
	HasErrors bool
	ErrorMessage string

	IndexedAt time.Time
	UpdatedAt time.Time
}

// Project is the identity of an indexed root (spec.md §3).
type Project struct {
	ID       ProjectID
	Name     string
	RootPath string
	Active   bool
}

// Language is the identity of a parser family (spec.md §3).
type Language struct {
	ID          LanguageID
	Name        string
	DisplayName string
	Extensions  []string
	Enabled     bool
	Priority    int
}
