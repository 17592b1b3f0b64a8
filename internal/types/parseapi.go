package types

import "time"

// ParseOptions is the input contract from the host application (spec.md
// §6).
type ParseOptions struct {
	ProjectID  ProjectID
	LanguageID LanguageID

	DebugMode bool

	LargeFileThreshold int // bytes; internal/config defaults it to 50 KiB; <= 0 means no limit

	EnableControlFlow      bool
	EnableComplexity       bool
	EnablePatternDetection bool

	WorkerPoolSize int
	ParseTimeout   time.Duration
}

// SourceFile is one element of the file feed (spec.md §6): exact source
// bytes plus the path the host application resolved it from.
type SourceFile struct {
	Path    string
	Content []byte
}

// ParseStats accumulates per-file counters the visitor (C9) and driver
// (C10) maintain (spec.md §4.9).
type ParseStats struct {
	NodesVisited        int
	SymbolsExtracted    int
	RelationshipsFound  int
	ComplexityChecks    int
	ControlFlowAnalyzed int
	InvalidSymbols      int
	UnresolvedRelations int
	UsedFallback        bool
}

// ControlFlowResult bundles the blocks and call edges produced for one file
// (spec.md §6 ParseResult.controlFlow).
type ControlFlowResult struct {
	Blocks []ControlFlowBlock
	Calls  []CallEdge
}

// ParseResult is the output contract handed to the persistence sink
// (spec.md §6).
type ParseResult struct {
	FilePath string

	Symbols       []*Symbol
	Relationships []*Relationship
	Patterns      []*Pattern
	ControlFlow   ControlFlowResult

	Stats ParseStats
}

// ParseResultSink is the injected persistence boundary the driver (C10)
// writes completed ParseResults to. Implementations must be safe for
// concurrent Submit calls (spec.md §5).
type ParseResultSink interface {
	Submit(result *ParseResult, index FileIndex) error
}
