// Package sink is the gorm+sqlite persistence layer implementing
// types.ParseResultSink (spec.md §6 "Persistence schema"). Grounded on the
// termfx-morfx db package's gorm.Open/AutoMigrate pattern, with the model
// structs following morfx's models.go field-tag style (primaryKey,
// uniqueIndex, type overrides for SQLite).
package sink

import "time"

// projectRow mirrors types.Project (spec.md §3).
type projectRow struct {
	ID       uint32 `gorm:"primaryKey"`
	Name     string `gorm:"type:varchar(255)"`
	RootPath string `gorm:"type:text"`
	Active   bool   `gorm:"default:true"`
}

func (projectRow) TableName() string { return "projects" }

// languageRow mirrors types.Language (spec.md §3).
type languageRow struct {
	ID          uint16 `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(50)"`
	DisplayName string `gorm:"type:varchar(100)"`
	Extensions  string `gorm:"type:text"` // comma-joined
	Enabled     bool   `gorm:"default:true"`
	Priority    int
}

func (languageRow) TableName() string { return "languages" }

// universalSymbolRow mirrors types.Symbol (spec.md §3). The uniqueness
// index on (project, language, qualified_name, file_path, line) matches
// spec.md §6's persistence schema.
type universalSymbolRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Project  uint32 `gorm:"uniqueIndex:uq_universal_symbol"`
	Language uint16

	LocalID uint32 `gorm:"index"` // CompositeSymbolID.LocalID within FileID
	FileID  uint32 `gorm:"index"`

	Name          string `gorm:"type:varchar(255)"`
	QualifiedName string `gorm:"type:text;uniqueIndex:uq_universal_symbol"`
	Kind          uint8

	FilePath string `gorm:"type:text;uniqueIndex:uq_universal_symbol"`
	Line     int    `gorm:"uniqueIndex:uq_universal_symbol"`
	Column   int
	EndLine  int
	EndColumn int

	ReturnType string `gorm:"type:text"`
	Signature  string `gorm:"type:text"`
	Visibility uint8

	Namespace string `gorm:"type:text"`
	ParentFileID  uint32
	ParentLocalID uint32

	IsExported bool
	IsAsync    bool
	IsAbstract bool

	Confidence float64

	FeaturesJSON     string `gorm:"type:text"` // json-encoded map[string]any
	SemanticTagsJSON string `gorm:"type:text"` // json-encoded []string

	CreatedAt time.Time
}

func (universalSymbolRow) TableName() string { return "universal_symbols" }

// universalRelationshipRow mirrors types.Relationship (spec.md §3). The
// uniqueness index is on (from_symbol_id, to_symbol_id, type); unresolved
// relationships (to_symbol_id = 0) are never deduplicated by this index
// since sqlite's unique index treats NULL-equivalent zero values normally —
// callers insert unresolved rows without relying on the index for dedup.
type universalRelationshipRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Project uint32

	FromFileID  uint32 `gorm:"index;uniqueIndex:uq_universal_relationship"`
	FromLocalID uint32 `gorm:"uniqueIndex:uq_universal_relationship"`
	ToFileID    uint32
	ToLocalID   uint32 `gorm:"uniqueIndex:uq_universal_relationship"`

	Type       uint8 `gorm:"uniqueIndex:uq_universal_relationship"`
	Confidence float64

	ContextLine    int
	ContextColumn  int
	ContextSnippet string `gorm:"type:text"`

	UnresolvedTarget string `gorm:"type:text"`
	MetadataJSON     string `gorm:"type:text"`

	CreatedAt time.Time
}

func (universalRelationshipRow) TableName() string { return "universal_relationships" }

// cppFeatureRow is the per-language extension bag (spec.md §6
// "cpp_features (per-language extension bag)"), one row per symbol-feature
// key/value pair so new C++-specific metadata doesn't require a migration.
type cppFeatureRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	SymbolFileID  uint32 `gorm:"index"`
	SymbolLocalID uint32 `gorm:"index"`

	Key       string `gorm:"type:varchar(255)"`
	ValueJSON string `gorm:"type:text"`
}

func (cppFeatureRow) TableName() string { return "cpp_features" }

// detectedPatternRow mirrors types.Pattern.
type detectedPatternRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Project uint32

	PatternType string `gorm:"type:varchar(50)"`
	PatternName string `gorm:"type:varchar(255)"`
	Confidence  float64
	Severity    string `gorm:"type:varchar(20)"`

	SymbolIDsJSON string `gorm:"type:text"`
	DetailsJSON   string `gorm:"type:text"`

	CreatedAt time.Time
}

func (detectedPatternRow) TableName() string { return "detected_patterns" }

// controlFlowBlockRow mirrors types.ControlFlowBlock.
type controlFlowBlockRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	SymbolFileID  uint32 `gorm:"index"`
	SymbolLocalID uint32 `gorm:"index"`

	BlockType uint8
	StartLine int
	EndLine   int

	Condition string `gorm:"type:text"`
	LoopType  string `gorm:"type:varchar(20)"`

	ComplexityContribution float64
	Sequence                int
}

func (controlFlowBlockRow) TableName() string { return "control_flow_blocks" }

// symbolCallRow mirrors types.CallEdge ("symbol_calls" in spec.md §6).
type symbolCallRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	CallerFileID  uint32 `gorm:"index"`
	CallerLocalID uint32 `gorm:"index"`

	TargetName     string `gorm:"type:varchar(255)"`
	ResolvedFileID uint32
	ResolvedLocalID uint32

	Line     int
	Column   int
	CallType uint8
}

func (symbolCallRow) TableName() string { return "symbol_calls" }

// fileIndexRow mirrors types.FileIndex.
type fileIndexRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Project  uint32 `gorm:"uniqueIndex:uq_file_index"`
	Language uint16
	FilePath string `gorm:"type:text;uniqueIndex:uq_file_index"`

	FileHash string `gorm:"type:varchar(32)"`

	ParseDurationMs int64

	SymbolCount       int
	RelationshipCount int
	PatternCount      int

	IsIndexed    bool
	HasErrors    bool
	ErrorMessage string `gorm:"type:text"`

	IndexedAt time.Time
	UpdatedAt time.Time
}

func (fileIndexRow) TableName() string { return "file_index" }
