package sink

import (
	"encoding/json"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/standardbeagle/cxxgraph/internal/debug"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// Sink persists ParseResults via gorm+sqlite (spec.md §6 "Persistence
// schema"). Grounded on termfx-morfx's db.Connect/db.Migrate pair: one
// gorm.Open call against a file DSN, foreign keys pragma'd on, then
// AutoMigrate over every model.
type Sink struct {
	db      *gorm.DB
	project types.ProjectID
}

// Connect opens (creating if absent) the sqlite database at dsn and runs
// Migrate. Mirrors termfx-morfx/db/sqlite.go's Connect(dsn, debug).
func Connect(dsn string, debugMode bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if !debugMode {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", dsn, err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("sink: enable foreign_keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate over every table in spec.md §6's schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&projectRow{},
		&languageRow{},
		&universalSymbolRow{},
		&universalRelationshipRow{},
		&cppFeatureRow{},
		&detectedPatternRow{},
		&controlFlowBlockRow{},
		&symbolCallRow{},
		&fileIndexRow{},
	)
}

// New wraps an already-migrated *gorm.DB as a types.ParseResultSink for the
// given project.
func New(db *gorm.DB, project types.ProjectID) *Sink {
	return &Sink{db: db, project: project}
}

// EnsureProject upserts the project row (spec.md §6 "projects").
func (s *Sink) EnsureProject(name, rootPath string) error {
	row := projectRow{ID: uint32(s.project), Name: name, RootPath: rootPath, Active: true}
	return s.db.Save(&row).Error
}

// EnsureLanguage upserts the language row (spec.md §6 "languages").
func (s *Sink) EnsureLanguage(lang types.Language) error {
	row := languageRow{
		ID: uint16(lang.ID), Name: lang.Name, DisplayName: lang.DisplayName,
		Extensions: joinComma(lang.Extensions), Enabled: lang.Enabled, Priority: lang.Priority,
	}
	return s.db.Save(&row).Error
}

// Submit persists one file's ParseResult transactionally: symbols first,
// each followed by its cpp_features rows (so relationships and call edges
// can reference their local ids), then relationships, patterns,
// control-flow blocks, call edges, and finally the file_index row.
// Implements types.ParseResultSink.
func (s *Sink) Submit(result *types.ParseResult, index types.FileIndex) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.deleteFileRows(tx, index.FilePath); err != nil {
			return err
		}
		for _, sym := range result.Symbols {
			if err := s.submitSymbol(tx, sym); err != nil {
				return err
			}
		}
		for _, rel := range result.Relationships {
			if err := s.submitRelationship(tx, rel); err != nil {
				return err
			}
		}
		for _, p := range result.Patterns {
			if err := s.submitPattern(tx, p); err != nil {
				return err
			}
		}
		for i, b := range result.ControlFlow.Blocks {
			if err := s.submitBlock(tx, b, i); err != nil {
				return err
			}
		}
		for _, c := range result.ControlFlow.Calls {
			if err := s.submitCallEdge(tx, c); err != nil {
				return err
			}
		}
		return s.submitFileIndex(tx, index)
	})
}

// deleteFileRows clears any prior rows for this file so re-indexing a
// changed file doesn't accumulate stale symbols (spec.md §5 "file watcher
// triggers re-parse").
func (s *Sink) deleteFileRows(tx *gorm.DB, filePath string) error {
	if err := tx.Where("project = ? AND file_path = ?", s.project, filePath).Delete(&universalSymbolRow{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project = ? AND file_path = ?", s.project, filePath).Delete(&fileIndexRow{}).Error; err != nil {
		return err
	}
	return nil
}

func (s *Sink) submitSymbol(tx *gorm.DB, sym *types.Symbol) error {
	featuresJSON, err := json.Marshal(sym.Features)
	if err != nil {
		return fmt.Errorf("sink: marshal features for %s: %w", sym.QualifiedName, err)
	}
	tags := make([]string, 0, len(sym.SemanticTags))
	for t := range sym.SemanticTags {
		tags = append(tags, t)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("sink: marshal tags for %s: %w", sym.QualifiedName, err)
	}

	row := universalSymbolRow{
		Project: uint32(sym.Project), Language: uint16(sym.Language),
		LocalID: sym.ID.LocalID, FileID: uint32(sym.ID.FileID),
		Name: sym.Name, QualifiedName: sym.QualifiedName, Kind: uint8(sym.Kind),
		FilePath: sym.FilePath, Line: sym.Start.Line, Column: sym.Start.Column,
		EndLine: sym.End.Line, EndColumn: sym.End.Column,
		ReturnType: sym.ReturnType, Signature: sym.Signature, Visibility: uint8(sym.Visibility),
		Namespace: sym.Namespace, ParentFileID: uint32(sym.ParentID.FileID), ParentLocalID: sym.ParentID.LocalID,
		IsExported: sym.IsExported, IsAsync: sym.IsAsync, IsAbstract: sym.IsAbstract,
		Confidence: sym.Confidence, FeaturesJSON: string(featuresJSON), SemanticTagsJSON: string(tagsJSON),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert symbol %s: %w", sym.QualifiedName, err)
	}

	for key, val := range sym.Features {
		valJSON, err := json.Marshal(val)
		if err != nil {
			continue
		}
		feat := cppFeatureRow{
			SymbolFileID: uint32(sym.ID.FileID), SymbolLocalID: sym.ID.LocalID,
			Key: key, ValueJSON: string(valJSON),
		}
		if err := tx.Create(&feat).Error; err != nil {
			return fmt.Errorf("sink: insert feature %s for %s: %w", key, sym.QualifiedName, err)
		}
	}
	return nil
}

func (s *Sink) submitRelationship(tx *gorm.DB, rel *types.Relationship) error {
	metaJSON, err := json.Marshal(rel.Metadata)
	if err != nil {
		return fmt.Errorf("sink: marshal relationship metadata: %w", err)
	}
	row := universalRelationshipRow{
		Project:     uint32(rel.Project),
		FromFileID:  uint32(rel.FromID.FileID), FromLocalID: rel.FromID.LocalID,
		ToFileID: uint32(rel.ToID.FileID), ToLocalID: rel.ToID.LocalID,
		Type: uint8(rel.Type), Confidence: rel.Confidence,
		ContextLine: rel.ContextLine, ContextColumn: rel.ContextColumn, ContextSnippet: rel.ContextSnippet,
		UnresolvedTarget: rel.UnresolvedTarget, MetadataJSON: string(metaJSON),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert relationship: %w", err)
	}
	return nil
}

func (s *Sink) submitPattern(tx *gorm.DB, p *types.Pattern) error {
	ids := make([]string, 0, len(p.SymbolIDs))
	for _, id := range p.SymbolIDs {
		ids = append(ids, id.String())
	}
	idsJSON, _ := json.Marshal(ids)
	detailsJSON, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("sink: marshal pattern details: %w", err)
	}
	row := detectedPatternRow{
		Project: uint32(p.Project), PatternType: p.PatternType, PatternName: p.PatternName,
		Confidence: p.Confidence, Severity: p.Severity,
		SymbolIDsJSON: string(idsJSON), DetailsJSON: string(detailsJSON),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert pattern %s: %w", p.PatternName, err)
	}
	return nil
}

func (s *Sink) submitBlock(tx *gorm.DB, b types.ControlFlowBlock, sequence int) error {
	row := controlFlowBlockRow{
		SymbolFileID: uint32(b.Symbol.FileID), SymbolLocalID: b.Symbol.LocalID,
		BlockType: uint8(b.BlockType), StartLine: b.StartLine, EndLine: b.EndLine,
		Condition: b.Condition, LoopType: b.LoopType,
		ComplexityContribution: b.ComplexityContribution, Sequence: sequence,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert control flow block: %w", err)
	}
	return nil
}

func (s *Sink) submitCallEdge(tx *gorm.DB, c types.CallEdge) error {
	row := symbolCallRow{
		CallerFileID: uint32(c.CallerSymbol.FileID), CallerLocalID: c.CallerSymbol.LocalID,
		TargetName: c.TargetName, ResolvedFileID: uint32(c.ResolvedID.FileID), ResolvedLocalID: c.ResolvedID.LocalID,
		Line: c.Line, Column: c.Column, CallType: uint8(c.CallType),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert call edge: %w", err)
	}
	return nil
}

func (s *Sink) submitFileIndex(tx *gorm.DB, index types.FileIndex) error {
	row := fileIndexRow{
		Project: uint32(index.Project), Language: uint16(index.Language), FilePath: index.FilePath,
		FileHash: index.FileHash, ParseDurationMs: index.ParseDurationMs,
		SymbolCount: index.SymbolCount, RelationshipCount: index.RelationshipCount, PatternCount: index.PatternCount,
		IsIndexed: index.IsIndexed, HasErrors: index.HasErrors, ErrorMessage: index.ErrorMessage,
		IndexedAt: index.IndexedAt, UpdatedAt: index.UpdatedAt,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("sink: insert file index for %s: %w", index.FilePath, err)
	}
	debug.LogSink("indexed %s: %d symbols, %d relationships\n", index.FilePath, index.SymbolCount, index.RelationshipCount)
	return nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
