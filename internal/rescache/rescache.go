// Package rescache implements the symbol resolution cache (C2): the shared
// index answering "given this unqualified or partially-qualified reference
// in this source context, which already-seen Symbol is meant?" Grounded on
// the LRU-with-indices design of the teacher's universal symbol graph, sized
// down to the single concern of name resolution rather than full graph
// storage.
package rescache

import (
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/cxxgraph/internal/debug"
	cxerrors "github.com/standardbeagle/cxxgraph/internal/errors"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

// DefaultCapacity is the default maximum number of distinct fully-qualified
// names the cache holds (spec.md §4.2).
const DefaultCapacity = 50000

// evictionFloor is the fraction of capacity eviction target: evict LRU
// entries until at most 90% full.
const evictionFloor = 0.9

// ResolutionContext carries the source-local information resolveSymbol
// needs beyond the reference text itself (spec.md §4.2).
type ResolutionContext struct {
	CurrentFile        string
	CurrentNamespace   string
	ImportedNamespaces []string          // insertion order matters
	TypeAliases        map[string]string // local name -> fully-qualified name
}

type entry struct {
	symbol       *types.Symbol
	lastAccessed time.Time
	accessCount  int64
	pinnedBy     map[types.FileID]struct{} // files with an in-flight parse referencing this entry
}

// Stats mirrors the cache's statistics() operation.
type Stats struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is the bounded, concurrency-safe resolution cache. Safe for
// concurrent use: reads and writes are serialised by a single
// reader-writer lock (spec.md §9, option (a)).
type Cache struct {
	mu       sync.RWMutex
	capacity int

	byQualifiedName map[string]*entry
	bySimpleName    map[string][]*entry
	byNamespace     map[string][]*entry

	accessOrder []string // qualifiedName, oldest first; rebuilt lazily on eviction

	hits, misses, evictions int64

	// inFlight tracks which files currently have a parse in progress, so
	// eviction never removes an entry pinned by one of them (design note
	// "evictions must never remove entries pinned by the currently-parsing
	// file").
	inFlight map[types.FileID]struct{}
}

// New creates a Cache with the given capacity. A capacity <= 0 uses
// DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity:        capacity,
		byQualifiedName: make(map[string]*entry),
		bySimpleName:    make(map[string][]*entry),
		byNamespace:     make(map[string][]*entry),
		inFlight:        make(map[types.FileID]struct{}),
	}
}

// BeginFile marks file as having an in-flight parse, pinning any entry it
// touches against eviction until EndFile is called.
func (c *Cache) BeginFile(file types.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight[file] = struct{}{}
}

// EndFile clears file's in-flight marker and unpins its entries.
func (c *Cache) EndFile(file types.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, file)
	for _, e := range c.byQualifiedName {
		delete(e.pinnedBy, file)
	}
}

func simpleName(qualifiedName string) string {
	s := types.Symbol{QualifiedName: qualifiedName}
	return s.SimpleName()
}

// AddSymbol inserts or refreshes a symbol, idempotent by (qualifiedName,
// filePath, line). Updates all three indices.
func (c *Cache) AddSymbol(s *types.Symbol) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byQualifiedName[s.QualifiedName]; ok &&
		existing.symbol.FilePath == s.FilePath && existing.symbol.Start.Line == s.Start.Line {
		existing.symbol = s
		existing.lastAccessed = time.Now()
		return nil
	}

	if len(c.byQualifiedName) >= c.capacity {
		if err := c.evict(s.FilePath); err != nil {
			return err
		}
	}

	e := &entry{symbol: s, lastAccessed: time.Now(), pinnedBy: make(map[types.FileID]struct{})}
	if _, inFlight := c.inFlight[s.ID.FileID]; inFlight {
		e.pinnedBy[s.ID.FileID] = struct{}{}
	}

	c.byQualifiedName[s.QualifiedName] = e
	sn := s.SimpleName()
	c.bySimpleName[sn] = append(c.bySimpleName[sn], e)
	if s.Namespace != "" {
		c.byNamespace[s.Namespace] = append(c.byNamespace[s.Namespace], e)
	}
	c.accessOrder = append(c.accessOrder, s.QualifiedName)

	debug.LogResolve("added %s (%s)", s.QualifiedName, s.Kind)
	return nil
}

// evict removes least-recently-accessed entries until the cache is at or
// below evictionFloor*capacity. Entries pinned by an in-flight file, and
// entries of protectFile (the file whose AddSymbol triggered this eviction)
// while that file's parse is in flight, are never removed. Returns
// OverCapacity if eviction cannot free enough space.
func (c *Cache) evict(protectFile string) error {
	target := int(float64(c.capacity) * evictionFloor)
	if target >= c.capacity {
		target = c.capacity - 1
	}

	sorted := make([]string, len(c.accessOrder))
	copy(sorted, c.accessOrder)
	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := c.byQualifiedName[sorted[i]], c.byQualifiedName[sorted[j]]
		if ei == nil || ej == nil {
			return ei == nil && ej != nil
		}
		return ei.lastAccessed.Before(ej.lastAccessed)
	})

	removed := 0
	var remaining []string
	for _, qn := range sorted {
		if len(c.byQualifiedName)-removed <= target {
			remaining = append(remaining, qn)
			continue
		}
		e, ok := c.byQualifiedName[qn]
		if !ok {
			continue
		}
		_, fileInFlight := c.inFlight[e.symbol.ID.FileID]
		if len(e.pinnedBy) > 0 || (fileInFlight && e.symbol.FilePath == protectFile) {
			remaining = append(remaining, qn)
			continue
		}
		c.removeEntry(qn, e)
		removed++
		c.evictions++
	}
	c.accessOrder = remaining

	if len(c.byQualifiedName) >= c.capacity {
		return cxerrors.New(cxerrors.OverCapacity, protectFile, nil)
	}
	return nil
}

func (c *Cache) removeEntry(qualifiedName string, e *entry) {
	delete(c.byQualifiedName, qualifiedName)
	sn := simpleName(qualifiedName)
	c.bySimpleName[sn] = removeEntryPtr(c.bySimpleName[sn], e)
	if e.symbol.Namespace != "" {
		c.byNamespace[e.symbol.Namespace] = removeEntryPtr(c.byNamespace[e.symbol.Namespace], e)
	}
}

func removeEntryPtr(slice []*entry, target *entry) []*entry {
	out := slice[:0]
	for _, e := range slice {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// ResolveSymbol implements the four-step lookup in spec.md §4.2.
func (c *Cache) ResolveSymbol(reference string, ctx ResolutionContext) *types.Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *entry

	if containsScope(reference) {
		found = c.byQualifiedName[reference]
	} else {
		if ctx.CurrentNamespace != "" {
			found = c.byQualifiedName[ctx.CurrentNamespace+"::"+reference]
		}
		if found == nil {
			for _, ns := range ctx.ImportedNamespaces {
				if e, ok := c.byQualifiedName[ns+"::"+reference]; ok {
					found = e
					break
				}
			}
		}
		if found == nil && ctx.TypeAliases != nil {
			if fq, ok := ctx.TypeAliases[reference]; ok {
				found = c.byQualifiedName[fq]
			}
		}
		if found == nil {
			candidates := c.bySimpleName[reference]
			if len(candidates) == 1 {
				found = candidates[0]
			}
			// len > 1: ambiguous, must not silently pick one (spec.md §4.2.3).
		}
	}

	if found == nil {
		c.misses++
		return nil
	}

	c.hits++
	found.lastAccessed = time.Now()
	found.accessCount++
	if ctx.CurrentFile != "" {
		// Pin against eviction while this file's parse is still in flight.
		for fid := range c.inFlight {
			found.pinnedBy[fid] = struct{}{}
		}
	}
	return found.symbol
}

func containsScope(reference string) bool {
	for i := 0; i+1 < len(reference); i++ {
		if reference[i] == ':' && reference[i+1] == ':' {
			return true
		}
	}
	return false
}

// Statistics returns the cache's current size and cumulative counters.
func (c *Cache) Statistics() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:      len(c.byQualifiedName),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear empties the cache and resets all counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byQualifiedName = make(map[string]*entry)
	c.bySimpleName = make(map[string][]*entry)
	c.byNamespace = make(map[string][]*entry)
	c.accessOrder = nil
	c.hits, c.misses, c.evictions = 0, 0, 0
}
