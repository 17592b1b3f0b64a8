// Command cxxgraph indexes a C++ source tree into a symbol graph database.
// Its App/Before-hook/cleanupFuncs shape is grounded on the teacher's
// cmd/lci/main.go, trimmed to the two operations this tool actually
// supports: indexing a project into the database, and resolving symbol
// references by re-parsing a project's sources in memory (resolve does not
// read the database).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/cxxgraph/internal/config"
	"github.com/standardbeagle/cxxgraph/internal/debug"
	"github.com/standardbeagle/cxxgraph/internal/parser"
	"github.com/standardbeagle/cxxgraph/internal/rescache"
	"github.com/standardbeagle/cxxgraph/internal/sink"
	"github.com/standardbeagle/cxxgraph/internal/types"
)

var cleanupFuncs []func()

// cppFilePatterns are the doublestar glob patterns file discovery matches
// against a project root, mirroring the include/exclude glob style the
// teacher's config.Include/Exclude flags accept.
var cppFilePatterns = []string{
	"**/*.cpp", "**/*.cc", "**/*.cxx", "**/*.h", "**/*.hpp", "**/*.hh",
}

var excludePatterns = []string{
	"**/build/**", "**/.git/**", "**/vendor/**", "**/third_party/**",
}

func main() {
	app := &cli.App{
		Name:                   "cxxgraph",
		Usage:                  "C++ symbol-graph indexer",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the sqlite database file",
				Value:   "cxxgraph.db",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging to stderr",
			},
			&cli.StringFlag{
				Name:  "profile-cpu",
				Usage: "Write a CPU profile to this path",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Parse every C++ source file under root and persist the symbol graph",
				ArgsUsage: "<root>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Worker pool size (0 = keep the configured worker-pool-size)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-file parse timeout",
					},
				},
				Action: indexCommand,
			},
			{
				Name:      "resolve",
				Usage:     "Run the post-parse unresolved-relationship sweep, optionally also resolving one name",
				ArgsUsage: "<root> [name]",
				Action:    resolveCommand,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			if cpuProfilePath := c.String("profile-cpu"); cpuProfilePath != "" {
				f, err := os.Create(cpuProfilePath)
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					f.Close()
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				cleanupFuncs = append(cleanupFuncs, func() {
					pprof.StopCPUProfile()
					f.Close()
				})
			}
			return nil
		},
	}

	defer func() {
		for _, cleanup := range cleanupFuncs {
			cleanup()
		}
	}()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cxxgraph: %v\n", err)
		os.Exit(1)
	}
}

// discoverFiles walks root for files matching cppFilePatterns, skipping
// anything under excludePatterns, using doublestar for the glob matching.
// Both pattern lists are fixed in this file; .cxxgraph.kdl has no glob
// settings.
func discoverFiles(root string) ([]types.SourceFile, error) {
	var files []types.SourceFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range excludePatterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		matched := false
		for _, pattern := range cppFilePatterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, types.SourceFile{Path: path, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func indexCommand(c *cli.Context) error {
	root := c.Args().Get(0)
	if root == "" {
		return fmt.Errorf("usage: cxxgraph index <root>")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return err
	}
	if workers := c.Int("workers"); workers > 0 {
		cfg.ParseOptions.WorkerPoolSize = workers
	}
	if timeout := c.Duration("timeout"); timeout > 0 {
		cfg.ParseOptions.ParseTimeout = timeout
	}
	cfg.ParseOptions.ProjectID = types.ProjectID(1)
	cfg.ParseOptions.LanguageID = types.LanguageID(1)

	db, err := sink.Connect(c.String("db"), c.Bool("debug"))
	if err != nil {
		return err
	}
	cleanupFuncs = append(cleanupFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	s := sink.New(db, cfg.ParseOptions.ProjectID)
	if err := s.EnsureProject(cfg.ProjectName, cfg.ProjectRoot); err != nil {
		return err
	}
	if err := s.EnsureLanguage(types.Language{
		ID: cfg.ParseOptions.LanguageID, Name: "cpp", DisplayName: "C++",
		Extensions: []string{".cpp", ".cc", ".cxx", ".h", ".hpp", ".hh"}, Enabled: true, Priority: 0,
	}); err != nil {
		return err
	}

	files, err := discoverFiles(absRoot)
	if err != nil {
		return fmt.Errorf("discovering files under %s: %w", absRoot, err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no C++ source files found under %s\n", absRoot)
		return nil
	}

	driver := parser.New(cfg.ParseOptions.ProjectID, cfg.ParseOptions, s)

	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := driver.ParseAll(ctx, files); err != nil {
		return fmt.Errorf("indexing %s: %w", absRoot, err)
	}
	fmt.Printf("indexed %d files from %s in %v\n", len(files), absRoot, time.Since(start))
	return nil
}

// resolveCommand parses every file under root, then runs the post-parse
// unresolved-relationship sweep spec.md §7 describes: once the resolution
// cache holds the complete symbol table, each relationship left with a
// textual target is retried by simple-name/qualified-name match and
// promoted on a hit. An optional trailing name argument additionally prints
// what that one reference resolves to, for ad hoc inspection.
func resolveCommand(c *cli.Context) error {
	root := c.Args().Get(0)
	if root == "" {
		return fmt.Errorf("usage: cxxgraph resolve <root> [name]")
	}
	name := c.Args().Get(1)

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	files, err := discoverFiles(root)
	if err != nil {
		return fmt.Errorf("discovering files under %s: %w", root, err)
	}

	collector := &relationshipCollector{}
	driver := parser.New(types.ProjectID(1), cfg.ParseOptions, collector)
	ctx := context.Background()
	for i, f := range files {
		if err := driver.ParseFile(ctx, f, types.FileID(i+1)); err != nil {
			debug.LogParse("resolve: failed to parse %s: %v\n", f.Path, err)
		}
	}

	resolved, stillUnresolved := sweepUnresolved(driver.Cache(), collector.unresolved)
	fmt.Printf("resolution sweep: %d promoted, %d still unresolved\n", resolved, stillUnresolved)

	if name == "" {
		return nil
	}

	sym := driver.Cache().ResolveSymbol(name, rescache.ResolutionContext{})
	if sym == nil {
		fmt.Printf("%s: unresolved\n", name)
		return nil
	}
	fmt.Printf("%s -> %s [%s] (%s) at %s:%d\n", name, sym.QualifiedName, sym.ID.Token(), sym.Kind, sym.FilePath, sym.Start.Line)
	return nil
}

// relationshipCollector is the types.ParseResultSink `resolve` submits
// through: it triggers the same resolution-cache side effects persistence
// would, while also gathering every file's unresolved relationships for the
// sweep that follows.
type relationshipCollector struct {
	unresolved []*types.Relationship
}

func (rc *relationshipCollector) Submit(result *types.ParseResult, index types.FileIndex) error {
	for _, rel := range result.Relationships {
		if rel.ToID.IsNil() {
			rc.unresolved = append(rc.unresolved, rel)
		}
	}
	return nil
}

// sweepUnresolved is the §7 post-parse sweep, run once every file has been
// parsed and the cache holds the complete symbol table.
func sweepUnresolved(cache *rescache.Cache, unresolved []*types.Relationship) (resolved, stillUnresolved int) {
	for _, rel := range unresolved {
		sym := cache.ResolveSymbol(rel.UnresolvedTarget, rescache.ResolutionContext{})
		if sym == nil {
			stillUnresolved++
			continue
		}
		rel.ToID = sym.ID
		rel.UnresolvedTarget = ""
		resolved++
	}
	return resolved, stillUnresolved
}
