// Package config loads the project-level defaults a ParserDriver (C10)
// seeds its ParseOptions from, plus the resolution cache capacity (C2).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/cxxgraph/internal/types"
)

// Config is the ambient project configuration for a cxxgraph run.
type Config struct {
	ProjectName string
	ProjectRoot string

	ParseOptions types.ParseOptions

	ResolutionCacheCapacity int
}

func defaults(projectRoot string) *Config {
	return &Config{
		ProjectRoot: projectRoot,
		ParseOptions: types.ParseOptions{
			LargeFileThreshold:     50 * 1024,
			EnableControlFlow:      true,
			EnableComplexity:       true,
			EnablePatternDetection: true,
			WorkerPoolSize:         4,
			ParseTimeout:           5 * time.Second,
		},
		ResolutionCacheCapacity: 50000,
	}
}

// Load reads ".cxxgraph.kdl" from projectRoot, falling back to defaults when
// the file is absent.
func Load(projectRoot string) (*Config, error) {
	cfg := defaults(projectRoot)

	kdlPath := filepath.Join(projectRoot, ".cxxgraph.kdl")
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return cfg, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .cxxgraph.kdl: %w", err)
	}

	if err := applyKDL(cfg, string(content)); err != nil {
		return nil, err
	}

	if cfg.ProjectRoot != "" && !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Clean(filepath.Join(projectRoot, cfg.ProjectRoot))
	}

	return cfg, nil
}

func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse .cxxgraph.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.ProjectRoot = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.ProjectName = s
					}
				}
			}
		case "parse":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "large-file-threshold":
					if v, ok := firstIntArg(cn); ok {
						cfg.ParseOptions.LargeFileThreshold = v
					}
				case "enable-control-flow":
					if b, ok := firstBoolArg(cn); ok {
						cfg.ParseOptions.EnableControlFlow = b
					}
				case "enable-complexity":
					if b, ok := firstBoolArg(cn); ok {
						cfg.ParseOptions.EnableComplexity = b
					}
				case "enable-pattern-detection":
					if b, ok := firstBoolArg(cn); ok {
						cfg.ParseOptions.EnablePatternDetection = b
					}
				case "worker-pool-size":
					if v, ok := firstIntArg(cn); ok {
						cfg.ParseOptions.WorkerPoolSize = v
					}
				case "parse-timeout-ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.ParseOptions.ParseTimeout = time.Duration(v) * time.Millisecond
					}
				}
			}
		case "resolution-cache":
			for _, cn := range n.Children {
				if nodeName(cn) == "capacity" {
					if v, ok := firstIntArg(cn); ok {
						cfg.ResolutionCacheCapacity = v
					}
				}
			}
		}
	}

	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
