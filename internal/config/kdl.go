package config

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// parseKDL reads the .fastfind.kdl format:
//
//	index {
//	    roots "/home" "/srv"
//	    exclude "node_modules" "**/.git/**"
//	    exclude_extensions ".tmp" ".bak"
//	    include_hidden false
//	    max_depth 32
//	    max_file_size 104857600
//	    parallel_threads 8
//	    batch_size 512
//	    monitoring true
//	}
//	monitor {
//	    include_subdirectories true
//	    buffer_size 500
//	    debounce_ms 100
//	    exclude "**/.cache/**"
//	}
//	storage {
//	    mode "high_performance"
//	    path "fastfind.db"
//	}
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "roots":
					cfg.Index.Roots = collectStringArgs(cn)
				case "exclude":
					cfg.Index.ExcludedPaths = append(cfg.Index.ExcludedPaths, collectStringArgs(cn)...)
				case "exclude_extensions":
					cfg.Index.ExcludedExtensions = append(cfg.Index.ExcludedExtensions, collectStringArgs(cn)...)
				case "include_hidden":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.IncludeHidden = b
					}
				case "include_system":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.IncludeSystem = b
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxDepth = v
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "parallel_threads":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.ParallelThreads = v
					}
				case "batch_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.BatchSize = v
					}
				case "monitoring":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.EnableMonitoring = b
					}
				}
			}
		case "monitor":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include_subdirectories":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Monitor.IncludeSubdirectories = b
					}
				case "buffer_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Monitor.BufferSize = v
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Monitor.DebounceMs = v
					}
				case "exclude":
					cfg.Monitor.ExcludedPaths = append(cfg.Monitor.ExcludedPaths, collectStringArgs(cn)...)
				}
			}
		case "storage":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "mode":
					if s, ok := firstStringArg(cn); ok {
						cfg.Storage.Mode = s
					}
				case "path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Storage.Path = s
					}
				}
			}
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		}
	}
	return cfg, nil
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

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
