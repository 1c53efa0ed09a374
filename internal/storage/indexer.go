package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/parse"
)

// DeclarationLister extracts top-level declarations from one source file.
// *parse.Parser satisfies it.
type DeclarationLister interface {
	FileDeclarations(ctx context.Context, source []byte, lang parse.Language) []parse.Declaration
}

// Indexer walks a workspace and fills the symbol cache from parsed
// declarations. Files the parser cannot fully understand still contribute
// whatever declarations survived the error recovery.
type Indexer struct {
	store  *Store
	parser DeclarationLister
	logger *logging.Logger
}

// NewIndexer creates an indexer over a store.
func NewIndexer(store *Store, parser DeclarationLister, logger *logging.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Indexer{store: store, parser: parser, logger: logger}
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Files   int `json:"files"`
	Symbols int `json:"symbols"`
	Skipped int `json:"skipped"`
}

// IndexWorkspace walks root and caches every declaration of every supported
// source file, keyed by root-relative path.
func (ix *Indexer) IndexWorkspace(ctx context.Context, root string) (IndexStats, error) {
	var stats IndexStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lang, ok := parse.LanguageForPath(path)
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		source, err := os.ReadFile(path)
		if err != nil {
			stats.Skipped++
			ix.logger.Warn("Skipping unreadable file", map[string]interface{}{
				"file":  rel,
				"error": err.Error(),
			})
			return nil
		}

		decls := ix.parser.FileDeclarations(ctx, source, lang)
		nodes := make([]graph.Node, 0, len(decls))
		for _, d := range decls {
			nodes = append(nodes, graph.Node{
				ID:         d.NodeID(rel),
				Kind:       d.Kind,
				Name:       d.Name,
				Span:       d.Span(rel),
				Source:     d.Source,
				Signature:  d.Signature,
				Doc:        d.Doc,
				Confidence: 1.0,
			})
		}

		if err := ix.store.ReplaceFile(ctx, rel, nodes); err != nil {
			return err
		}
		stats.Files++
		stats.Symbols += len(nodes)
		return nil
	})
	if err != nil {
		return stats, err
	}

	ix.logger.Info("Workspace indexed", map[string]interface{}{
		"root":    root,
		"files":   stats.Files,
		"symbols": stats.Symbols,
		"skipped": stats.Skipped,
	})
	return stats, nil
}

// skipDir filters directories that never hold indexable first-party source.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	switch name {
	case "vendor", "node_modules", "target", "testdata":
		return true
	}
	return false
}
