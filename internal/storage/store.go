// Package storage persists the symbol cache in a SQLite database under the
// workspace's .ctxslice directory. The cache anchors inference proposals:
// names the inference service suggests resolve here to real definition sites.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"

	_ "modernc.org/sqlite"
)

// DBFileName is the cache database file under the workspace dot-directory.
const DBFileName = "symbols.db"

// Store is the SQLite-backed symbol cache.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the symbol database under dir.
func Open(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize symbol schema: %w", err)
	}
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS symbols (
			name TEXT NOT NULL,
			file TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			start_col INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			end_col INTEGER NOT NULL,
			kind TEXT NOT NULL,
			signature TEXT,
			doc TEXT,
			source TEXT,
			confidence REAL NOT NULL DEFAULT 1.0,
			PRIMARY KEY (name, file, start_line)
		);
		CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
		CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// ReplaceFile replaces every cached symbol of a file in one transaction.
func (s *Store) ReplaceFile(ctx context.Context, file string, nodes []graph.Node) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file = ?`, file); err != nil {
		return fmt.Errorf("failed to clear symbols for %s: %w", file, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO symbols
			(name, file, start_line, start_col, end_line, end_col, kind, signature, doc, source, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		_, err := stmt.ExecContext(ctx,
			n.Name, n.Span.File, n.Span.StartLine, n.Span.StartCol,
			n.Span.EndLine, n.Span.EndCol, string(n.Kind),
			n.Signature, n.Doc, n.Source, n.Confidence)
		if err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", n.Name, err)
		}
	}
	return tx.Commit()
}

// LookupSymbol resolves a name to its definition, or nil when unknown.
// Identifiers are matched exactly; among duplicates the highest-confidence
// row wins, then file and line for determinism.
func (s *Store) LookupSymbol(ctx context.Context, name string) (*graph.Node, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT name, file, start_line, start_col, end_line, end_col, kind, signature, doc, source, confidence
		FROM symbols WHERE name = ?
		ORDER BY confidence DESC, file ASC, start_line ASC
		LIMIT 1`, name)

	var n graph.Node
	var kind string
	err := row.Scan(&n.Name, &n.Span.File, &n.Span.StartLine, &n.Span.StartCol,
		&n.Span.EndLine, &n.Span.EndCol, &kind, &n.Signature, &n.Doc, &n.Source, &n.Confidence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up symbol %s: %w", name, err)
	}

	n.Kind = graph.NodeKind(kind)
	n.ID = graph.MakeNodeID(n.Span.File, n.Span.StartLine, n.Span.StartCol, n.Name)
	return &n, nil
}

// CountSymbols returns the cached symbol count.
func (s *Store) CountSymbols(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return count, nil
}
