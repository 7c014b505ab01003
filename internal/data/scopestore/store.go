// Package scopestore persists extracted scopes in SQLite and answers prefix
// completion queries over them.
package scopestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"scopeindex/internal/core/errors"
	"scopeindex/internal/core/ports"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/shared/observability"
)

const (
	driverName       = "sqlite"
	maxAttempts      = 5
	defaultCacheSize = 512
)

var _ ports.ScopeStorePort = (*Store)(nil)

// Store is the durable scope index. Writes for one file happen inside a
// single transaction so readers see either the old or the new scope set.
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type Store struct {
	path  string
	db    *sql.DB
	mu    sync.Mutex
	cache *lru.Cache[string, []string]
}

type Options struct {
	// CacheSize bounds the completion cache; zero selects the default and a
	// negative value disables caching.
	CacheSize   int
	BusyTimeout time.Duration
}

// Open opens or creates the store at path. A store written with a different
// schema is deleted and recreated.
func Open(path string, opts Options) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "scope store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("scope store path %q is a directory, expected file", cleanPath))
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("create scope store directory %q", dir))
		}
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	ctx := context.Background()
	db, err := openDB(cleanPath, opts.BusyTimeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open scope store")
	}

	version, populated, err := storedVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "check scope store version")
	}
	if version != SchemaVersion() {
		if populated {
			slog.Info("scope store schema changed, rebuilding", "path", cleanPath, "stored", version, "current", SchemaVersion())
			_ = db.Close()
			if err := removeDatabase(cleanPath); err != nil {
				return nil, errors.Wrap(err, errors.CodeInternal, "remove outdated scope store")
			}
			if db, err = openDB(cleanPath, opts.BusyTimeout); err != nil {
				return nil, errors.Wrap(err, errors.CodeInternal, "reopen scope store")
			}
		}
		if err := createSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, errors.CodeInternal, "initialize scope store")
		}
	}

	s := &Store{path: cleanPath, db: db}
	if opts.CacheSize >= 0 {
		size := opts.CacheSize
		if size == 0 {
			size = defaultCacheSize
		}
		if s.cache, err = lru.New[string, []string](size); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, errors.CodeInternal, "create completion cache")
		}
	}
	return s, nil
}

func openDB(path string, busy time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path, busy.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	return db, nil
}

func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DeleteScopesByFilename removes every scope of filename and its parent rows.
func (s *Store) DeleteScopesByFilename(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, "delete scopes", func(tx *sql.Tx) error {
		return deleteFile(ctx, tx, filename)
	})
	return s.finishWrite(err, "delete", filename)
}

// SaveScopes upserts scopes by (filename, path, start line, end line) and
// replaces each saved scope's parent rows. Saving the same scopes twice
// leaves one row per key.
func (s *Store) SaveScopes(ctx context.Context, parser string, scopes []scope.Scope, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, "save scopes", func(tx *sql.Tx) error {
		return upsertScopes(ctx, tx, parser, filename, scopes)
	})
	if err == nil {
		observability.ScopesSavedTotal.WithLabelValues(parser).Add(float64(len(scopes)))
	}
	return s.finishWrite(err, "save", filename)
}

// ReplaceScopes deletes the file's scopes and saves the new set in one
// transaction.
func (s *Store) ReplaceScopes(ctx context.Context, parser, filename string, scopes []scope.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, "replace scopes", func(tx *sql.Tx) error {
		if err := deleteFile(ctx, tx, filename); err != nil {
			return err
		}
		return upsertScopes(ctx, tx, parser, filename, scopes)
	})
	if err == nil {
		observability.ScopesSavedTotal.WithLabelValues(parser).Add(float64(len(scopes)))
	}
	return s.finishWrite(err, "replace", filename)
}

// QueryCompletions returns the distinct scope paths recorded by parser that
// start with prefix, in lexicographic order. The match is case-sensitive and
// spans every file of the parser; filename, line and col do not narrow it.
func (s *Store) QueryCompletions(ctx context.Context, parser, filename string, line, col int, prefix string) ([]string, error) {
	key := parser + "\x00" + prefix
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			observability.CompletionCacheHitsTotal.Inc()
			return append([]string(nil), hit...), nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	err := s.withRetry("query completions", func() error {
		rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT path FROM scope
WHERE parser = ? AND substr(path, 1, ?) = ?
ORDER BY path`, parser, utf8.RuneCountInString(prefix), prefix)
		if err != nil {
			return err
		}
		defer rows.Close()

		paths = paths[:0]
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			paths = append(paths, p)
		}
		return rows.Err()
	})
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("query").Inc()
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeStale, "completion query failed"),
			errors.CtxPath, filename,
		)
	}
	if s.cache != nil {
		s.cache.Add(key, append([]string(nil), paths...))
	}
	return paths, nil
}

// ScopesForFile reads back the stored scopes of filename ordered by start
// position.
func (s *Store) ScopesForFile(ctx context.Context, filename string) ([]scope.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []scope.Scope
	err := s.withRetry("load scopes", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, `
SELECT id, path, start_line, start_col, end_line, end_col FROM scope
WHERE filename = ?
ORDER BY start_line, start_col, id`, filename)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := make(map[int64]int)
		for rows.Next() {
			var (
				id int64
				sc scope.Scope
			)
			if err := rows.Scan(&id, &sc.Path, &sc.Start.Line, &sc.Start.Col, &sc.End.Line, &sc.End.Col); err != nil {
				return err
			}
			index[id] = len(out)
			out = append(out, sc)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		parents, err := s.db.QueryContext(ctx, `
SELECT p.scope, p.path FROM scope_parent p
JOIN scope s ON s.id = p.scope
WHERE s.filename = ?
ORDER BY p.id`, filename)
		if err != nil {
			return err
		}
		defer parents.Close()
		for parents.Next() {
			var (
				id   int64
				path string
			)
			if err := parents.Scan(&id, &path); err != nil {
				return err
			}
			if i, ok := index[id]; ok {
				out[i].Inherited = append(out[i].Inherited, path)
			}
		}
		return parents.Err()
	})
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("load").Inc()
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeStale, "scope read-back failed"),
			errors.CtxPath, filename,
		)
	}
	return out, nil
}

func deleteFile(ctx context.Context, tx *sql.Tx, filename string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM scope_parent WHERE scope IN (SELECT id FROM scope WHERE filename = ?)`, filename); err != nil {
		return fmt.Errorf("delete scope parents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scope WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("delete scopes: %w", err)
	}
	return nil
}

func upsertScopes(ctx context.Context, tx *sql.Tx, parser, filename string, scopes []scope.Scope) error {
	if len(scopes) == 0 {
		return nil
	}
	upsert, err := tx.PrepareContext(ctx, `
INSERT INTO scope (filename, path, start_line, start_col, end_line, end_col, parser)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(filename, path, start_line, end_line) DO UPDATE SET
  start_col=excluded.start_col,
  end_col=excluded.end_col,
  parser=excluded.parser
RETURNING id`)
	if err != nil {
		return fmt.Errorf("prepare scope upsert: %w", err)
	}
	defer upsert.Close()

	clearParents, err := tx.PrepareContext(ctx, `DELETE FROM scope_parent WHERE scope = ?`)
	if err != nil {
		return fmt.Errorf("prepare parent delete: %w", err)
	}
	defer clearParents.Close()

	insertParent, err := tx.PrepareContext(ctx, `INSERT INTO scope_parent (path, scope) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare parent insert: %w", err)
	}
	defer insertParent.Close()

	for _, sc := range scopes {
		var id int64
		if err := upsert.QueryRowContext(ctx,
			filename, sc.Path,
			sc.Start.Line, sc.Start.Col,
			sc.End.Line, sc.End.Col,
			parser,
		).Scan(&id); err != nil {
			return fmt.Errorf("upsert scope %q: %w", sc.Path, err)
		}
		if _, err := clearParents.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("clear parents of %q: %w", sc.Path, err)
		}
		for _, parent := range sc.Inherited {
			if _, err := insertParent.ExecContext(ctx, parent, id); err != nil {
				return fmt.Errorf("insert parent %q of %q: %w", parent, sc.Path, err)
			}
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	return s.withRetry(op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// finishWrite purges cached completions after any write attempt and maps a
// failure to a stale-index error for filename.
func (s *Store) finishWrite(err error, op, filename string) error {
	if s.cache != nil {
		s.cache.Purge()
	}
	if err == nil {
		return nil
	}
	observability.StoreErrorsTotal.WithLabelValues(op).Inc()
	werr := errors.Wrap(err, errors.CodeStale, "scope store write failed")
	werr = errors.AddContext(werr, errors.CtxPath, filename)
	return errors.AddContext(werr, errors.CtxOperation, op)
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
