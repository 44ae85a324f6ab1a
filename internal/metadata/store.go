package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/varunkamath/rune/internal/rerr"
)

// Store is the durable per-workspace metadata store: one sqlite database
// per workspace root. A single writer handle mutates it; concurrent readers
// are safe.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	lock   *flock.Flock
	closed bool
}

// validateIntegrity mirrors the corruption-detection pattern used for the
// full-text index: open read-only and run PRAGMA integrity_check before
// trusting an existing database file.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (creating if necessary) the metadata store at dir/metadata.db.
// The writer lock file carries the PID of whoever holds it. A stale lock —
// the flock is held (or the lock file exists unacquired after a hard crash
// that skipped Close, leaving the OS lock released but the file behind) but
// its stamped PID no longer names a live process — is detected and removed,
// then lock acquisition is retried once; a lock genuinely held by a live
// process is reported as a fatal storage error.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rerr.Wrap(rerr.KindStorage, "create metadata directory", err)
	}

	dbPath := filepath.Join(dir, "metadata.db")
	lockPath := dbPath + ".lock"

	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, rerr.Wrap(rerr.KindStorage, "acquire metadata writer lock", err)
	}
	if !locked {
		pid, readErr := readLockPID(lockPath)
		if readErr == nil && !processExists(pid) {
			slog.Warn("metadata store: removing stale writer lock",
				slog.String("path", lockPath), slog.Int("pid", pid))
			if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
				return nil, rerr.Wrap(rerr.KindStorage, "remove stale metadata writer lock", err)
			}
			locked, err = lock.TryLock()
			if err != nil {
				return nil, rerr.Wrap(rerr.KindStorage, "acquire metadata writer lock", err)
			}
		}
		if !locked {
			return nil, rerr.New(rerr.KindStorage, "metadata store is locked by another process").
				WithDetail("path", dbPath)
		}
	}
	if err := writeLockPID(lockPath); err != nil {
		_ = lock.Unlock()
		return nil, rerr.Wrap(rerr.KindStorage, "stamp metadata writer lock", err)
	}

	if validErr := validateIntegrity(dbPath); validErr != nil {
		slog.Warn("metadata store corrupted, recreating",
			slog.String("path", dbPath), slog.String("error", validErr.Error()))
		_ = os.Remove(dbPath)
		_ = os.Remove(dbPath + "-wal")
		_ = os.Remove(dbPath + "-shm")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, rerr.Wrap(rerr.KindDatabase, "open metadata database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, rerr.Wrap(rerr.KindDatabase, "set pragma", err)
		}
	}

	s := &Store{db: db, path: dbPath, lock: lock}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, rerr.Wrap(rerr.KindDatabase, "initialize metadata schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		file_count INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		symbol_count INTEGER NOT NULL DEFAULT 0,
		indexed_at INTEGER NOT NULL DEFAULT 0,
		schema_version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		size_bytes INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		indexed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS symbol_counts (
		path TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// writeLockPID stamps the current process's PID into the lock file so a
// later Open by another process can tell whether the holder is still alive.
func writeLockPID(lockPath string) error {
	return os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// readLockPID reads back a PID previously stamped by writeLockPID.
func readLockPID(lockPath string) (int, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// processExists reports whether pid names a still-running process. On Unix,
// os.FindProcess always succeeds, so liveness is checked by sending the
// null signal.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Put inserts or replaces the file-record for path.
func (s *Store) Put(ctx context.Context, rec FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "metadata store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, size_bytes, mod_time, language, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes=excluded.size_bytes, mod_time=excluded.mod_time,
			language=excluded.language, content_hash=excluded.content_hash,
			indexed_at=excluded.indexed_at`,
		rec.Path, rec.SizeBytes, rec.ModTime.Unix(), rec.Language, rec.ContentHash, rec.IndexedAt.Unix())
	if err != nil {
		return rerr.Wrap(rerr.KindDatabase, "put file record", err)
	}
	return nil
}

// Get returns the file-record for path, or (zero, false) if absent.
func (s *Store) Get(ctx context.Context, path string) (FileRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return FileRecord{}, false, rerr.New(rerr.KindStorage, "metadata store is closed")
	}
	row := s.db.QueryRowContext(ctx, `SELECT path, size_bytes, mod_time, language, content_hash, indexed_at FROM files WHERE path = ?`, path)
	var rec FileRecord
	var modTime, indexedAt int64
	if err := row.Scan(&rec.Path, &rec.SizeBytes, &modTime, &rec.Language, &rec.ContentHash, &indexedAt); err != nil {
		if err == sql.ErrNoRows {
			return FileRecord{}, false, nil
		}
		return FileRecord{}, false, rerr.Wrap(rerr.KindDatabase, "get file record", err)
	}
	rec.ModTime = time.Unix(modTime, 0)
	rec.IndexedAt = time.Unix(indexedAt, 0)
	return rec, true, nil
}

// Delete removes the file-record (and any symbol count) for path.
func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "metadata store is closed")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return rerr.Wrap(rerr.KindDatabase, "delete file record", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM symbol_counts WHERE path = ?`, path); err != nil {
		return rerr.Wrap(rerr.KindDatabase, "delete symbol count", err)
	}
	return nil
}

// ListPaths returns every tracked path, sorted by path.
func (s *Store) ListPaths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, rerr.New(rerr.KindStorage, "metadata store is closed")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindDatabase, "list paths", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, rerr.Wrap(rerr.KindDatabase, "scan path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// SetSymbolCount records the number of symbols extracted from path's most
// recent index pass, used to compute an accurate Project.SymbolCount.
func (s *Store) SetSymbolCount(ctx context.Context, path string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "metadata store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbol_counts (path, count) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET count=excluded.count`, path, count)
	if err != nil {
		return rerr.Wrap(rerr.KindDatabase, "set symbol count", err)
	}
	return nil
}

// FileCount returns the number of tracked files.
func (s *Store) FileCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, rerr.Wrap(rerr.KindDatabase, "count files", err)
	}
	return n, nil
}

// TotalSymbolCount sums the recorded symbol counts across all files, used
// by the engine facade's Stats() instead of the file-count heuristic.
func (s *Store) TotalSymbolCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(count) FROM symbol_counts`).Scan(&n); err != nil {
		return 0, rerr.Wrap(rerr.KindDatabase, "sum symbol counts", err)
	}
	return int(n.Int64), nil
}

// SaveProject upserts a workspace-root record.
func (s *Store) SaveProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, root_path, file_count, chunk_count, symbol_count, indexed_at, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, root_path=excluded.root_path,
			file_count=excluded.file_count, chunk_count=excluded.chunk_count,
			symbol_count=excluded.symbol_count, indexed_at=excluded.indexed_at,
			schema_version=excluded.schema_version`,
		p.ID, p.Name, p.RootPath, p.FileCount, p.ChunkCount, p.SymbolCount, p.IndexedAt.Unix(), p.SchemaVersion)
	if err != nil {
		return rerr.Wrap(rerr.KindDatabase, "save project", err)
	}
	return nil
}

// GetProject returns the project record by id.
func (s *Store) GetProject(ctx context.Context, id string) (Project, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, root_path, file_count, chunk_count, symbol_count, indexed_at, schema_version FROM projects WHERE id = ?`, id)
	var p Project
	var indexedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.FileCount, &p.ChunkCount, &p.SymbolCount, &indexedAt, &p.SchemaVersion); err != nil {
		if err == sql.ErrNoRows {
			return Project{}, false, nil
		}
		return Project{}, false, rerr.Wrap(rerr.KindDatabase, "get project", err)
	}
	p.IndexedAt = time.Unix(indexedAt, 0)
	return p, true, nil
}

// SetState/GetState implement the arbitrary key-value state table used for
// checkpoints and schema bookkeeping.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return rerr.Wrap(rerr.KindDatabase, "set state", err)
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, rerr.Wrap(rerr.KindDatabase, "get state", err)
	}
	return v, true, nil
}

// Close checkpoints the WAL, closes the database, and releases the writer
// lock. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		_ = s.db.Close()
	}
	if s.lock != nil {
		_ = os.Remove(s.lock.Path())
		_ = s.lock.Unlock()
	}
	return nil
}
