// Package metadata implements the durable file-record store (component C1):
// an ordered key-value mapping from file path to file-record, backed by
// SQLite in WAL mode with single-writer discipline. Paths are stored as the
// caller gives them; the indexer gives paths relative to their workspace
// root, so the store does not tell apart equal relative paths under two
// different roots.
package metadata

import "time"

// FileRecord is the per-file entry owned by the metadata store.
type FileRecord struct {
	Path        string
	SizeBytes   int64
	ModTime     time.Time
	Language    string
	ContentHash string
	IndexedAt   time.Time
}

// Project tracks one workspace root. A workspace may span multiple roots,
// each with its own Project row; stats are summed by the engine facade.
type Project struct {
	ID            string
	Name          string
	RootPath      string
	FileCount     int
	ChunkCount    int
	SymbolCount   int
	IndexedAt     time.Time
	SchemaVersion int
}

// CurrentSchemaVersion is bumped whenever the on-disk schema changes in an
// incompatible way.
const CurrentSchemaVersion = 1

// LegacySymbolEstimateFactor is the fallback symbol-count multiplier used
// only when a workspace predates accurate per-file symbol counting and no
// recorded count exists to sum.
const LegacySymbolEstimateFactor = 20
