// Package chunk implements the chunker (component C4): splitting file
// content into retrievable units, either by a line/brace heuristic or by
// walking the syntax tree produced by internal/syntax.
package chunk

import (
	"context"
	"time"

	"github.com/varunkamath/rune/internal/syntax"
)

const (
	DefaultTargetSize   = 1500
	DefaultMaxSize      = 3000
	DefaultOverlapFrac  = 0.15
	approxCharsPerLine  = 80
)

// ContentType names the kind of content held in a chunk.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// Chunk is a retrievable unit of content.
type Chunk struct {
	ID          string
	FilePath    string
	Content     string // full content including context preamble
	RawContent  string // just the unit, no preamble
	Context     string // file marker plus imports/package preamble; empty for heuristic and markdown chunks
	ContentType ContentType
	Language    string
	StartLine   int // 1-indexed
	EndLine     int // inclusive
	Symbols     []syntax.Symbol
	Kind        string // "function" or "block"
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileInput is one file handed to a Chunker.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
}

// Chunker splits a file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}
