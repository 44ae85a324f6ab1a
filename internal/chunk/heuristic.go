package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// functionMarkers recognizes language-aware tokens that start a function
// or method-like declaration, used to tag a chunk's Kind without a parse.
var functionMarkers = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^\s*func\b`),
	"python":     regexp.MustCompile(`^\s*(async\s+)?def\b`),
	"javascript": regexp.MustCompile(`^\s*(export\s+)?(async\s+)?function\b|=>\s*\{?\s*$`),
	"typescript": regexp.MustCompile(`^\s*(export\s+)?(async\s+)?function\b|=>\s*\{?\s*$`),
	"rust":       regexp.MustCompile(`^\s*(pub\s+)?(async\s+)?fn\b`),
	"java":       regexp.MustCompile(`^\s*(public|private|protected)\s.*\(.*\)\s*\{?\s*$`),
	"c":          regexp.MustCompile(`^\s*\w[\w\s\*]*\([^;]*\)\s*\{?\s*$`),
	"cpp":        regexp.MustCompile(`^\s*\w[\w\s\*:<>]*\([^;]*\)\s*\{?\s*$`),
}

// HeuristicChunker splits code by scanning lines for boundary markers and
// brace depth, without building a syntax tree. It is the fallback chunker
// for languages internal/syntax does not parse and the default for
// "heuristic" chunking strategy.
type HeuristicChunker struct {
	TargetSize      int
	MaxSize         int
	OverlapFraction float64
}

// NewHeuristicChunker builds a chunker using rune's default size tunables.
func NewHeuristicChunker() *HeuristicChunker {
	return &HeuristicChunker{
		TargetSize:      DefaultTargetSize,
		MaxSize:         DefaultMaxSize,
		OverlapFraction: DefaultOverlapFrac,
	}
}

func (h *HeuristicChunker) SupportedExtensions() []string {
	return []string{".go", ".py", ".js", ".jsx", ".mjs", ".ts", ".tsx", ".rs", ".java", ".c", ".h", ".cpp", ".cc", ".hpp"}
}

// Chunk walks file line by line: a new chunk opens whenever a boundary
// marker is seen at brace depth zero and the running chunk is already
// non-trivial; a chunk always flushes once its size crosses MaxSize,
// regardless of brace depth, to bound worst-case chunk size.
func (h *HeuristicChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	marker := functionMarkers[file.Language]

	now := time.Now()
	var chunks []*Chunk
	var current []string
	currentStart := 1
	depth := 0
	currentKind := "block"

	flush := func(end int) {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, h.build(file, current, currentStart, end, currentKind, now))
		current = nil
		currentKind = "block"
	}

	overlapLines := int(float64(h.TargetSize/approxCharsPerLine) * h.OverlapFraction)
	if overlapLines < 1 {
		overlapLines = 1
	}

	for i, line := range lines {
		lineNo := i + 1
		isBoundary := marker != nil && marker.MatchString(line)

		if isBoundary && depth == 0 && len(current) > 0 {
			flush(lineNo - 1)
			if overlapLines > 0 && overlapLines < len(lines)-i {
				carry := lines[max(0, i-overlapLines):i]
				current = append(current, carry...)
				currentStart = lineNo - len(carry)
			} else {
				currentStart = lineNo
			}
			currentKind = "function"
		}
		if isBoundary && len(current) == 0 {
			currentStart = lineNo
			currentKind = "function"
		}

		current = append(current, line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")

		size := 0
		for _, l := range current {
			size += len(l) + 1
		}
		if size >= h.MaxSize {
			flush(lineNo)
			currentStart = lineNo + 1
		}
	}
	flush(len(lines))

	return chunks, nil
}

func (h *HeuristicChunker) build(file *FileInput, lines []string, start, end int, kind string, now time.Time) *Chunk {
	content := strings.Join(lines, "\n")
	return &Chunk{
		ID:          generateChunkID(file.Path, content),
		FilePath:    file.Path,
		Content:     content,
		RawContent:  content,
		ContentType: ContentTypeCode,
		Language:    file.Language,
		StartLine:   start,
		EndLine:     end,
		Kind:        kind,
		Metadata:    make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// generateChunkID derives a stable, content-addressable id from the file
// path and chunk content: the same content in the same file always
// produces the same id, so re-indexing an unchanged chunk is a no-op for
// downstream stores keyed by it.
func generateChunkID(filePath, content string) string {
	contentHash := sha256.Sum256([]byte(content))
	contentHashStr := hex.EncodeToString(contentHash[:])[:16]
	input := fmt.Sprintf("%s:%s", filePath, contentHashStr)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
