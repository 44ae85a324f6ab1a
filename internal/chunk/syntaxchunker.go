package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/varunkamath/rune/internal/syntax"
)

// SyntaxChunker builds chunks from a parsed syntax tree: imports become a
// reusable context preamble, and each semantic unit (function, method,
// class, ...) becomes its own chunk, split further if it exceeds MaxSize.
type SyntaxChunker struct {
	analyser  *syntax.Analyser
	extractor *syntax.Extractor

	TargetSize int
	MaxSize    int
}

// NewSyntaxChunker builds a chunker over the default language registry.
func NewSyntaxChunker() *SyntaxChunker {
	return &SyntaxChunker{
		analyser:   syntax.NewAnalyser(),
		extractor:  syntax.NewExtractor(),
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Close releases the underlying per-language parsers.
func (s *SyntaxChunker) Close() {
	s.analyser.Close()
}

func (s *SyntaxChunker) SupportedExtensions() []string {
	return s.analyser.Registry().SupportedExtensions()
}

// Chunk parses file and emits one chunk per semantic unit. If the language
// is unsupported or the parse fails, it falls back to the heuristic
// chunker so a caller never gets zero chunks for non-empty input.
func (s *SyntaxChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}
	if _, ok := s.analyser.Registry().ByName(file.Language); !ok {
		return NewHeuristicChunker().Chunk(ctx, file)
	}

	tree, err := s.analyser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return NewHeuristicChunker().Chunk(ctx, file)
	}

	preamble := enrichWithFilePath(file.Path, file.Language, contextPreamble(tree))
	symbols := s.extractor.Extract(tree)
	if len(symbols) == 0 {
		return NewHeuristicChunker().Chunk(ctx, file)
	}

	now := time.Now()
	var chunks []*Chunk
	for _, sym := range symbols {
		chunks = append(chunks, s.chunksForSymbol(sym, tree, file, preamble, now)...)
	}
	return chunks, nil
}

func (s *SyntaxChunker) chunksForSymbol(sym *syntax.Symbol, tree *syntax.Tree, file *FileInput, preamble string, now time.Time) []*Chunk {
	lines := strings.Split(string(tree.Source), "\n")
	start, end := sym.StartLine, sym.EndLine
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	raw := strings.Join(lines[start-1:end], "\n")

	size := len(raw)
	if size <= s.MaxSize {
		return []*Chunk{s.build(file, raw, preamble, start, end, symbolKind(sym), []syntax.Symbol{*sym}, now)}
	}
	return s.splitByLineBands(sym, lines, file, preamble, now)
}

// splitByLineBands breaks an oversized unit into bands roughly
// TargetSize/80 lines wide, the same line-density assumption the
// heuristic chunker uses.
func (s *SyntaxChunker) splitByLineBands(sym *syntax.Symbol, lines []string, file *FileInput, preamble string, now time.Time) []*Chunk {
	bandLines := s.TargetSize / approxCharsPerLine
	if bandLines < 5 {
		bandLines = 5
	}

	var chunks []*Chunk
	start := sym.StartLine
	end := sym.EndLine
	if end > len(lines) {
		end = len(lines)
	}

	for lineNo := start; lineNo <= end; lineNo += bandLines {
		bandEnd := lineNo + bandLines - 1
		if bandEnd > end {
			bandEnd = end
		}
		content := strings.Join(lines[lineNo-1:bandEnd], "\n")
		partSymbol := syntax.Symbol{
			Name:      fmt.Sprintf("%s_part%d", sym.Name, len(chunks)+1),
			Kind:      sym.Kind,
			StartLine: lineNo,
			EndLine:   bandEnd,
		}
		symbolsForChunk := []syntax.Symbol{partSymbol}
		if len(chunks) == 0 {
			symbolsForChunk = append(symbolsForChunk, *sym)
		}
		chunks = append(chunks, s.build(file, content, preamble, lineNo, bandEnd, symbolKind(sym), symbolsForChunk, now))
	}
	return chunks
}

func symbolKind(sym *syntax.Symbol) string {
	if sym.Kind == syntax.SymbolFunction || sym.Kind == syntax.SymbolMethod {
		return "function"
	}
	return "block"
}

func (s *SyntaxChunker) build(file *FileInput, raw, preamble string, start, end int, kind string, symbols []syntax.Symbol, now time.Time) *Chunk {
	full := raw
	if preamble != "" {
		full = preamble + "\n\n" + raw
	}
	return &Chunk{
		ID:          generateChunkID(file.Path, raw),
		FilePath:    file.Path,
		Content:     full,
		RawContent:  raw,
		Context:     preamble,
		ContentType: ContentTypeCode,
		Language:    file.Language,
		StartLine:   start,
		EndLine:     end,
		Symbols:     symbols,
		Kind:        kind,
		Metadata:    make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// contextPreamble collects the file's import/package declarations, which
// every chunk from the file can prepend for context without repeating the
// rest of the file.
func contextPreamble(tree *syntax.Tree) string {
	var parts []string
	switch tree.Language {
	case "go":
		for _, n := range tree.Root.Children {
			if n.Type == "package_clause" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
		for _, n := range tree.Root.Children {
			if n.Type == "import_declaration" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
	case "typescript", "tsx", "javascript", "jsx":
		for _, n := range tree.Root.Children {
			if n.Type == "import_statement" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
	case "python":
		for _, n := range tree.Root.Children {
			if n.Type == "import_statement" || n.Type == "import_from_statement" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
	case "rust":
		for _, n := range tree.Root.Children {
			if n.Type == "use_declaration" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
	case "java":
		for _, n := range tree.Root.Children {
			if n.Type == "import_declaration" || n.Type == "package_declaration" {
				parts = append(parts, n.Content(tree.Source))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func enrichWithFilePath(filePath, language, existingContext string) string {
	if filePath == "" {
		return existingContext
	}
	var marker string
	switch language {
	case "python":
		marker = fmt.Sprintf("# File: %s", filePath)
	default:
		marker = fmt.Sprintf("// File: %s", filePath)
	}
	if existingContext == "" {
		return marker
	}
	return marker + "\n" + existingContext
}
