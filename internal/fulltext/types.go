// Package fulltext implements the full-text index (component C2): a
// persistent, code-aware inverted index over file content, symbol names,
// and metadata fields, backed by Bleve.
package fulltext

// Document is one indexed unit. Path is the unique key; a re-index of the
// same path replaces the prior document.
type Document struct {
	Path        string
	Content     string
	Language    string
	Symbols     []SymbolRef
	LineNumbers string // opaque start:end span, stored but not searched
	Repository  string
}

// SymbolRef names one symbol extracted from a document, folded into the
// document's searchable symbol text as "<kind> <name>".
type SymbolRef struct {
	Kind string
	Name string
}

// Hit is one full-text match.
type Hit struct {
	Path          string
	Score         float64
	MatchedTerms  []string
	FragmentStart int
	FragmentEnd   int
}

// Stats summarizes index size, reported by the engine facade's stats call.
type Stats struct {
	DocumentCount uint64
	SizeBytes     int64
}
