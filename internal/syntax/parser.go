package syntax

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/varunkamath/rune/internal/rerr"
)

// Analyser parses source text into Trees. Each language owns exactly one
// underlying *sitter.Parser, guarded by its own mutex: two parses of the
// same language serialize, but parses of different languages proceed
// concurrently, since tree-sitter parsers are not safe for concurrent use
// but are cheap to hold one of per language.
type Analyser struct {
	registry *Registry

	mu      sync.Mutex // guards parsers map membership, not parse calls
	parsers map[string]*langParser
}

type langParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewAnalyser builds an analyser over the default language registry.
func NewAnalyser() *Analyser {
	return &Analyser{
		registry: Default(),
		parsers:  make(map[string]*langParser),
	}
}

// NewAnalyserWithRegistry builds an analyser over a custom registry, used
// by tests that register a reduced grammar set.
func NewAnalyserWithRegistry(r *Registry) *Analyser {
	return &Analyser{
		registry: r,
		parsers:  make(map[string]*langParser),
	}
}

func (a *Analyser) parserFor(language string) *langParser {
	a.mu.Lock()
	defer a.mu.Unlock()
	lp, ok := a.parsers[language]
	if !ok {
		lp = &langParser{parser: sitter.NewParser()}
		a.parsers[language] = lp
	}
	return lp
}

// Parse builds a Tree from source, using the grammar registered for
// language. It blocks until any concurrent parse of the same language
// finishes.
func (a *Analyser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := a.registry.TreeSitterLanguage(language)
	if !ok {
		return nil, rerr.New(rerr.KindUnsupportedLanguage, "unsupported language: "+language)
	}

	lp := a.parserFor(language)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.parser.SetLanguage(tsLang)
	tsTree, err := lp.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindParser, "parse source", err)
	}
	if tsTree == nil {
		return nil, rerr.New(rerr.KindParser, "parser returned nil tree")
	}

	return &Tree{
		Root:     convertNode(tsTree.RootNode()),
		Source:   source,
		Language: language,
	}, nil
}

// Registry exposes the analyser's language registry.
func (a *Analyser) Registry() *Registry {
	return a.registry
}

// Close releases every per-language parser held by the analyser.
func (a *Analyser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, lp := range a.parsers {
		lp.mu.Lock()
		lp.parser.Close()
		lp.mu.Unlock()
	}
}

func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}
	n := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		Children: make([]*Node, 0, int(tsNode.ChildCount())),
	}
	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := tsNode.Child(int(i)); child != nil {
			n.Children = append(n.Children, convertNode(child))
		}
	}
	return n
}
