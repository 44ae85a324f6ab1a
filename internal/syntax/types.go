// Package syntax implements the syntax analyser (component C3): tree-sitter
// powered parsing, language grammar registration, and AST-to-symbol
// extraction shared by the chunker.
package syntax

// Point is a 0-indexed row/column position in source text.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is a language-agnostic view of one AST node.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Content returns the node's source slice.
func (n *Node) Content(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child with the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// FindChildrenByType returns all direct children with the given type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == nodeType {
			out = append(out, c)
		}
	}
	return out
}

// FindAllByType recursively collects every node with the given type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	if n.Type == nodeType {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAllByType(nodeType)...)
	}
	return out
}

// Walk visits nodes depth-first; fn returning false prunes the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is a parsed file.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// SymbolKind names the category of a declaration extracted from a Tree.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
	SymbolConstant  SymbolKind = "constant"
	SymbolVariable  SymbolKind = "variable"
)

// Symbol is one named declaration found while walking a Tree.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	StartLine  int
	EndLine    int
	Signature  string
	DocComment string
}

// Grammar describes one registered language: its tree-sitter binding plus
// the node-type vocabulary used to recognize declarations in that
// language's grammar.
type Grammar struct {
	Name           string
	Extensions     []string
	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string
	NameField      string
}
