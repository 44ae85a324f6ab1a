package syntax

import "strings"

// Extractor walks a parsed Tree and produces the Symbols it declares.
type Extractor struct {
	registry *Registry
}

// NewExtractor builds an extractor over the default registry.
func NewExtractor() *Extractor {
	return &Extractor{registry: Default()}
}

// NewExtractorWithRegistry builds an extractor over a custom registry.
func NewExtractorWithRegistry(r *Registry) *Extractor {
	return &Extractor{registry: r}
}

// Extract returns every symbol found in tree, in document order.
func (e *Extractor) Extract(tree *Tree) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}
	grammar, ok := e.registry.ByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	var symbols []*Symbol
	tree.Root.Walk(func(n *Node) bool {
		if s := e.fromNode(n, tree.Source, grammar, tree.Language); s != nil {
			symbols = append(symbols, s)
		}
		return true
	})
	return symbols
}

func (e *Extractor) fromNode(n *Node, source []byte, g *Grammar, language string) *Symbol {
	if s := e.special(n, source, language); s != nil {
		return s
	}
	kind, found := classify(n.Type, g)
	if !found {
		return nil
	}

	name := e.name(n, source, g, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Kind:       kind,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  signature(n.Content(source), kind, language),
		DocComment: docComment(n, source, language),
	}
}

func classify(nodeType string, g *Grammar) (SymbolKind, bool) {
	checks := []struct {
		types []string
		kind  SymbolKind
	}{
		{g.FunctionTypes, SymbolFunction},
		{g.MethodTypes, SymbolMethod},
		{g.ClassTypes, SymbolClass},
		{g.InterfaceTypes, SymbolInterface},
		{g.TypeDefTypes, SymbolType},
		{g.ConstantTypes, SymbolConstant},
		{g.VariableTypes, SymbolVariable},
	}
	for _, c := range checks {
		for _, t := range c.types {
			if t == nodeType {
				return c.kind, true
			}
		}
	}
	return "", false
}

func (e *Extractor) name(n *Node, source []byte, g *Grammar, language string) string {
	switch language {
	case "go":
		return goName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return jsName(n, source)
	case "python", "rust", "java":
		return firstChildOfType(n, source, "identifier")
	case "cpp", "c":
		return cFamilyName(n, source)
	default:
		return firstChildOfType(n, source, "identifier")
	}
}

func firstChildOfType(n *Node, source []byte, nodeType string) string {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c.Content(source)
		}
	}
	return ""
}

func goName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		return firstChildOfType(n, source, "identifier")
	case "method_declaration":
		return firstChildOfType(n, source, "field_identifier")
	case "type_declaration":
		for _, spec := range n.FindChildrenByType("type_spec") {
			if name := firstChildOfType(spec, source, "type_identifier"); name != "" {
				return name
			}
		}
	case "const_declaration":
		for _, spec := range n.FindChildrenByType("const_spec") {
			if name := firstChildOfType(spec, source, "identifier"); name != "" {
				return name
			}
		}
	case "var_declaration":
		for _, spec := range n.FindChildrenByType("var_spec") {
			if name := firstChildOfType(spec, source, "identifier"); name != "" {
				return name
			}
		}
	}
	return ""
}

func jsName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, decl := range n.FindChildrenByType("variable_declarator") {
			if name := firstChildOfType(decl, source, "identifier"); name != "" {
				return name
			}
		}
	}
	for _, c := range n.Children {
		if c.Type == "identifier" || c.Type == "type_identifier" {
			return c.Content(source)
		}
	}
	return ""
}

// cFamilyName pulls an identifier out of a C/C++ declarator, which nests
// the name under function_declarator rather than exposing it directly.
func cFamilyName(n *Node, source []byte) string {
	var find func(*Node) string
	find = func(node *Node) string {
		if node.Type == "identifier" || node.Type == "field_identifier" {
			return node.Content(source)
		}
		for _, c := range node.Children {
			if name := find(c); name != "" {
				return name
			}
		}
		return ""
	}
	return find(n)
}

// special recognizes declarations that don't correspond to a single
// grammar node type: JS/TS const bindings to arrow or function expressions.
func (e *Extractor) special(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type != "lexical_declaration" && n.Type != "variable_declaration" {
			return nil
		}
		for _, decl := range n.FindChildrenByType("variable_declarator") {
			var name string
			var isFunc bool
			for _, c := range decl.Children {
				if c.Type == "identifier" {
					name = c.Content(source)
				}
				if c.Type == "arrow_function" || c.Type == "function" || c.Type == "function_expression" {
					isFunc = true
				}
			}
			if name != "" && isFunc {
				return &Symbol{
					Name:      name,
					Kind:      SymbolFunction,
					StartLine: int(n.StartPoint.Row) + 1,
					EndLine:   int(n.EndPoint.Row) + 1,
					Signature: signature(n.Content(source), SymbolFunction, language),
				}
			}
		}
	}
	return nil
}

func docComment(n *Node, source []byte, language string) string {
	if language == "python" {
		return "" // Python docstrings live inside the body, not before it.
	}
	if n.StartPoint.Row == 0 {
		return ""
	}
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}
	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))
	if strings.HasPrefix(prevLine, "//") {
		return strings.TrimPrefix(prevLine, "//")
	}
	return ""
}

func signature(content string, kind SymbolKind, language string) string {
	if content == "" {
		return ""
	}
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])

	switch kind {
	case SymbolFunction, SymbolMethod:
		if language == "python" {
			return firstLine
		}
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	case SymbolClass, SymbolInterface, SymbolType:
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	default:
		return firstLine
	}
}
