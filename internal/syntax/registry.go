package syntax

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Registry holds every registered language grammar, keyed by name and by
// file extension.
type Registry struct {
	mu        sync.RWMutex
	grammars  map[string]*Grammar
	extToLang map[string]string
	tsLangs   map[string]*sitter.Language
}

// NewRegistry builds a registry with every grammar this analyser supports.
func NewRegistry() *Registry {
	r := &Registry{
		grammars:  make(map[string]*Grammar),
		extToLang: make(map[string]string),
		tsLangs:   make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerRust()
	r.registerJava()
	r.registerCpp()
	r.registerC()
	return r
}

// ByExtension resolves the grammar registered for a file extension.
func (r *Registry) ByExtension(ext string) (*Grammar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	g, ok := r.grammars[name]
	return g, ok
}

// ByName resolves a grammar by its registered name.
func (r *Registry) ByName(name string) (*Grammar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[name]
	return g, ok
}

// TreeSitterLanguage resolves the tree-sitter binding for a grammar name.
func (r *Registry) TreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLangs[name]
	return lang, ok
}

// SupportedExtensions lists every registered file extension.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *Registry) register(g *Grammar, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammars[g.Name] = g
	r.tsLangs[g.Name] = tsLang
	for _, ext := range g.Extensions {
		r.extToLang[ext] = g.Name
	}
}

func (r *Registry) registerGo() {
	r.register(&Grammar{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		TypeDefTypes:  []string{"type_declaration"},
		ConstantTypes: []string{"const_declaration"},
		VariableTypes: []string{"var_declaration"},
		NameField:     "name",
	}, golang.GetLanguage())
}

func (r *Registry) registerTypeScript() {
	ts := &Grammar{
		Name:           "typescript",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		ConstantTypes:  []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		NameField:      "name",
	}
	r.register(ts, typescript.GetLanguage())

	tsxG := *ts
	tsxG.Name = "tsx"
	tsxG.Extensions = []string{".tsx"}
	r.register(&tsxG, tsx.GetLanguage())
}

func (r *Registry) registerJavaScript() {
	js := &Grammar{
		Name:          "javascript",
		Extensions:    []string{".js", ".mjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		ConstantTypes: []string{"lexical_declaration"},
		VariableTypes: []string{"variable_declaration"},
		NameField:     "name",
	}
	r.register(js, javascript.GetLanguage())

	jsx := *js
	jsx.Name = "jsx"
	jsx.Extensions = []string{".jsx"}
	r.register(&jsx, javascript.GetLanguage())
}

func (r *Registry) registerPython() {
	r.register(&Grammar{
		Name:          "python",
		Extensions:    []string{".py"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		VariableTypes: []string{"assignment"},
		NameField:     "name",
	}, python.GetLanguage())
}

func (r *Registry) registerRust() {
	r.register(&Grammar{
		Name:          "rust",
		Extensions:    []string{".rs"},
		FunctionTypes: []string{"function_item"},
		ClassTypes:    []string{"struct_item", "enum_item"},
		InterfaceTypes: []string{"trait_item"},
		TypeDefTypes:  []string{"type_item"},
		ConstantTypes: []string{"const_item", "static_item"},
		NameField:     "name",
	}, rust.GetLanguage())
}

func (r *Registry) registerJava() {
	r.register(&Grammar{
		Name:           "java",
		Extensions:     []string{".java"},
		FunctionTypes:  []string{"method_declaration"},
		MethodTypes:    []string{"method_declaration"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		ConstantTypes:  []string{"field_declaration"},
		NameField:      "name",
	}, java.GetLanguage())
}

func (r *Registry) registerCpp() {
	r.register(&Grammar{
		Name:          "cpp",
		Extensions:    []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_specifier", "struct_specifier"},
		NameField:     "declarator",
	}, cpp.GetLanguage())
}

func (r *Registry) registerC() {
	r.register(&Grammar{
		Name:          "c",
		Extensions:    []string{".c", ".h"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"struct_specifier"},
		NameField:     "declarator",
	}, c.GetLanguage())
}

// defaultRegistry is shared process-wide; grammars are stateless once
// registered, so concurrent readers never contend on it.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
