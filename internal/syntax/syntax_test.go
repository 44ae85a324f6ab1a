package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndExtractGoFunction(t *testing.T) {
	a := NewAnalyser()
	defer a.Close()

	src := []byte("package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	tree, err := a.Parse(context.Background(), src, "go")
	require.NoError(t, err)
	require.False(t, tree.Root.HasError)

	symbols := NewExtractor().Extract(tree)
	require.Len(t, symbols, 1)
	require.Equal(t, "Add", symbols[0].Name)
	require.Equal(t, SymbolFunction, symbols[0].Kind)
}

func TestParseUnsupportedLanguage(t *testing.T) {
	a := NewAnalyser()
	defer a.Close()

	_, err := a.Parse(context.Background(), []byte("x"), "cobol")
	require.Error(t, err)
}

func TestConcurrentParsesOfDifferentLanguages(t *testing.T) {
	a := NewAnalyser()
	defer a.Close()

	done := make(chan error, 2)
	go func() {
		_, err := a.Parse(context.Background(), []byte("package p\nfunc F() {}\n"), "go")
		done <- err
	}()
	go func() {
		_, err := a.Parse(context.Background(), []byte("def f():\n    pass\n"), "python")
		done <- err
	}()
	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

func TestExtractTypeScriptArrowFunction(t *testing.T) {
	a := NewAnalyser()
	defer a.Close()

	src := []byte("const handler = (req: Request) => {\n  return req;\n};\n")
	tree, err := a.Parse(context.Background(), src, "typescript")
	require.NoError(t, err)

	symbols := NewExtractor().Extract(tree)
	require.NotEmpty(t, symbols)
	require.Equal(t, "handler", symbols[0].Name)
}

func TestRegistryExtensionLookup(t *testing.T) {
	r := Default()
	g, ok := r.ByExtension(".rs")
	require.True(t, ok)
	require.Equal(t, "rust", g.Name)

	g, ok = r.ByExtension("go")
	require.True(t, ok)
	require.Equal(t, "go", g.Name)
}
