package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlobExactWithoutWildcard(t *testing.T) {
	assert.True(t, matchGlob("main.go", "main.go"))
	assert.False(t, matchGlob("main.go", "other.go"))
}

func TestMatchGlobWildcardMatchesSubstring(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "main.goo", false},
		{"internal/*", "internal/retriever/literal.go", true},
		{"*test*", "literal_test.go", true},
		{"*test*", "literal.go", false},
		{"*", "anything", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, matchGlob(c.pattern, c.s), "pattern=%q s=%q", c.pattern, c.s)
	}
}
