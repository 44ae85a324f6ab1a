package vectorstore

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPointIDIsDeterministic(t *testing.T) {
	a := PointID("internal/foo.go", 10, 20, "func Foo() {}")
	b := PointID("internal/foo.go", 10, 20, "func Foo() {}")
	assert.Equal(t, a, b)
}

func TestPointIDChangesWithAnyField(t *testing.T) {
	base := PointID("internal/foo.go", 10, 20, "func Foo() {}")

	assert.NotEqual(t, base, PointID("internal/bar.go", 10, 20, "func Foo() {}"))
	assert.NotEqual(t, base, PointID("internal/foo.go", 11, 20, "func Foo() {}"))
	assert.NotEqual(t, base, PointID("internal/foo.go", 10, 21, "func Foo() {}"))
	assert.NotEqual(t, base, PointID("internal/foo.go", 10, 20, "func Foo() { return }"))
}

func TestPointIDMatchesUUIDShape(t *testing.T) {
	id := PointID("internal/foo.go", 10, 20, "func Foo() {}")
	assert.True(t, uuidShape.MatchString(id), "got %q", id)
}
