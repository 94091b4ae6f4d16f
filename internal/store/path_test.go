package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath(t *testing.T) {
	doc := Doc("users", "u1", "showcases", "sc1")

	assert.True(t, doc.IsDocument())
	assert.False(t, doc.IsCollection())
	assert.Equal(t, "sc1", doc.ID())
	assert.Equal(t, Collection("users", "u1", "showcases"), doc.Parent())
	assert.Equal(t, "showcases", doc.CollectionID())
	assert.Equal(t, "users", doc.Root())
	assert.Equal(t, doc, doc.Parent().Child("sc1"))
}

func TestPath_Invalid(t *testing.T) {
	for _, p := range []Path{"", "a//b", "/a", "a/"} {
		assert.False(t, p.Valid(), "%q", p)
		assert.False(t, p.IsDocument(), "%q", p)
		assert.False(t, p.IsCollection(), "%q", p)
	}
}

func TestPath_HasDirectChild(t *testing.T) {
	col := Collection("publicShowcases")

	assert.True(t, col.HasDirectChild("publicShowcases/a"))
	assert.False(t, col.HasDirectChild("publicShowcases/a/likes/x"))
	assert.False(t, col.HasDirectChild("publicShowcasesOld/a"))
	assert.False(t, col.HasDirectChild("publicShowcases/"))
}
