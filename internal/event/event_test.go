package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeID("AbC123"))
	assert.Equal(t, "abc123", NormalizeID("  abc123\r"))
	assert.Equal(t, NormalizeID("C1"), Event{ID: "c1"}.Key())
}

func TestAuthorName(t *testing.T) {
	name, ok := Event{Author: Author("alice")}.AuthorName()
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = Event{}.AuthorName()
	assert.False(t, ok)
}

func TestMatchResultEmpty(t *testing.T) {
	assert.True(t, MatchResult(nil).Empty())
	assert.False(t, MatchResult{"x"}.Empty())
}
