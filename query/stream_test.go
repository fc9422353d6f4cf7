package query

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream_SingleUse(t *testing.T) {
	s := NewStream(slices.Values([]int{1, 2, 3}))
	assert.False(t, s.Consumed())

	assert.Equal(t, []int{1, 2, 3}, s.Collect())
	assert.True(t, s.Consumed())
	assert.Empty(t, s.Collect(), "second iteration yields nothing")
}

func TestStream_EarlyBreakStillConsumes(t *testing.T) {
	s := NewStream(slices.Values([]string{"a", "b"}))
	for range s.All() {
		break
	}
	assert.True(t, s.Consumed())
	assert.Empty(t, s.Collect())
}

func TestStream_NilSequence(t *testing.T) {
	s := NewStream[int](nil)
	assert.Empty(t, s.Collect())
	assert.True(t, s.Consumed())
}
