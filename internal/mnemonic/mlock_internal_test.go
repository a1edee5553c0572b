package mnemonic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMlock_Empty(t *testing.T) {
	t.Parallel()

	assert.False(t, mlock(nil))
	assert.False(t, mlock([]byte{}))
	munlock(nil)
}

func TestWipe(t *testing.T) {
	t.Parallel()

	seed := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	locked := mlock(seed)
	wipe(seed, locked)
	assert.Equal(t, make([]byte, 8), seed)
}
