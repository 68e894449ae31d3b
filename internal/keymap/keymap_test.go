package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyForPosition(t *testing.T) {
	key, ok := KeyForPosition(0)
	assert.True(t, ok)
	assert.Equal(t, "0", key)

	key, ok = KeyForPosition(10)
	assert.True(t, ok)
	assert.Equal(t, "A", key)

	key, ok = KeyForPosition(29)
	assert.True(t, ok)
	assert.Equal(t, "T", key)

	_, ok = KeyForPosition(30)
	assert.False(t, ok, "slots beyond the roster ceiling have no key")
	_, ok = KeyForPosition(-1)
	assert.False(t, ok)
}

func TestPositionForKey(t *testing.T) {
	assert.Equal(t, 0, PositionForKey("0"))
	assert.Equal(t, 29, PositionForKey("T"))
	assert.Equal(t, 29, PositionForKey("t"), "lookup is case-insensitive")
	assert.Equal(t, -1, PositionForKey("U"))
	assert.Equal(t, -1, PositionForKey("Space"))
}

func TestEveryPositionHasUniqueKey(t *testing.T) {
	seen := make(map[string]bool)
	keys := Keys()
	assert.Len(t, keys, MaxPlayers)
	for i, k := range keys {
		assert.False(t, seen[k], "key %s mapped twice", k)
		seen[k] = true
		assert.Equal(t, i, PositionForKey(k))
	}
}
