// Package keymap maps track positions to the logical keyboard keys that
// control them. Digits 0-9 and letters A-T give 30 keys, one per racer.
package keymap

import "strings"

// MaxPlayers is the number of mapped keys and the roster slot ceiling.
const MaxPlayers = 30

var playerKeys = []string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
	"K", "L", "M", "N", "O", "P", "Q", "R", "S", "T",
}

// KeyForPosition returns the logical key controlling the given track slot,
// or false when the slot has no mapped key.
func KeyForPosition(position int) (string, bool) {
	if position < 0 || position >= len(playerKeys) {
		return "", false
	}
	return playerKeys[position], true
}

// PositionForKey returns the track slot controlled by the given key, or -1.
func PositionForKey(key string) int {
	normalized := strings.ToUpper(key)
	for i, k := range playerKeys {
		if k == normalized {
			return i
		}
	}
	return -1
}

// Keys returns all mapped keys in slot order.
func Keys() []string {
	out := make([]string, len(playerKeys))
	copy(out, playerKeys)
	return out
}
