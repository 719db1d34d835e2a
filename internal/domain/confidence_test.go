package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceLadder_Tier(t *testing.T) {
	l := DefaultLadder()

	cases := map[int]int{
		0: 0, 1: 0, 2: 1, 3: 1, 4: 1,
		5: 2, 9: 2, 10: 3, 19: 3, 20: 4, 49: 4, 50: 5, 500: 5,
	}
	for count, want := range cases {
		assert.Equal(t, want, l.Tier(count), "count=%d", count)
	}
}

func TestConfidenceLadder_CustomCuts(t *testing.T) {
	l := ConfidenceLadder{3, 4, 6, 8, 12}
	assert.Equal(t, 0, l.Tier(2))
	assert.Equal(t, 2, l.Tier(5))
	assert.Equal(t, 5, l.Tier(12))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "", Stars(0))
	assert.Equal(t, "★", Stars(1))
	assert.Equal(t, "★★★★★", Stars(5))
}
