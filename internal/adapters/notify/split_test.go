package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := "aaaa\nbbbb\ncccc\n"
	chunks := splitMessage(text, 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))

	long := strings.Repeat("x", 25)
	chunks = splitMessage(long, 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, chunks)
}
