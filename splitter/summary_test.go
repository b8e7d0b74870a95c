package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeShortTextPassesThrough(t *testing.T) {
	text := "First point. Second point."
	assert.Equal(t, text, Summarize(text, 3))
}

func TestSummarizeSelectsInOriginalOrder(t *testing.T) {
	text := strings.Join([]string{
		"Billing exports run nightly and cover every billing account.",
		"The weather was nice.",
		"Exports land in the billing bucket as compressed billing files.",
		"Someone mentioned lunch.",
		"Operators replay failed billing exports from the billing console.",
	}, " ")

	summary := Summarize(text, 2)
	sentences := splitSentences(summary)
	assert.Len(t, sentences, 2)

	// Whatever is selected must keep document order.
	var positions []int
	for _, s := range sentences {
		positions = append(positions, strings.Index(text, s))
	}
	for i := 1; i < len(positions); i++ {
		assert.Greater(t, positions[i], positions[i-1])
	}

	// The off-topic filler should lose to the recurring subject.
	assert.NotContains(t, summary, "lunch")
	assert.NotContains(t, summary, "weather")
}

func TestSummarizeEmptyInput(t *testing.T) {
	assert.Equal(t, "", Summarize("", 3))
	assert.Equal(t, "", Summarize("   \n ", 3))
}
