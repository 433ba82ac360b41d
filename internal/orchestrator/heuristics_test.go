package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconSentiment(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"The meeting is at noon.", 0},
		{"I love this amazing gallery!", 1},
		{"This is great.", 0.5},
		{"I'm sad and frustrated about the breach", -1},
		{"This is not good", -0.5},
		{"good but bad", 0},
		{"good good good bad", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, LexiconSentiment(tt.text), 1e-9)
		})
	}
}

func TestKeywordTopic(t *testing.T) {
	assert.Equal(t, "general", KeywordTopic(""))
	assert.Equal(t, "general", KeywordTopic("I love it!"))
	assert.Equal(t, "midnight", KeywordTopic("Tell me about Midnight"))
	assert.Equal(t, "art", KeywordTopic("the gallery has art, so much art"))
	assert.Equal(t, "zero", KeywordTopic("zero knowledge proofs, proofs everywhere, zero"), "earliest wins ties")
}

func TestImportancePredicates(t *testing.T) {
	ok, _ := NeverImportant("a", "b", 1)
	assert.False(t, ok)

	f := SentimentMagnitude(0.5, 0.9)
	ok, imp := f("a", "b", -0.6)
	assert.True(t, ok)
	assert.Equal(t, 0.9, imp)
	ok, _ = f("a", "b", 0.49)
	assert.False(t, ok)

	ok, _ = SentimentMagnitude(-1, 0.7)("a", "b", 1)
	assert.False(t, ok)
}
