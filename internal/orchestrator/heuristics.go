package orchestrator

import (
	"math"
	"strings"

	"github.com/Allreality/my-twin/internal/embedding"
	"github.com/Allreality/my-twin/internal/model"
)

// SentimentFunc scores text in [-1, 1].
type SentimentFunc func(text string) float64

// TopicFunc names what text is about.
type TopicFunc func(text string) string

// ImportanceFunc decides whether a completed turn becomes an episodic
// memory, and with what importance.
type ImportanceFunc func(input, response string, sentiment float64) (bool, float64)

// DefaultImportance is the importance of remembered turns.
const DefaultImportance = 0.7

// NeverImportant keeps no turn as a long-term memory.
func NeverImportant(string, string, float64) (bool, float64) { return false, 0 }

// SentimentMagnitude remembers turns whose sentiment magnitude is at least
// min, with the given importance. A negative min disables it.
func SentimentMagnitude(min, importance float64) ImportanceFunc {
	return func(_, _ string, sentiment float64) (bool, float64) {
		if min < 0 {
			return false, 0
		}
		return math.Abs(sentiment) >= min, importance
	}
}

// LexiconSentiment scores text by counting positive and negative words.
// A word directly after a negator flips polarity. The score is the net
// polarity scaled by how much evidence there is, saturating at two hits.
func LexiconSentiment(text string) float64 {
	var pos, neg float64
	negate := false
	for _, w := range embedding.Words(text) {
		if negators[w] {
			negate = true
			continue
		}
		p := lexicon[w]
		if negate {
			p = -p
			negate = false
		}
		switch {
		case p > 0:
			pos += p
		case p < 0:
			neg -= p
		}
	}
	hits := pos + neg
	if hits == 0 {
		return 0
	}
	return model.Clamp((pos-neg)/hits*math.Min(hits/2, 1), -1, 1)
}

// KeywordTopic returns the most frequent content word of text, preferring
// the earliest on ties and skipping sentiment words. Empty text is "general".
func KeywordTopic(text string) string {
	counts := map[string]int{}
	var order []string
	for _, w := range embedding.Words(text) {
		if negators[w] || lexicon[w] != 0 || fillers[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	best := ""
	for _, w := range order {
		if best == "" || counts[w] > counts[best] {
			best = w
		}
	}
	if best == "" {
		return "general"
	}
	return best
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "doesn't": true,
	"didn't": true, "isn't": true, "wasn't": true, "can't": true, "won't": true,
}

var fillers = map[string]bool{
	"tell": true, "know": true, "think": true, "really": true, "very": true,
	"some": true, "any": true, "would": true, "could": true, "should": true,
	"been": true, "more": true, "much": true, "like": true, "want": true,
	"please": true, "thanks": true, "hi": true, "hello": true, "hey": true,
	"let's": true, "let": true, "us": true, "all": true, "if": true, "then": true,
}

func init() {
	for _, w := range strings.Fields(positiveWords) {
		lexicon[w] = 1
	}
	for _, w := range strings.Fields(negativeWords) {
		lexicon[w] = -1
	}
}

var lexicon = map[string]float64{}

const positiveWords = `
good great excellent amazing awesome wonderful fantastic love loved loving lovely
like liked happy glad joy joyful excited exciting thrilled delighted pleased
beautiful brilliant perfect nice cool fun enjoy enjoyed enjoying impressive
incredible inspiring inspired grateful thankful thank proud hopeful success
successful win won best better fascinating interesting elegant calm relieved
`

const negativeWords = `
bad terrible awful horrible hate hated sad unhappy angry upset annoyed
frustrated frustrating disappointed disappointing worried worry anxious afraid
scared fear painful hurt broke broken fail failed failure lost lose loss worst
worse problem problems wrong stressed stress tired bored boring ugly sorry
difficult hard crash crashed bug bugs attack breach hacked stolen
`
