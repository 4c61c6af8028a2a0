// Package sentiment scores text polarity with a financial-news keyword
// lexicon. Scores are compound values in [-1, 1]: the balance of positive
// versus negative lexicon hits over the total hits. Text with no hits
// scores 0.
package sentiment

import "strings"

var positiveWords = []string{
	"gain", "gains", "rise", "rises", "rally", "surge", "soar", "record",
	"positive", "strong", "growth", "profit", "profits", "beat", "beats",
	"exceed", "exceeds", "upbeat", "bullish", "boost", "boosts", "jump",
	"recovery", "recover", "upgrade", "outperform", "optimism", "improve",
	"improves", "expansion", "breakthrough", "approval", "approved", "win",
	"wins", "success", "benefit", "benefits", "eases", "relief", "support",
}

var negativeWords = []string{
	"fall", "falls", "drop", "drops", "plunge", "slump", "crash", "tumble",
	"negative", "weak", "loss", "losses", "miss", "misses", "below",
	"decline", "declines", "bearish", "cut", "cuts", "downgrade", "fear",
	"fears", "concern", "concerns", "risk", "risks", "warning", "warns",
	"penalty", "fine", "fines", "probe", "fraud", "default", "recession",
	"inflationary", "layoff", "layoffs", "ban", "bans", "sanction", "crisis",
}

const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Score computes the compound sentiment of text in [-1, 1].
func Score(text string) float64 {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})

	counts := make(map[string]int, len(fields))
	for _, f := range fields {
		counts[f]++
	}

	var pos, neg int
	for _, w := range positiveWords {
		pos += counts[w]
	}
	for _, w := range negativeWords {
		neg += counts[w]
	}

	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// Classify maps a compound score to an impact label: positive above 0.05,
// negative below -0.05, moderate otherwise.
func Classify(score float64) string {
	switch {
	case score > positiveThreshold:
		return "positive"
	case score < negativeThreshold:
		return "negative"
	default:
		return "moderate"
	}
}
