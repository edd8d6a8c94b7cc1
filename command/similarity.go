package command

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// SuggestThreshold is the minimum similarity for a "did you mean" reply.
const SuggestThreshold = 0.8

var dice = metrics.NewSorensenDice()

// Similarity is the bigram Sørensen–Dice coefficient of a and b.
func Similarity(a, b string) float64 {
	return strutil.Similarity(a, b, dice)
}

// Scores computes the similarity of input to every candidate.
func Scores(input string, candidates []string) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c] = Similarity(input, c)
	}
	return scores
}

// Suggest returns the candidate most similar to input when its score reaches
// threshold. Ties go to the earlier candidate.
func Suggest(input string, candidates []string, threshold float64) (string, bool) {
	scores := Scores(input, candidates)

	best, bestScore := "", -1.0
	for _, c := range candidates {
		if s := scores[c]; s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == "" || bestScore < threshold {
		return "", false
	}
	return best, true
}
