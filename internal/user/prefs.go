package user

import "math"

// The functions below define the preference update rule in one place. The
// Postgres store applies the same arithmetic inside a single-statement upsert
// so concurrent interactions never lose increments; in-memory stores and
// tests use these directly.

// NextViewScore returns the score after one more view interaction, where
// newCount is the interaction count including this view. Below the
// minimum-interaction threshold the score is left unchanged, which keeps a
// couple of stray views from inflating an ingredient. Past the threshold the
// score approaches 1.0 exponentially, slowing near the ceiling.
func NextViewScore(score float64, newCount int) float64 {
	if newCount < MinInteractions {
		return score
	}
	return math.Min(1.0, score+LearningRate*(1.0-score))
}

// BoostScore returns the score after a cooked event: a flat +0.2 capped at
// 1.0, with no interaction gate.
func BoostScore(score float64) float64 {
	return math.Min(1.0, score+CookBoost)
}

// ApplyView mutates a preference record for one view interaction.
func ApplyView(p *Preference) {
	p.InteractionCount++
	p.Score = NextViewScore(p.Score, p.InteractionCount)
}

// ApplyCookBoost mutates a preference record for one cooked event. Cooking
// counts double toward the interaction total.
func ApplyCookBoost(p *Preference) {
	p.InteractionCount += 2
	p.Score = BoostScore(p.Score)
}
