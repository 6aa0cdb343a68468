package recipe

import "sort"

// PopularIngredients backs the matcher's backfill: when a query matches fewer
// than topN recipes, recipes containing any of these pad out the result.
var PopularIngredients = []string{"Chicken", "Beef", "Egg", "Tomato", "Bread"}

const (
	matchPoints            = 10.0
	multiMatchBonus        = 5.0
	extraIngredientPenalty = 0.5
)

// Match scores every corpus recipe against the query ingredients and returns
// up to topN recipe ids, best first. Deterministic given the corpus order.
//
// Scoring per recipe: +10 per query ingredient present, +5*matched when more
// than one matches, -0.5 per recipe ingredient outside the query. Recipes
// matching nothing are excluded from the genuine results; if fewer than topN
// qualify, popular-ingredient recipes are appended in corpus order.
func Match(corpus []Recipe, ingredients []string, topN int) []int {
	if topN <= 0 {
		return nil
	}

	type scored struct {
		pos     int
		id      int
		score   float64
		matched int
	}

	ranked := make([]scored, 0, len(corpus))
	for pos, r := range corpus {
		set := r.IngredientSet()
		matched := 0
		for _, ing := range ingredients {
			if set[ing] {
				matched++
			}
		}

		score := float64(matched) * matchPoints
		if matched > 1 {
			score += float64(matched) * multiMatchBonus
		}
		score -= float64(len(r.Ingredients)-matched) * extraIngredientPenalty

		ranked = append(ranked, scored{pos: pos, id: r.ID, score: score, matched: matched})
	}

	// Score desc, matched desc, corpus order for ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].matched > ranked[j].matched
	})

	result := make([]int, 0, topN)
	selected := make(map[int]bool)
	for _, s := range ranked {
		if len(result) >= topN {
			break
		}
		if s.matched == 0 {
			continue
		}
		result = append(result, s.id)
		selected[s.id] = true
	}

	// Backfill with popular-ingredient recipes, corpus order.
	if len(result) < topN {
		for _, r := range corpus {
			if len(result) >= topN {
				break
			}
			if selected[r.ID] {
				continue
			}
			for _, ing := range PopularIngredients {
				if r.HasIngredient(ing) {
					result = append(result, r.ID)
					selected[r.ID] = true
					break
				}
			}
		}
	}

	return result
}

// Similar returns up to topN recipe ids ranked by Jaccard similarity of their
// ingredient sets against the given recipe. The recipe itself is excluded.
func Similar(corpus []Recipe, id int, topN int) []int {
	var ref *Recipe
	for i := range corpus {
		if corpus[i].ID == id {
			ref = &corpus[i]
			break
		}
	}
	if ref == nil || topN <= 0 {
		return nil
	}
	refSet := ref.IngredientSet()

	type scored struct {
		id         int
		similarity float64
	}
	var ranked []scored
	for _, r := range corpus {
		if r.ID == id {
			continue
		}
		intersection := 0
		for _, ing := range r.Ingredients {
			if refSet[ing] {
				intersection++
			}
		}
		union := len(refSet) + len(r.Ingredients) - intersection
		if union == 0 {
			continue
		}
		ranked = append(ranked, scored{id: r.ID, similarity: float64(intersection) / float64(union)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].similarity > ranked[j].similarity
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	ids := make([]int, len(ranked))
	for i, s := range ranked {
		ids[i] = s.id
	}
	return ids
}
