package recipe

import "fmt"

// Recipe is one row of the corpus. The corpus is created by an external
// generation process and never mutated here.
type Recipe struct {
	ID           int      `json:"recipe_id" db:"recipe_id"`
	Name         string   `json:"name" db:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags"`
}

// DocKey returns the zero-padded document key the corpus generator used for
// recipe JSON and image file names, e.g. "food00042".
func DocKey(id int) string {
	return fmt.Sprintf("food%05d", id)
}

// HasIngredient reports whether the recipe contains the named ingredient.
func (r *Recipe) HasIngredient(name string) bool {
	for _, ing := range r.Ingredients {
		if ing == name {
			return true
		}
	}
	return false
}

// IngredientSet returns the recipe's ingredients as a lookup set.
func (r *Recipe) IngredientSet() map[string]bool {
	set := make(map[string]bool, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		set[ing] = true
	}
	return set
}
