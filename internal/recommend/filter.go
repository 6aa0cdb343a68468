package recommend

import (
	"pic2kitchen/internal/recipe"
	"pic2kitchen/internal/user"
)

// Disqualifying ingredient sets per dietary flag. A recipe fails a flag as
// soon as any listed ingredient is present.
var (
	vegetarianExcluded = []string{
		"Beef", "Pork", "Chicken", "Seafood", "Shrimp", "Lobster",
		"Crab", "Squid", "Oyster", "Tuna", "Salmon",
	}
	veganExcluded = append(append([]string(nil), vegetarianExcluded...), "Egg")
	kosherExcluded = []string{
		"Pork", "Seafood", "Shrimp", "Lobster", "Crab", "Squid", "Oyster",
	}
	glutenFreeExcluded = []string{"Bread"}
	halalExcluded      = []string{"Pork"}
)

// allergyExcluded maps allergy tags from the profile vocabulary to the
// ingredients they rule out. Unknown tags are ignored.
var allergyExcluded = map[string][]string{
	"eggs":      {"Egg"},
	"fish":      {"Tuna", "Salmon"},
	"shellfish": {"Shrimp", "Lobster", "Crab", "Oyster"},
	"seafood":   {"Seafood", "Shrimp", "Lobster", "Crab", "Squid", "Oyster", "Tuna", "Salmon"},
}

// IsCompatible reports whether the recipe satisfies the user's dietary flags
// and allergies. A nil profile means no restrictions, and a recipe with no
// ingredient data passes: the filter fails open rather than starving the
// recommendation pipeline.
func IsCompatible(r *recipe.Recipe, profile *user.DietaryProfile) bool {
	if profile == nil {
		return true
	}
	if r == nil || len(r.Ingredients) == 0 {
		return true
	}
	set := r.IngredientSet()

	if profile.IsVegetarian && containsAny(set, vegetarianExcluded) {
		return false
	}
	if profile.IsVegan && containsAny(set, veganExcluded) {
		return false
	}
	if profile.IsHalal && containsAny(set, halalExcluded) {
		return false
	}
	if profile.IsKosher && containsAny(set, kosherExcluded) {
		return false
	}
	if profile.IsGlutenFree && containsAny(set, glutenFreeExcluded) {
		return false
	}

	for _, allergy := range profile.Allergies {
		if excluded, ok := allergyExcluded[allergy]; ok && containsAny(set, excluded) {
			return false
		}
	}

	return true
}

func containsAny(set map[string]bool, names []string) bool {
	for _, name := range names {
		if set[name] {
			return true
		}
	}
	return false
}
