package user

import "time"

// DietaryProfile holds a user's dietary flags and allergy tags. Rows are
// owned by account management; this service only reads them. A missing
// profile behaves as the zero value: no restrictions.
type DietaryProfile struct {
	UserID       int      `db:"user_id" json:"user_id"`
	IsVegetarian bool     `db:"is_vegetarian" json:"is_vegetarian"`
	IsVegan      bool     `db:"is_vegan" json:"is_vegan"`
	IsGlutenFree bool     `db:"is_gluten_free" json:"is_gluten_free"`
	IsDairyFree  bool     `db:"is_dairy_free" json:"is_dairy_free"`
	IsNutFree    bool     `db:"is_nut_free" json:"is_nut_free"`
	IsHalal      bool     `db:"is_halal" json:"is_halal"`
	IsKosher     bool     `db:"is_kosher" json:"is_kosher"`
	Allergies    []string `json:"allergies"`
}

// Preference is a learned (user, ingredient) affinity in [0,1].
type Preference struct {
	UserID           int       `db:"user_id" json:"user_id"`
	Ingredient       string    `db:"ingredient" json:"ingredient"`
	Score            float64   `db:"score" json:"score"`
	InteractionCount int       `db:"interaction_count" json:"interaction_count"`
	LastUpdated      time.Time `db:"last_updated" json:"last_updated"`
}

// HistoryEntry records a recipe view, optionally marked cooked later.
type HistoryEntry struct {
	ID                  int64      `db:"id" json:"id"`
	UserID              int        `db:"user_id" json:"user_id"`
	RecipeID            int        `db:"recipe_id" json:"recipe_id"`
	ViewedAt            time.Time  `db:"viewed_at" json:"viewed_at"`
	Cooked              bool       `db:"cooked" json:"cooked"`
	CookedAt            *time.Time `db:"cooked_at" json:"cooked_at,omitempty"`
	DetectedIngredients []string   `json:"detected_ingredients"`
}

// Rating is a star rating with an optional review, unique per (user, recipe).
type Rating struct {
	UserID    int       `db:"user_id" json:"user_id"`
	RecipeID  int       `db:"recipe_id" json:"recipe_id"`
	Stars     int       `db:"stars" json:"stars"`
	Review    string    `db:"review" json:"review"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
