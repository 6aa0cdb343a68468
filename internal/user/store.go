package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Preference learning constants. Views only move the score once a user has
// interacted with the ingredient a few times; cooking bypasses that gate.
const (
	DefaultScore    = 0.6
	LearningRate    = 0.1
	MinInteractions = 3
	CookBoost       = 0.2
)

// Store persists preferences, history, ratings, favorites, and reads dietary
// profiles. All writes are best-effort telemetry: a failure surfaces as a
// recoverable error and never corrupts previously returned data.
type Store interface {
	GetProfile(ctx context.Context, userID int) (*DietaryProfile, error)
	GetPreferences(ctx context.Context, userID int) (map[string]float64, error)
	ListPreferences(ctx context.Context, userID int) ([]Preference, error)
	UpsertPreferences(ctx context.Context, userID int, ingredients []string) error
	BoostPreferences(ctx context.Context, userID int, ingredients []string) error
	AppendView(ctx context.Context, userID, recipeID int, detected []string) error
	MarkCooked(ctx context.Context, userID, recipeID int) (bool, error)
	LastViewed(ctx context.Context, userID int) (map[int]time.Time, error)
	GetFavorites(ctx context.Context, userID int) (map[int]bool, error)
	ToggleFavorite(ctx context.Context, userID, recipeID int) (bool, error)
	GetRatings(ctx context.Context, userID int) (map[int]int, error)
	UpsertRating(ctx context.Context, r *Rating) error
	GetRating(ctx context.Context, userID, recipeID int) (*Rating, error)
	AverageRating(ctx context.Context, recipeID int) (float64, error)
}

// PostgresStore implements Store for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStoreFromDB wraps an existing connection pool and bootstraps
// the interaction tables.
func NewPostgresStoreFromDB(db *sqlx.DB) (*PostgresStore, error) {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id INTEGER PRIMARY KEY,
			is_vegetarian BOOLEAN NOT NULL DEFAULT FALSE,
			is_vegan BOOLEAN NOT NULL DEFAULT FALSE,
			is_gluten_free BOOLEAN NOT NULL DEFAULT FALSE,
			is_dairy_free BOOLEAN NOT NULL DEFAULT FALSE,
			is_nut_free BOOLEAN NOT NULL DEFAULT FALSE,
			is_halal BOOLEAN NOT NULL DEFAULT FALSE,
			is_kosher BOOLEAN NOT NULL DEFAULT FALSE,
			allergies JSONB NOT NULL DEFAULT '[]'
		);`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id INTEGER NOT NULL,
			ingredient TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL DEFAULT 0.6,
			interaction_count INTEGER NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, ingredient)
		);`,
		`CREATE TABLE IF NOT EXISTS recipe_history (
			id BIGSERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			recipe_id INTEGER NOT NULL,
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			cooked BOOLEAN NOT NULL DEFAULT FALSE,
			cooked_at TIMESTAMPTZ,
			detected_ingredients JSONB NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recipe_history_user ON recipe_history (user_id, recipe_id, viewed_at DESC);`,
		`CREATE TABLE IF NOT EXISTS recipe_ratings (
			user_id INTEGER NOT NULL,
			recipe_id INTEGER NOT NULL,
			stars INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
			review TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, recipe_id)
		);`,
		`CREATE TABLE IF NOT EXISTS recipe_favorites (
			user_id INTEGER NOT NULL,
			recipe_id INTEGER NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, recipe_id)
		);`,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return nil, fmt.Errorf("failed to create interaction tables: %w", err)
		}
	}
	return &PostgresStore{db: db}, nil
}

// GetProfile reads a user's dietary profile. A missing row returns (nil, nil):
// the caller treats that as no restrictions.
func (s *PostgresStore) GetProfile(ctx context.Context, userID int) (*DietaryProfile, error) {
	var p DietaryProfile
	var allergiesJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, is_vegetarian, is_vegan, is_gluten_free, is_dairy_free,
		        is_nut_free, is_halal, is_kosher, allergies
		 FROM user_profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.IsVegetarian, &p.IsVegan, &p.IsGlutenFree, &p.IsDairyFree,
		&p.IsNutFree, &p.IsHalal, &p.IsKosher, &allergiesJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile for user %d: %w", userID, err)
	}
	if err := json.Unmarshal(allergiesJSON, &p.Allergies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allergies: %w", err)
	}
	return &p, nil
}

// GetPreferences returns the user's learned ingredient scores.
func (s *PostgresStore) GetPreferences(ctx context.Context, userID int) (map[string]float64, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT ingredient, score FROM user_preferences WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences for user %d: %w", userID, err)
	}
	defer rows.Close()

	prefs := make(map[string]float64)
	for rows.Next() {
		var ingredient string
		var score float64
		if err := rows.Scan(&ingredient, &score); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs[ingredient] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prefs, nil
}

// ListPreferences returns full preference records, highest score first.
func (s *PostgresStore) ListPreferences(ctx context.Context, userID int) ([]Preference, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT user_id, ingredient, score, interaction_count, last_updated
		 FROM user_preferences WHERE user_id = $1 ORDER BY score DESC, ingredient`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences for user %d: %w", userID, err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.UserID, &p.Ingredient, &p.Score, &p.InteractionCount, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prefs, nil
}

// UpsertPreferences applies the view-interaction rule to each ingredient.
// The whole read-modify-write runs inside one statement so concurrent views
// of the same ingredient never lose an increment. The score only starts
// adapting once interaction_count reaches MinInteractions, and approaches
// 1.0 with diminishing steps.
func (s *PostgresStore) UpsertPreferences(ctx context.Context, userID int, ingredients []string) error {
	const q = `
	INSERT INTO user_preferences (user_id, ingredient, score, interaction_count, last_updated)
	VALUES ($1, $2, $3, 1, NOW())
	ON CONFLICT (user_id, ingredient) DO UPDATE SET
		interaction_count = user_preferences.interaction_count + 1,
		score = CASE
			WHEN user_preferences.interaction_count + 1 >= $4
			THEN LEAST(1.0, user_preferences.score + $5 * (1.0 - user_preferences.score))
			ELSE user_preferences.score
		END,
		last_updated = NOW()`

	for _, ingredient := range ingredients {
		if _, err := s.db.ExecContext(ctx, q, userID, ingredient, DefaultScore, MinInteractions, LearningRate); err != nil {
			return fmt.Errorf("failed to upsert preference %q for user %d: %w", ingredient, userID, err)
		}
	}
	return nil
}

// BoostPreferences applies the cook-boost to existing preference records:
// +0.2 capped at 1.0, interaction_count +2, no minimum-interaction gate.
// Ingredients the user has never interacted with are left untouched.
func (s *PostgresStore) BoostPreferences(ctx context.Context, userID int, ingredients []string) error {
	const q = `
	UPDATE user_preferences SET
		score = LEAST(1.0, score + $3),
		interaction_count = interaction_count + 2,
		last_updated = NOW()
	WHERE user_id = $1 AND ingredient = $2`

	for _, ingredient := range ingredients {
		if _, err := s.db.ExecContext(ctx, q, userID, ingredient, CookBoost); err != nil {
			return fmt.Errorf("failed to boost preference %q for user %d: %w", ingredient, userID, err)
		}
	}
	return nil
}

// AppendView records that a recipe was shown to the user.
func (s *PostgresStore) AppendView(ctx context.Context, userID, recipeID int, detected []string) error {
	detectedJSON, err := json.Marshal(detected)
	if err != nil {
		return fmt.Errorf("failed to marshal detected ingredients: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipe_history (user_id, recipe_id, detected_ingredients) VALUES ($1, $2, $3)`,
		userID, recipeID, detectedJSON)
	if err != nil {
		return fmt.Errorf("failed to append history for user %d: %w", userID, err)
	}
	return nil
}

// MarkCooked flags the most recent view of the recipe as cooked. Returns
// false when the user has no history for the recipe.
func (s *PostgresStore) MarkCooked(ctx context.Context, userID, recipeID int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipe_history SET cooked = TRUE, cooked_at = NOW()
		 WHERE id = (
			SELECT id FROM recipe_history
			WHERE user_id = $1 AND recipe_id = $2
			ORDER BY viewed_at DESC LIMIT 1
		 )`, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to mark recipe %d cooked for user %d: %w", recipeID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// LastViewed returns the most recent view time per recipe for the user.
func (s *PostgresStore) LastViewed(ctx context.Context, userID int) (map[int]time.Time, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT recipe_id, MAX(viewed_at) FROM recipe_history WHERE user_id = $1 GROUP BY recipe_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for user %d: %w", userID, err)
	}
	defer rows.Close()

	viewed := make(map[int]time.Time)
	for rows.Next() {
		var recipeID int
		var at time.Time
		if err := rows.Scan(&recipeID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		viewed[recipeID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return viewed, nil
}

// GetFavorites returns the set of recipe ids the user has favorited.
func (s *PostgresStore) GetFavorites(ctx context.Context, userID int) (map[int]bool, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT recipe_id FROM recipe_favorites WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites for user %d: %w", userID, err)
	}
	defer rows.Close()

	favorites := make(map[int]bool)
	for rows.Next() {
		var recipeID int
		if err := rows.Scan(&recipeID); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		favorites[recipeID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return favorites, nil
}

// ToggleFavorite flips favorite membership and returns the new state.
func (s *PostgresStore) ToggleFavorite(ctx context.Context, userID, recipeID int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM recipe_favorites WHERE user_id = $1 AND recipe_id = $2", userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return false, nil // Was a favorite, now removed
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipe_favorites (user_id, recipe_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, recipe_id) DO NOTHING`, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return true, nil
}

// GetRatings returns the user's star ratings keyed by recipe id.
func (s *PostgresStore) GetRatings(ctx context.Context, userID int) (map[int]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT recipe_id, stars FROM recipe_ratings WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings for user %d: %w", userID, err)
	}
	defer rows.Close()

	ratings := make(map[int]int)
	for rows.Next() {
		var recipeID, stars int
		if err := rows.Scan(&recipeID, &stars); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings[recipeID] = stars
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ratings, nil
}

// UpsertRating stores a rating; the latest value per (user, recipe) wins.
func (s *PostgresStore) UpsertRating(ctx context.Context, r *Rating) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipe_ratings (user_id, recipe_id, stars, review)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, recipe_id) DO UPDATE SET
			stars = $3, review = $4, updated_at = NOW()`,
		r.UserID, r.RecipeID, r.Stars, r.Review)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// GetRating retrieves one rating; a miss returns (nil, nil).
func (s *PostgresStore) GetRating(ctx context.Context, userID, recipeID int) (*Rating, error) {
	var r Rating
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, recipe_id, stars, review, created_at, updated_at
		 FROM recipe_ratings WHERE user_id = $1 AND recipe_id = $2`,
		userID, recipeID).Scan(&r.UserID, &r.RecipeID, &r.Stars, &r.Review, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &r, nil
}

// AverageRating returns the mean stars across all users, 0 when unrated.
func (s *PostgresStore) AverageRating(ctx context.Context, recipeID int) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT AVG(stars) FROM recipe_ratings WHERE recipe_id = $1", recipeID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to get average rating for recipe %d: %w", recipeID, err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
