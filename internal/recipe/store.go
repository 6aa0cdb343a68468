package recipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore reads the recipe corpus from PostgreSQL. The corpus is owned
// by an external generation process; this service only reads it.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStoreFromDB wraps an existing connection, letting the corpus
// store share the pool with the interaction stores, and ensures the recipes
// table exists. The table is normally populated by the corpus import job;
// creating it here keeps fresh environments bootable.
func NewPostgresStoreFromDB(db *sqlx.DB) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		recipe_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		ingredients JSONB NOT NULL DEFAULT '[]',
		instructions JSONB NOT NULL DEFAULT '[]',
		tags JSONB NOT NULL DEFAULT '[]'
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create recipes table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// ListRecipes scans the full corpus in recipe_id order. The corpus is small
// (well under 10^4 rows), so callers load it once and match in memory.
func (s *PostgresStore) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT recipe_id, name, ingredients, instructions, tags FROM recipes ORDER BY recipe_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var r Recipe
		var ingredientsJSON, instructionsJSON, tagsJSON []byte
		if err := rows.Scan(&r.ID, &r.Name, &ingredientsJSON, &instructionsJSON, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		if err := json.Unmarshal(ingredientsJSON, &r.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
		if err := json.Unmarshal(instructionsJSON, &r.Instructions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instructions: %w", err)
		}
		if err := json.Unmarshal(tagsJSON, &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return recipes, nil
}
