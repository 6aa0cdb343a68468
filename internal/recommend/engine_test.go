package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"pic2kitchen/internal/recipe"
	"pic2kitchen/internal/user"
)

// mockUserStore is an in-memory user.Store applying the same update rules as
// the SQL store, guarded for the engine's concurrent side-effect writes.
type mockUserStore struct {
	mu        sync.Mutex
	prefs     map[string]*user.Preference // keyed by ingredient (single test user)
	views     []user.HistoryEntry
	favorites map[int]bool
	ratings   map[int]*user.Rating
	profile   *user.DietaryProfile

	failWrites bool
	writeErrs  int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		prefs:     make(map[string]*user.Preference),
		favorites: make(map[int]bool),
		ratings:   make(map[int]*user.Rating),
	}
}

func (m *mockUserStore) GetProfile(ctx context.Context, userID int) (*user.DietaryProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, nil
}

func (m *mockUserStore) GetPreferences(ctx context.Context, userID int) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.prefs))
	for ing, p := range m.prefs {
		out[ing] = p.Score
	}
	return out, nil
}

func (m *mockUserStore) ListPreferences(ctx context.Context, userID int) ([]user.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.Preference
	for _, p := range m.prefs {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockUserStore) UpsertPreferences(ctx context.Context, userID int, ingredients []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		m.writeErrs++
		return errors.New("storage unavailable")
	}
	for _, ing := range ingredients {
		if p, ok := m.prefs[ing]; ok {
			user.ApplyView(p)
		} else {
			m.prefs[ing] = &user.Preference{Ingredient: ing, Score: user.DefaultScore, InteractionCount: 1}
		}
	}
	return nil
}

func (m *mockUserStore) BoostPreferences(ctx context.Context, userID int, ingredients []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ing := range ingredients {
		if p, ok := m.prefs[ing]; ok {
			user.ApplyCookBoost(p)
		}
	}
	return nil
}

func (m *mockUserStore) AppendView(ctx context.Context, userID, recipeID int, detected []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		m.writeErrs++
		return errors.New("storage unavailable")
	}
	m.views = append(m.views, user.HistoryEntry{
		UserID: userID, RecipeID: recipeID, ViewedAt: time.Now(), DetectedIngredients: detected,
	})
	return nil
}

func (m *mockUserStore) MarkCooked(ctx context.Context, userID, recipeID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.views) - 1; i >= 0; i-- {
		if m.views[i].RecipeID == recipeID {
			m.views[i].Cooked = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserStore) LastViewed(ctx context.Context, userID int) (map[int]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]time.Time)
	for _, v := range m.views {
		if at, ok := out[v.RecipeID]; !ok || v.ViewedAt.After(at) {
			out[v.RecipeID] = v.ViewedAt
		}
	}
	return out, nil
}

func (m *mockUserStore) GetFavorites(ctx context.Context, userID int) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]bool, len(m.favorites))
	for id := range m.favorites {
		out[id] = true
	}
	return out, nil
}

func (m *mockUserStore) ToggleFavorite(ctx context.Context, userID, recipeID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.favorites[recipeID] {
		delete(m.favorites, recipeID)
		return false, nil
	}
	m.favorites[recipeID] = true
	return true, nil
}

func (m *mockUserStore) GetRatings(ctx context.Context, userID int) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]int, len(m.ratings))
	for id, r := range m.ratings {
		out[id] = r.Stars
	}
	return out, nil
}

func (m *mockUserStore) UpsertRating(ctx context.Context, r *user.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[r.RecipeID] = r
	return nil
}

func (m *mockUserStore) GetRating(ctx context.Context, userID, recipeID int) (*user.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratings[recipeID], nil
}

func (m *mockUserStore) AverageRating(ctx context.Context, recipeID int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ratings[recipeID]; ok {
		return float64(r.Stars), nil
	}
	return 0, nil
}

func engineCorpus() []recipe.Recipe {
	return []recipe.Recipe{
		{ID: 1, Name: "Chicken Mushroom Stir Fry", Ingredients: []string{"Chicken", "Mushroom"}},
		{ID: 2, Name: "Loaded Chicken Skillet", Ingredients: []string{"Chicken", "Mushroom", "Carrot", "Potato"}},
		{ID: 3, Name: "Tomato Egg Scramble", Ingredients: []string{"Tomato", "Egg"}},
		{ID: 4, Name: "Chicken Egg Rice Bowl", Ingredients: []string{"Chicken", "Egg"}},
		{ID: 5, Name: "Beef Sandwich", Ingredients: []string{"Beef", "Bread"}},
		{ID: 6, Name: "Tomato Mushroom Saute", Ingredients: []string{"Tomato", "Mushroom"}},
	}
}

func newTestEngine(store *mockUserStore) *Engine {
	return NewEngine(engineCorpus(), store, nil, zap.NewNop())
}

func TestRecommend_AnonymousPassesThroughBaseOrder(t *testing.T) {
	e := newTestEngine(newMockUserStore())

	got := e.Recommend(context.Background(), AnonymousUser, []string{"chicken", "mushroom"}, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)
}

func TestRecommend_FavoriteOutranksBaseOrder(t *testing.T) {
	store := newMockUserStore()
	store.favorites[2] = true
	e := newTestEngine(store)

	got := e.Recommend(context.Background(), 42, []string{"chicken", "mushroom"}, 2)
	assert.Len(t, got, 2)
	// Recipe 2 gains +0.8 from the favorite plus diversity, overtaking the
	// exact match.
	assert.Equal(t, 2, got[0].ID)
}

func TestRecommend_RecentlyViewedIsPenalized(t *testing.T) {
	store := newMockUserStore()
	store.views = append(store.views, user.HistoryEntry{
		UserID: 42, RecipeID: 1, ViewedAt: time.Now().Add(-24 * time.Hour),
	})
	e := newTestEngine(store)

	got := e.Recommend(context.Background(), 42, []string{"chicken", "mushroom"}, 6)
	// Recipe 1 loses 0.5 for the view a day ago and drops from first to
	// last; the rest order by diversity bonus with ties keeping base order
	// (base candidates: 1,2,4,6 then backfill 3,5).
	ids := make([]int, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []int{2, 3, 5, 4, 6, 1}, ids)
}

func TestRecommend_StaleViewSmallerPenalty(t *testing.T) {
	store := newMockUserStore()
	store.views = append(store.views, user.HistoryEntry{
		UserID: 42, RecipeID: 3, ViewedAt: time.Now().Add(-10 * 24 * time.Hour),
	})
	e := newTestEngine(store)

	detectedSet := map[string]bool{"Tomato": true, "Egg": true}
	signals := e.loadSignals(context.Background(), 42)
	score := e.scoreRecipe(e.RecipeByID(3), detectedSet, signals)
	// 1.0 base - 0.2 stale penalty, no other signals.
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestRecommend_OldViewNoPenalty(t *testing.T) {
	store := newMockUserStore()
	store.views = append(store.views, user.HistoryEntry{
		UserID: 42, RecipeID: 3, ViewedAt: time.Now().Add(-30 * 24 * time.Hour),
	})
	e := newTestEngine(store)

	signals := e.loadSignals(context.Background(), 42)
	score := e.scoreRecipe(e.RecipeByID(3), map[string]bool{"Tomato": true, "Egg": true}, signals)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestRecommend_RatingShiftsScore(t *testing.T) {
	store := newMockUserStore()
	store.ratings[3] = &user.Rating{RecipeID: 3, Stars: 5}
	store.ratings[4] = &user.Rating{RecipeID: 4, Stars: 1}
	e := newTestEngine(store)

	signals := e.loadSignals(context.Background(), 42)
	detected := map[string]bool{"Tomato": true, "Egg": true, "Chicken": true}
	loved := e.scoreRecipe(e.RecipeByID(3), detected, signals)
	hated := e.scoreRecipe(e.RecipeByID(4), detected, signals)
	assert.InDelta(t, 1.4, loved, 1e-9) // +0.2*(5-3)
	assert.InDelta(t, 0.6, hated, 1e-9) // +0.2*(1-3)
}

func TestRecommend_PreferenceScoresWeighIn(t *testing.T) {
	store := newMockUserStore()
	store.prefs["Chicken"] = &user.Preference{Ingredient: "Chicken", Score: 1.0, InteractionCount: 10}
	e := newTestEngine(store)

	signals := e.loadSignals(context.Background(), 42)
	detected := map[string]bool{"Chicken": true, "Mushroom": true}
	score := e.scoreRecipe(e.RecipeByID(1), detected, signals)
	// 1.0 base + 1.0*0.5 preference.
	assert.InDelta(t, 1.5, score, 1e-9)
}

func TestRecommend_VeganUserNeverSeesEgg(t *testing.T) {
	store := newMockUserStore()
	store.profile = &user.DietaryProfile{UserID: 42, IsVegan: true}
	// Push the egg recipes to the top.
	store.favorites[3] = true
	store.favorites[4] = true
	e := newTestEngine(store)

	got := e.Recommend(context.Background(), 42, []string{"egg", "tomato", "chicken"}, 5)
	// The egg recipes topped the base match but are pruned, not replaced;
	// only the vegan-compatible recipe survives.
	assert.Len(t, got, 1)
	assert.Equal(t, 6, got[0].ID)
	for _, r := range got {
		assert.NotContains(t, r.Ingredients, "Egg", "recipe %d", r.ID)
		assert.NotContains(t, r.Ingredients, "Chicken", "recipe %d", r.ID)
	}
}

func TestRecommend_EmptyDetectionStillReturnsRecipes(t *testing.T) {
	e := newTestEngine(newMockUserStore())

	// Nothing resolves; the normalizer falls back to the default set, which
	// matches this corpus.
	got := e.Recommend(context.Background(), AnonymousUser, []string{"traffic light", "bench"}, 3)
	assert.Len(t, got, 3)
}

func TestRecommend_RecordsInteractionSideEffects(t *testing.T) {
	store := newMockUserStore()
	e := newTestEngine(store)

	got := e.Recommend(context.Background(), 42, []string{"chicken"}, 2)
	assert.NotEmpty(t, got)

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.prefs["Chicken"] != nil && len(store.views) == len(got)
	}, time.Second, 10*time.Millisecond)
}

func TestRecommend_WriteFailuresDoNotAffectResults(t *testing.T) {
	store := newMockUserStore()
	store.failWrites = true
	e := newTestEngine(store)

	got := e.Recommend(context.Background(), 42, []string{"chicken", "mushroom"}, 2)
	assert.Len(t, got, 2)

	// One retry per write, then the update is dropped.
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.writeErrs >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestMarkCooked_BoostsRecipeIngredients(t *testing.T) {
	store := newMockUserStore()
	store.prefs["Chicken"] = &user.Preference{Ingredient: "Chicken", Score: 0.9, InteractionCount: 3}
	store.views = append(store.views, user.HistoryEntry{UserID: 42, RecipeID: 1, ViewedAt: time.Now()})
	e := newTestEngine(store)

	cooked, err := e.MarkCooked(context.Background(), 42, 1)
	assert.NoError(t, err)
	assert.True(t, cooked)

	// 0.9 + 0.2 caps at exactly 1.0, and cooking counts double.
	assert.InDelta(t, 1.0, store.prefs["Chicken"].Score, 1e-9)
	assert.Equal(t, 5, store.prefs["Chicken"].InteractionCount)
	// Mushroom had no record; the boost does not create one.
	assert.Nil(t, store.prefs["Mushroom"])
}

func TestMarkCooked_TwoEventsBothCount(t *testing.T) {
	store := newMockUserStore()
	store.prefs["Chicken"] = &user.Preference{Ingredient: "Chicken", Score: 0.5, InteractionCount: 1}
	store.views = append(store.views, user.HistoryEntry{UserID: 42, RecipeID: 1, ViewedAt: time.Now()})
	e := newTestEngine(store)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.MarkCooked(context.Background(), 42, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Both events land: +2 interactions each.
	assert.Equal(t, 5, store.prefs["Chicken"].InteractionCount)
	assert.InDelta(t, 0.9, store.prefs["Chicken"].Score, 1e-9)
}

func TestMarkCooked_NoHistoryIsNoOp(t *testing.T) {
	store := newMockUserStore()
	e := newTestEngine(store)

	cooked, err := e.MarkCooked(context.Background(), 42, 1)
	assert.NoError(t, err)
	assert.False(t, cooked)
}

func TestRateRecipe_HighRatingFeedsPreferences(t *testing.T) {
	store := newMockUserStore()
	e := newTestEngine(store)

	err := e.RateRecipe(context.Background(), &user.Rating{UserID: 42, RecipeID: 1, Stars: 5})
	assert.NoError(t, err)
	assert.NotNil(t, store.prefs["Chicken"])
	assert.NotNil(t, store.prefs["Mushroom"])
}

func TestRateRecipe_LowRatingDoesNot(t *testing.T) {
	store := newMockUserStore()
	e := newTestEngine(store)

	err := e.RateRecipe(context.Background(), &user.Rating{UserID: 42, RecipeID: 1, Stars: 2})
	assert.NoError(t, err)
	assert.Empty(t, store.prefs)
}

func TestSimilar_ReturnsOverlappingRecipes(t *testing.T) {
	e := newTestEngine(newMockUserStore())
	got := e.Similar(1, 2)
	assert.NotEmpty(t, got)
	assert.Equal(t, 2, got[0].ID)
}
