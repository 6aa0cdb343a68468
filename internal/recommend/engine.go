package recommend

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"pic2kitchen/internal/ingredient"
	"pic2kitchen/internal/recipe"
	"pic2kitchen/internal/user"
)

// Scoring weights for the personalized ranking. The diversity bonus rewards
// recipes introducing ingredients beyond what was detected.
const (
	baseScore        = 1.0
	preferenceWeight = 0.5
	recentPenalty    = 0.5 // viewed within the last 7 days
	stalePenalty     = 0.2 // viewed 7-13 days ago
	favoriteBonus    = 0.8
	ratingWeight     = 0.2
	diversityBonus   = 0.05

	candidateFactor   = 3 // base candidates fetched per requested slot
	sideEffectTimeout = 5 * time.Second
)

// AnonymousUser disables personalization: the caller gets base-matcher order.
const AnonymousUser = 0

// Engine runs the recommendation pipeline: normalize detected ingredients,
// match against the corpus, re-rank per user, prune by dietary rules. It is
// constructed once with its dependencies and shared across requests; the only
// mutable state lives in the user store.
type Engine struct {
	corpus  []recipe.Recipe
	byID    map[int]*recipe.Recipe
	users   user.Store
	cache   *MatchCache
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewEngine builds an engine over a corpus snapshot. cache may be nil.
func NewEngine(corpus []recipe.Recipe, users user.Store, cache *MatchCache, log *zap.Logger) *Engine {
	byID := make(map[int]*recipe.Recipe, len(corpus))
	for i := range corpus {
		byID[corpus[i].ID] = &corpus[i]
	}
	return &Engine{
		corpus:  corpus,
		byID:    byID,
		users:   users,
		cache:   cache,
		log:     log,
		nowFunc: time.Now,
	}
}

// RecipeByID returns a corpus recipe, or nil when the id is unknown.
func (e *Engine) RecipeByID(id int) *recipe.Recipe {
	return e.byID[id]
}

// Similar returns recipes whose ingredient sets overlap the given recipe's.
func (e *Engine) Similar(id, topN int) []recipe.Recipe {
	return e.resolve(recipe.Similar(e.corpus, id, topN))
}

// Recommend returns up to topN recipes for the detected ingredient tokens.
// For AnonymousUser the base-matcher order is returned unchanged. For a known
// user the candidates are re-ranked with learned preferences, history recency,
// favorites, and ratings, then pruned by the dietary filter. Preference and
// history writes happen as fire-and-forget side effects; their failure never
// blocks or degrades the returned list.
func (e *Engine) Recommend(ctx context.Context, userID int, detected []string, topN int) []recipe.Recipe {
	ingredients := ingredient.Normalize(detected)
	candidates := e.baseMatch(ctx, ingredients, topN*candidateFactor)

	if userID == AnonymousUser {
		recipes := e.resolve(candidates)
		if len(recipes) > topN {
			recipes = recipes[:topN]
		}
		return recipes
	}

	signals := e.loadSignals(ctx, userID)

	detectedSet := make(map[string]bool, len(ingredients))
	for _, ing := range ingredients {
		detectedSet[ing] = true
	}

	type scored struct {
		r     *recipe.Recipe
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, id := range candidates {
		r := e.byID[id]
		if r == nil {
			e.log.Warn("candidate recipe missing from corpus", zap.Int("recipe_id", id))
			continue
		}
		ranked = append(ranked, scored{r: r, score: e.scoreRecipe(r, detectedSet, signals)})
	}

	// Descending score; stable, so ties keep base-matcher order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	// Dietary filter in score order. Incompatible recipes are skipped, not
	// replaced from further down.
	result := make([]recipe.Recipe, 0, topN)
	for _, s := range ranked {
		if len(result) >= topN {
			break
		}
		if !IsCompatible(s.r, signals.profile) {
			continue
		}
		result = append(result, *s.r)
	}

	e.recordInteraction(userID, ingredients, result)
	return result
}

// userSignals is everything the scorer needs about one user. Each field
// degrades independently to its zero value when the store is unavailable.
type userSignals struct {
	prefs      map[string]float64
	lastViewed map[int]time.Time
	favorites  map[int]bool
	ratings    map[int]int
	profile    *user.DietaryProfile
}

func (e *Engine) loadSignals(ctx context.Context, userID int) userSignals {
	var s userSignals
	var err error

	if s.prefs, err = e.users.GetPreferences(ctx, userID); err != nil {
		e.log.Warn("preference load failed, scoring without preferences", zap.Int("user_id", userID), zap.Error(err))
	}
	if s.lastViewed, err = e.users.LastViewed(ctx, userID); err != nil {
		e.log.Warn("history load failed, scoring without recency", zap.Int("user_id", userID), zap.Error(err))
	}
	if s.favorites, err = e.users.GetFavorites(ctx, userID); err != nil {
		e.log.Warn("favorites load failed", zap.Int("user_id", userID), zap.Error(err))
	}
	if s.ratings, err = e.users.GetRatings(ctx, userID); err != nil {
		e.log.Warn("ratings load failed", zap.Int("user_id", userID), zap.Error(err))
	}
	if s.profile, err = e.users.GetProfile(ctx, userID); err != nil {
		// Missing or unreadable profile means no dietary restrictions.
		e.log.Warn("profile load failed, treating as unrestricted", zap.Int("user_id", userID), zap.Error(err))
		s.profile = nil
	}
	return s
}

func (e *Engine) scoreRecipe(r *recipe.Recipe, detectedSet map[string]bool, s userSignals) float64 {
	score := baseScore

	for _, ing := range r.Ingredients {
		if pref, ok := s.prefs[ing]; ok {
			score += pref * preferenceWeight
		}
	}

	if viewedAt, ok := s.lastViewed[r.ID]; ok {
		days := int(e.nowFunc().Sub(viewedAt).Hours() / 24)
		if days < 7 {
			score -= recentPenalty
		} else if days < 14 {
			score -= stalePenalty
		}
	}

	if s.favorites[r.ID] {
		score += favoriteBonus
	}

	if stars, ok := s.ratings[r.ID]; ok {
		score += float64(stars-3) * ratingWeight
	}

	for _, ing := range r.Ingredients {
		if !detectedSet[ing] {
			score += diversityBonus
		}
	}

	return score
}

func (e *Engine) baseMatch(ctx context.Context, ingredients []string, topN int) []int {
	if e.cache != nil {
		if ids, ok := e.cache.Get(ctx, ingredients, topN); ok {
			return ids
		}
	}
	ids := recipe.Match(e.corpus, ingredients, topN)
	if e.cache != nil {
		e.cache.Set(ctx, ingredients, topN, ids)
	}
	return ids
}

func (e *Engine) resolve(ids []int) []recipe.Recipe {
	recipes := make([]recipe.Recipe, 0, len(ids))
	for _, id := range ids {
		if r := e.byID[id]; r != nil {
			recipes = append(recipes, *r)
		} else {
			e.log.Warn("recipe id missing from corpus", zap.Int("recipe_id", id))
		}
	}
	return recipes
}

// recordInteraction persists the query's detected ingredients as preference
// signals and appends a view row per shown recipe. Writes are best-effort
// telemetry: each gets one retry and failures are only logged.
func (e *Engine) recordInteraction(userID int, ingredients []string, shown []recipe.Recipe) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		e.withRetry(func() error {
			return e.users.UpsertPreferences(ctx, userID, ingredients)
		}, "preference upsert", userID)

		for _, r := range shown {
			recipeID := r.ID
			e.withRetry(func() error {
				return e.users.AppendView(ctx, userID, recipeID, ingredients)
			}, "history append", userID)
		}
	}()
}

func (e *Engine) withRetry(fn func() error, op string, userID int) {
	err := fn()
	if err == nil {
		return
	}
	if err = fn(); err != nil {
		e.log.Warn("interaction write dropped", zap.String("op", op), zap.Int("user_id", userID), zap.Error(err))
	}
}

// MarkCooked flags the user's latest view of the recipe as cooked and applies
// the cook-boost to preferences for the recipe's ingredients. Cooking is a
// much stronger signal than viewing, so the boost bypasses the
// minimum-interaction gate.
func (e *Engine) MarkCooked(ctx context.Context, userID, recipeID int) (bool, error) {
	cooked, err := e.users.MarkCooked(ctx, userID, recipeID)
	if err != nil {
		return false, err
	}
	if !cooked {
		return false, nil
	}
	if r := e.byID[recipeID]; r != nil {
		if err := e.users.BoostPreferences(ctx, userID, r.Ingredients); err != nil {
			// The cooked flag is already durable; a lost boost is acceptable.
			e.log.Warn("cook-boost dropped", zap.Int("user_id", userID), zap.Int("recipe_id", recipeID), zap.Error(err))
		}
	}
	return true, nil
}

// RateRecipe upserts a star rating. Ratings of four stars and above also
// count as positive interactions with the recipe's ingredients.
func (e *Engine) RateRecipe(ctx context.Context, r *user.Rating) error {
	if err := e.users.UpsertRating(ctx, r); err != nil {
		return err
	}
	if r.Stars >= 4 {
		if rec := e.byID[r.RecipeID]; rec != nil {
			if err := e.users.UpsertPreferences(ctx, r.UserID, rec.Ingredients); err != nil {
				e.log.Warn("rating preference upsert dropped", zap.Int("user_id", r.UserID), zap.Error(err))
			}
		}
	}
	return nil
}
