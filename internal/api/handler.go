package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"pic2kitchen/internal/ingredient"
	"pic2kitchen/internal/recipe"
	"pic2kitchen/internal/recommend"
	"pic2kitchen/internal/user"
)

// Detector defines the interface for the vision backend.
type Detector interface {
	IsFoodImage(ctx context.Context, imageData []byte) (bool, string, error)
	DetectIngredients(ctx context.Context, imageData []byte) ([]string, error)
}

// Recommender defines the interface for the recommendation engine.
type Recommender interface {
	Recommend(ctx context.Context, userID int, detected []string, topN int) []recipe.Recipe
	RecipeByID(id int) *recipe.Recipe
	Similar(id, topN int) []recipe.Recipe
	MarkCooked(ctx context.Context, userID, recipeID int) (bool, error)
	RateRecipe(ctx context.Context, r *user.Rating) error
}

// Handler handles HTTP requests.
type Handler struct {
	Detector    Detector
	Recommender Recommender
	Users       user.Store
	Log         *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(detector Detector, recommender Recommender, users user.Store, log *zap.Logger) *Handler {
	return &Handler{Detector: detector, Recommender: recommender, Users: users, Log: log}
}

const (
	defaultTopN     = 9
	maxTopN         = 30
	detectorTimeout = 30 * time.Second
	dbTimeout       = 5 * time.Second
)

// Kitchen handles photo uploads and returns personalized recipe
// recommendations for the detected ingredients.
func (h *Handler) Kitchen(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("get form err: %s", err.Error()))
		return
	}

	allowedExtensions := map[string]bool{
		".jpeg": true,
		".jpg":  true,
		".png":  true,
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[extension] {
		c.String(http.StatusBadRequest, "Invalid file type. Only JPEG, JPG, and PNG images are allowed.")
		return
	}

	src, err := file.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("open file err: %s", err.Error()))
		return
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("read image err: %s", err.Error()))
		return
	}

	requestID := uuid.NewString()
	userID := h.userID(c)
	topN := h.topN(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), detectorTimeout)
	defer cancel()

	scaled := downscale(imageData)

	isFood, description, err := h.Detector.IsFoodImage(ctx, scaled)
	if err != nil {
		// An unanswerable food check is not fatal; detection decides.
		h.Log.Warn("food check failed, proceeding with detection",
			zap.String("request_id", requestID),
			zap.Error(err))
	} else if !isFood {
		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"message":    "That doesn't look like food. Snap a photo of your ingredients and we'll suggest what to cook.",
			"detail":     description,
		})
		return
	}

	detected, err := h.Detector.DetectIngredients(ctx, scaled)
	if err != nil {
		// Any detection failure, timeouts included, falls back to the
		// default ingredient set so the user still gets recommendations.
		h.Log.Warn("ingredient detection failed, using defaults",
			zap.String("request_id", requestID),
			zap.Error(err))
		detected = nil
	}

	normalized := ingredient.Normalize(detected)

	recipes := h.Recommender.Recommend(c.Request.Context(), userID, detected, topN)

	c.JSON(http.StatusOK, gin.H{
		"request_id":  requestID,
		"ingredients": normalized,
		"recipes":     recipes,
	})
}

// GetRecipe returns a single recipe with its rating summary. When the
// request carries a user, their own rating and favorite flag are included.
func (h *Handler) GetRecipe(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	r := h.Recommender.RecipeByID(id)
	if r == nil {
		c.String(http.StatusNotFound, "Recipe not found")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	avg, err := h.Users.AverageRating(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	resp := gin.H{
		"recipe":         r,
		"average_rating": avg,
	}

	if userID := h.userID(c); userID != recommend.AnonymousUser {
		if rating, err := h.Users.GetRating(ctx, userID, id); err == nil && rating != nil {
			resp["user_rating"] = rating.Stars
		}
		if favorites, err := h.Users.GetFavorites(ctx, userID); err == nil {
			resp["is_favorite"] = favorites[id]
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetSimilar returns recipes with overlapping ingredients.
func (h *Handler) GetSimilar(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	if h.Recommender.RecipeByID(id) == nil {
		c.String(http.StatusNotFound, "Recipe not found")
		return
	}

	c.JSON(http.StatusOK, h.Recommender.Similar(id, h.topN(c)))
}

// ToggleFavorite flips the favorite flag for a recipe.
func (h *Handler) ToggleFavorite(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	favorite, err := h.Users.ToggleFavorite(ctx, userID, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe_id": id, "is_favorite": favorite})
}

type rateRequest struct {
	Stars  int    `json:"stars" binding:"required"`
	Review string `json:"review"`
}

// RateRecipe records a star rating. Ratings of four stars and up also
// reinforce the user's ingredient preferences.
func (h *Handler) RateRecipe(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err.Error()))
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		c.String(http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}

	if h.Recommender.RecipeByID(id) == nil {
		c.String(http.StatusNotFound, "Recipe not found")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	err := h.Recommender.RateRecipe(ctx, &user.Rating{UserID: userID, RecipeID: id, Stars: req.Stars, Review: req.Review})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe_id": id, "stars": req.Stars})
}

// MarkCooked flags the most recent view of a recipe as cooked and boosts
// the preferences for its ingredients.
func (h *Handler) MarkCooked(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	cooked, err := h.Recommender.MarkCooked(ctx, userID, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}
	if !cooked {
		c.String(http.StatusNotFound, "No viewing history for this recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe_id": id, "cooked": true})
}

// GetPreferences returns the user's learned ingredient preferences.
func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	prefs, err := h.Users.ListPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "preferences": prefs})
}

// userID reads the optional X-User-ID header. Missing or malformed values
// mean an anonymous request.
func (h *Handler) userID(c *gin.Context) int {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return recommend.AnonymousUser
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return recommend.AnonymousUser
	}
	return id
}

func (h *Handler) requireUser(c *gin.Context) (int, bool) {
	userID := h.userID(c)
	if userID == recommend.AnonymousUser {
		c.String(http.StatusUnauthorized, "X-User-ID header is required")
		return 0, false
	}
	return userID, true
}

func (h *Handler) recipeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "invalid recipe id")
		return 0, false
	}
	return id, true
}

func (h *Handler) topN(c *gin.Context) int {
	raw := c.Query("top_n")
	if raw == "" {
		return defaultTopN
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxTopN {
		return defaultTopN
	}
	return n
}

// downscale shrinks large photos before they go to the detector. Images
// that fail to decode are passed through untouched.
func downscale(imageData []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return imageData
	}
	if img.Bounds().Dx() <= 800 {
		return imageData
	}

	img = resize.Resize(800, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return imageData
	}
	return buf.Bytes()
}
