package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"pic2kitchen/internal/api"
	"pic2kitchen/internal/config"
	"pic2kitchen/internal/logger"
	"pic2kitchen/internal/platform/gemini"
	"pic2kitchen/internal/platform/localvision"
	"pic2kitchen/internal/recipe"
	"pic2kitchen/internal/recommend"
	"pic2kitchen/internal/user"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to database: %w", err))
	}

	recipeStore, err := recipe.NewPostgresStoreFromDB(db)
	if err != nil {
		panic(fmt.Errorf("error creating recipe store: %w", err))
	}
	userStore, err := user.NewPostgresStoreFromDB(db)
	if err != nil {
		panic(fmt.Errorf("error creating user store: %w", err))
	}

	corpus, err := recipeStore.ListRecipes(ctx)
	if err != nil {
		panic(fmt.Errorf("failed to load recipe corpus: %w", err))
	}
	log.Info("loaded recipe corpus", zap.Int("recipes", len(corpus)))

	var cache *recommend.MatchCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, match cache disabled", zap.Error(err))
		} else {
			cache = recommend.NewMatchCache(client, cfg.Redis.TTL)
		}
	}

	var detector api.Detector
	switch cfg.Detector.Backend {
	case "local":
		detector = localvision.NewDetector(cfg.Detector.LocalURL, cfg.Detector.LocalModel)
	default:
		detector, err = gemini.NewDetector(ctx, cfg.Detector.GeminiAPIKey)
		if err != nil {
			panic(fmt.Errorf("error creating gemini detector: %w", err))
		}
	}

	engine := recommend.NewEngine(corpus, userStore, cache, log)
	handler := api.NewHandler(detector, engine, userStore, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8081"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/kitchen", handler.Kitchen)
	r.GET("/recipes/:id", handler.GetRecipe)
	r.GET("/recipes/:id/similar", handler.GetSimilar)
	r.POST("/api/favorite/:id", handler.ToggleFavorite)
	r.POST("/api/rate/:id", handler.RateRecipe)
	r.POST("/api/cooked/:id", handler.MarkCooked)
	r.GET("/api/preferences", handler.GetPreferences)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Errorf("server error: %w", err))
	}
}
