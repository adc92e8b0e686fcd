package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/muhtarbag/fenomen-pet/internal/admin"
	"github.com/muhtarbag/fenomen-pet/internal/config"
	"github.com/muhtarbag/fenomen-pet/internal/database"
	"github.com/muhtarbag/fenomen-pet/internal/events"
	"github.com/muhtarbag/fenomen-pet/internal/feed"
	"github.com/muhtarbag/fenomen-pet/internal/like"
	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/middleware"
	"github.com/muhtarbag/fenomen-pet/internal/storage"
	"github.com/muhtarbag/fenomen-pet/internal/store"
	"github.com/muhtarbag/fenomen-pet/internal/submission"
	"github.com/muhtarbag/fenomen-pet/internal/user"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logs.LogJSON("FATAL", "Invalid configuration", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	logs.SetLevel(cfg.LogLevel)

	if err := run(cfg); err != nil {
		logs.LogJSON("FATAL", "Server stopped", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBUrl)
	if err != nil {
		return err
	}
	err = database.Migrate(db,
		&user.User{},
		&store.Submission{},
		&store.SubmissionLike{},
		&store.AnonymousLike{},
		&store.RejectedSubmission{},
	)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	publisher, err := events.Dial(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		return err
	}
	defer publisher.Close()

	images, err := storage.NewImageStore(ctx, storage.Options{
		Bucket:    cfg.AWSBucket,
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSKeyID,
		SecretKey: cfg.AWSSecret,
	})
	if err != nil {
		return err
	}

	changes := feed.NewRedisFeed(rdb, cfg.FeedPrefix)
	rows := store.NewGormStore(db, changes)

	var remover submission.ImageRemover
	if images != nil {
		remover = images
	}
	var svc *submission.Service
	cache := submission.NewCache(func(ctx context.Context, key string) ([]store.Submission, error) {
		return svc.Load(ctx, key)
	})
	svc = submission.NewService(rows, cache, remover)

	likes := &like.Handler{
		Store:       rows,
		Submissions: rows,
		Markers:     like.NewRedisMarkerStore(rdb, cfg.MarkerPrefix),
		Fallback:    like.NewIpifyResolver(cfg.IPLookupURL),
		Registry:    like.NewRegistry(),
		Events:      publisher,
	}
	submissions := submission.NewHandler(svc, changes, cache)

	router, err := newRouter(cfg, likes, submissions)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logs.LogJSON("INFO", "Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Keeps the list cache fresh even when no moderator is connected.
		return submission.NewMaintainer(changes, cache, nil).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(cfg *config.Config, likes *like.Handler, submissions *submission.Handler) (*gin.Engine, error) {
	r := gin.New()
	// The anonymous like window is keyed on ClientIP, so forwarded headers
	// only count from configured proxies.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.OptionalAuthMiddleware(cfg.JWTSecret), middleware.ViewerMiddleware())
	api.GET("/submissions", submissions.List)
	api.GET("/status", submissions.Status)
	api.GET("/submissions/:id/like", likes.GetStatus)
	api.POST("/submissions/:id/like", likes.Toggle)

	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/stats", admin.GetDashboardStats)
	adminGroup.GET("/charts/:type", admin.GetChartData)
	adminGroup.GET("/top-submissions", admin.GetTopSubmissions)
	adminGroup.GET("/submissions/events", submissions.Events)
	adminGroup.POST("/submissions/bulk-delete", submissions.BulkDelete)
	adminGroup.DELETE("/submissions/:id", submissions.Delete)
	adminGroup.POST("/submissions/:id/approve", submissions.Approve)
	adminGroup.POST("/submissions/:id/reject", submissions.Reject)

	return r, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
