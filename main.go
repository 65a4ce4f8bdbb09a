package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"deneme-server/config"
	"deneme-server/curation"
	"deneme-server/db"
	"deneme-server/exam"
	"deneme-server/extraction"
	"deneme-server/handlers"
	"deneme-server/middleware"
	"deneme-server/recommend"
	"deneme-server/studyplan"
	"deneme-server/validation"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Error loading configuration: %v", err)
	}

	pool, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Error initializing database: %v", err)
	}
	defer pool.Close()

	if err := db.CreateSchema(pool); err != nil {
		logrus.Fatalf("Error creating database schema: %v", err)
	}

	if err := os.MkdirAll(cfg.PDFStoragePath, 0o755); err != nil {
		logrus.Fatalf("Error creating PDF storage directory: %v", err)
	}

	claude := extraction.NewClaudeClient(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.MaxTokens)
	if !claude.Enabled() {
		logrus.Warn("Claude API key not set; uploads will use the local parser only")
	}

	examSvc := exam.NewService(pool, claude, validation.DefaultTolerance)
	recommendSvc := recommend.NewService(pool, claude)
	planSvc := studyplan.NewService(pool, claude)

	var yt *curation.YouTubeClient
	if cfg.YouTube.APIKey != "" {
		yt, err = curation.NewYouTubeClient(context.Background(), cfg.YouTube.APIKey)
		if err != nil {
			logrus.Fatalf("Error creating YouTube client: %v", err)
		}
	} else {
		logrus.Warn("YouTube API key not set; channel discovery and curation are disabled")
	}
	channelMgr := curation.NewChannelManager(pool, yt)
	curator := curation.NewCurator(pool, yt, claude, channelMgr)

	if n, err := channelMgr.LoadSeedFile(context.Background(), cfg.ChannelSeedPath); err != nil {
		logrus.WithError(err).Warn("failed to load channel seed file")
	} else if n > 0 {
		logrus.Infof("Seeded %d YouTube channel(s) from %s", n, cfg.ChannelSeedPath)
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Admin UI templates
	renderer := multitemplate.NewRenderer()
	renderer.AddFromFiles("admin_dashboard", "templates/layout.html", "templates/admin_dashboard.html")
	renderer.AddFromFiles("admin_pending", "templates/layout.html", "templates/admin_pending.html")
	router.HTMLRender = renderer

	authMiddleware := middleware.AuthMiddleware(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.POST("/students", handlers.CreateStudent(pool))
		apiV1.GET("/students", handlers.ListStudents(pool))
		apiV1.GET("/students/:student_id", handlers.GetStudent(pool))

		apiV1.POST("/exams", handlers.UploadExam(pool, examSvc, cfg.PDFStoragePath))
		apiV1.GET("/students/:student_id/exams", handlers.ListExams(pool))
		apiV1.GET("/exams/:exam_id", handlers.GetExam(pool))
		apiV1.POST("/exams/:exam_id/confirm", handlers.ConfirmExam(examSvc))
		apiV1.DELETE("/exams/:exam_id", handlers.DeleteExam(examSvc))

		apiV1.GET("/students/:student_id/analytics/overview", handlers.AnalyticsOverview(pool))
		apiV1.GET("/students/:student_id/analytics/trends", handlers.AnalyticsTrends(pool))
		apiV1.GET("/students/:student_id/analytics/subjects", handlers.AnalyticsSubjects(pool))
		apiV1.GET("/students/:student_id/analytics/outcomes", handlers.AnalyticsOutcomes(pool))

		apiV1.GET("/students/:student_id/recommendations", handlers.ListRecommendations(recommendSvc))
		apiV1.POST("/students/:student_id/recommendations/regenerate", handlers.RegenerateRecommendations(recommendSvc))
		apiV1.POST("/recommendations/:recommendation_id/complete", handlers.CompleteRecommendation(recommendSvc))
		apiV1.POST("/recommendations/:recommendation_id/resources", handlers.AttachResources(curator))

		apiV1.GET("/resources", handlers.ListResources(curator))
		apiV1.POST("/resources/curate", handlers.CurateResources(curator))

		apiV1.GET("/channels", handlers.ListChannels(channelMgr))
		apiV1.POST("/channels", handlers.AddChannel(channelMgr))
		apiV1.POST("/channels/discover", handlers.DiscoverChannels(channelMgr))
		apiV1.POST("/channels/refresh", handlers.RefreshChannels(channelMgr))
		apiV1.DELETE("/channels/:channel_id", handlers.DeactivateChannel(channelMgr))

		apiV1.POST("/students/:student_id/study-plans", handlers.CreateStudyPlan(planSvc))
		apiV1.GET("/students/:student_id/study-plans", handlers.ListStudyPlans(planSvc))
		apiV1.GET("/study-plans/:plan_id", handlers.GetStudyPlan(planSvc))
		apiV1.GET("/study-plans/:plan_id/progress", handlers.StudyPlanProgress(planSvc))
		apiV1.POST("/study-plans/:plan_id/archive", handlers.ArchiveStudyPlan(planSvc))
		apiV1.DELETE("/study-plans/:plan_id", handlers.DeleteStudyPlan(planSvc))
		apiV1.POST("/study-plan-items/:item_id/complete", handlers.CompletePlanItem(planSvc))
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, middleware.RoleCheckMiddleware([]string{"admin", "teacher"}))
	{
		admin.GET("/dashboard", handlers.AdminDashboard(pool))
		admin.GET("/pending", handlers.AdminPendingExams(pool))
		admin.GET("/error-logs", handlers.AdminErrorLogs(pool))
		admin.GET("/events", handlers.AdminSystemEvents(pool))
	}

	// Background sweeps: expire stale pending uploads and remind about the
	// review queue.
	shutdownCtx, stopWorkers := context.WithCancel(context.Background())
	go cleanupLoop(shutdownCtx, examSvc, cfg.PendingRetention, cfg.CleanupInterval)
	go reminderLoop(shutdownCtx, examSvc, cfg.ReminderInterval)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}
	go func() {
		logrus.Infof("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}
	logrus.Info("Server exiting")
}

func cleanupLoop(ctx context.Context, svc *exam.Service, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanupExpired(ctx, retention)
			if err != nil {
				logrus.WithError(err).Error("pending exam cleanup failed")
				continue
			}
			if n > 0 {
				logrus.Infof("Cleanup removed %d expired pending exam(s)", n)
			}
		}
	}
}

func reminderLoop(ctx context.Context, svc *exam.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PendingCount(ctx)
			if err != nil {
				logrus.WithError(err).Error("pending exam count failed")
				continue
			}
			if n > 0 {
				logrus.Warnf("%d exam(s) still waiting for confirmation", n)
			}
		}
	}
}
