package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai_tutor_backend/internal/config"
	"ai_tutor_backend/internal/controller"
	"ai_tutor_backend/internal/knowledge"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/internal/service"
	"ai_tutor_backend/pkg/database"
	"ai_tutor_backend/pkg/logger"
	"ai_tutor_backend/pkg/monitoring"
	"ai_tutor_backend/pkg/security"
	"ai_tutor_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	scheduler *service.SnapshotScheduler
}

type repositories struct {
	mastery       *repository.MasteryRepository
	mistake       *repository.MistakeRepository
	association   *repository.AssociationRepository
	learningTrack *repository.LearningTrackRepository
	reviewSession *repository.ReviewSessionRepository
	snapshot      *repository.SnapshotRepository
}

type services struct {
	ai          *service.AIService
	extractor   *service.ExtractorService
	tracker     *service.TrackerService
	mastery     *service.MasteryService
	association *service.AssociationService
	storage     *service.StorageService
	mistake     *service.MistakeService
	review      *service.ReviewService
	graph       *service.GraphService
}

type controllers struct {
	knowledge *controller.KnowledgeController
	mistake   *controller.MistakeController
	review    *controller.ReviewController
	graph     *controller.GraphController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		mastery:       repository.NewMasteryRepository(db),
		mistake:       repository.NewMistakeRepository(db),
		association:   repository.NewAssociationRepository(db),
		learningTrack: repository.NewLearningTrackRepository(db),
		reviewSession: repository.NewReviewSessionRepository(db),
		snapshot:      repository.NewSnapshotRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	dict := knowledge.NewDictionary()

	s.ai = service.NewAIService(cfg.AI)
	s.extractor = service.NewExtractorService(dict, s.ai)
	s.tracker = service.NewTrackerService(repos.learningTrack)
	s.mastery = service.NewMasteryService(db, repos.mastery, dict, s.tracker, rdb)
	s.association = service.NewAssociationService(db, repos.association, repos.mistake, s.mastery, s.tracker)

	storage, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	s.storage = storage

	s.mistake = service.NewMistakeService(repos.mistake, repos.mastery, s.association, s.extractor, s.storage)
	s.review = service.NewReviewService(db, repos.reviewSession, repos.mistake, repos.association,
		repos.mastery, s.mastery, s.tracker, s.storage, s.ai)
	s.graph = service.NewGraphService(repos.mastery, repos.association, repos.snapshot, dict, rdb)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		knowledge: controller.NewKnowledgeController(s.extractor),
		mistake:   controller.NewMistakeController(s.mistake),
		review:    controller.NewReviewController(s.review),
		graph:     controller.NewGraphController(s.graph),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startSnapshotScheduler(s *services, repos *repositories, cfg *config.Config) {
	if !cfg.Snapshot.Enabled {
		return
	}
	a.scheduler = service.NewSnapshotScheduler(repos.mastery, s.graph)
	if err := a.scheduler.Start(cfg.Snapshot.CronSpec); err != nil {
		logger.Log.Fatal("Failed to start snapshot scheduler", zap.Error(err))
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("ai-tutor-core", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers)

	app.startSnapshotScheduler(services, repos, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停掉快照定时任务，等在跑的任务收尾
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 关闭服务
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
