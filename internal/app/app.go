package app

import (
	"context"
	"errors"
	"fmt"
	"h2ala_backend/internal/config"
	"h2ala_backend/internal/controller"
	"h2ala_backend/internal/repository"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"
	"h2ala_backend/pkg/configwatcher"
	"h2ala_backend/pkg/database"
	"h2ala_backend/pkg/logger"
	"h2ala_backend/pkg/monitoring"
	"h2ala_backend/pkg/security"
	"h2ala_backend/pkg/tracing"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	State     *service.LearnerState
	Limiter   *security.IPLimiter

	services *services
	relay    *service.ChangeRelay
	tracer   *trace.TracerProvider
}

type services struct {
	identity      *service.IdentityService
	auth          *service.AuthService
	progress      *service.ProgressService
	conversations *service.ConversationService
	messaging     *service.MessagingService
	library       *service.LibraryService
	ai            *service.AIService
	tutor         *service.TutorService
	inbox         *service.Inbox
}

type controllers struct {
	health       *controller.HealthController
	auth         *controller.AuthController
	student      *controller.StudentController
	progress     *controller.ProgressController
	conversation *controller.ConversationController
	inbox        *controller.InboxController
	teacher      *controller.TeacherController
}

// NewApp 按配置连接外部依赖，加载学习状态并组装路由
func NewApp(ctx context.Context, cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	monitoring.Init()

	a := &App{Config: cfg, ConfigDir: configDir}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("h2ala-backend", cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.tracer = tp
	}

	if cfg.Redis.Enabled() {
		rdb, err := database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.Redis = rdb
	}

	store, err := a.newSlotStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.assemble(ctx, store); err != nil {
		return nil, err
	}
	return a, nil
}

// newSlotStore 根据 storage.type 选择快照槽位后端
func (a *App) newSlotStore(ctx context.Context) (repository.SlotStore, error) {
	cfg := a.Config
	switch cfg.Storage.Type {
	case util.StorageLocal:
		return repository.NewFileSlotStore(cfg.Storage.LocalPath)
	case util.StorageRedis:
		if a.Redis == nil {
			return nil, errors.New("storage.type=redis requires redis.host")
		}
		return repository.NewRedisSlotStore(a.Redis), nil
	case util.StorageMinio:
		return repository.NewMinioSlotStore(ctx, &cfg.Storage)
	case util.StorageOSS:
		return repository.NewOSSSlotStore(&cfg.Storage)
	case util.StorageDatabase:
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.DB = db
		return repository.NewGormSlotStore(db), nil
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
}

func (a *App) assemble(ctx context.Context, store repository.SlotStore, opts ...service.Option) error {
	repo := repository.NewSnapshotRepository(store, a.Config.Storage.SnapshotKey)
	a.State = service.NewLearnerState(repo, nil, opts...)
	if err := a.State.Init(ctx); err != nil {
		return fmt.Errorf("load learner state: %w", err)
	}

	a.services = a.initServices()
	if a.Redis != nil {
		a.relay = service.NewChangeRelay(a.Redis, a.Config.Redis.Channel, a.State, a.services.inbox)
	}

	a.Limiter = security.NewIPLimiter(a.Config.RateLimit.MaxRequests, time.Duration(a.Config.RateLimit.WindowMinutes)*time.Minute)

	if a.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, a.initControllers(a.services), a.Config)
	a.Router = router
	return nil
}

func (a *App) initServices() *services {
	inbox := service.NewInbox()
	conversations := service.NewConversationService(a.State)
	progress := service.NewProgressService(a.State)
	ai := service.NewAIService(a.Config.AI)
	return &services{
		identity:      service.NewIdentityService(a.State),
		auth:          service.NewAuthService(a.State, a.Config),
		progress:      progress,
		conversations: conversations,
		messaging:     service.NewMessagingService(a.State, inbox),
		library:       service.NewLibraryService(a.State),
		ai:            ai,
		tutor:         service.NewTutorService(a.State, ai, conversations, progress),
		inbox:         inbox,
	}
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		health:       controller.NewHealthController(a.State, a.DB, a.Redis),
		auth:         controller.NewAuthController(s.auth),
		student:      controller.NewStudentController(s.identity, s.messaging, s.library),
		progress:     controller.NewProgressController(s.progress, s.tutor),
		conversation: controller.NewConversationController(s.conversations, s.tutor),
		inbox:        controller.NewInboxController(s.messaging),
		teacher:      controller.NewTeacherController(s.identity, s.messaging, s.library),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.Limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// reloadConfig 热更新只覆盖 AI 后端配置，其余配置需要重启生效
func (a *App) reloadConfig(cfg *config.Config) {
	a.services.ai.UpdateConfig(cfg.AI)
	logger.Log.Info("AI config reloaded", zap.String("model", cfg.AI.Model))
}

// Run 启动 HTTP 服务和后台任务，ctx 结束后优雅退出并落盘学习状态
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Limiter.Run(gctx)
		return nil
	})

	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx)
		})
	}

	if a.ConfigDir != "" {
		g.Go(func() error {
			if err := configwatcher.WatchConfig(gctx, a.ConfigDir, a.reloadConfig); err != nil {
				// 配置监听失败不影响服务
				logger.Log.Warn("Config watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.close()
	logger.Log.Info("Server exiting")
	return err
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.State.Close(ctx); err != nil {
		logger.Log.Error("Failed to flush learner state", zap.Error(err))
	}
	if a.tracer != nil {
		if err := tracing.Shutdown(ctx, a.tracer); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Log.Sync()
}
