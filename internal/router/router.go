package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/anonto42/nearby/backend/internal/chatbot"
	"github.com/anonto42/nearby/backend/internal/handlers"
	"github.com/anonto42/nearby/backend/internal/loaders"
	"github.com/anonto42/nearby/backend/internal/middleware"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/anonto42/nearby/backend/internal/session"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/internal/verifier"
	"github.com/anonto42/nearby/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Dependencies are the connections the application is built from.
type Dependencies struct {
	Config   *config.Config
	Postgres *gorm.DB
	Mongo    *mongo.Database
	Redis    *redis.Client
	Identity session.IdentityProvider
	Images   storage.Backend
	Bucket   string
	Logger   *slog.Logger
}

// Runner is a loop that returns once its context is done.
type Runner interface {
	Run(ctx context.Context)
}

// Background is the work running beside the HTTP server.
type Background struct {
	Sweeper  Runner
	Verifier *verifier.Worker // nil when VERIFICATION_URL is unset
	Posts    *services.PostService

	wg sync.WaitGroup
}

// Start launches the sweeper and the verification workers.
func (b *Background) Start(ctx context.Context) {
	if b.Sweeper != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.Sweeper.Run(ctx)
		}()
	}
	if b.Verifier != nil {
		b.Verifier.Start(ctx, b.Posts.ApplyVerification)
	}
}

// Wait blocks until the sweeper has returned and the verification workers
// have drained. Cancel the context passed to Start first.
func (b *Background) Wait() {
	b.wg.Wait()
	if b.Verifier != nil {
		b.Verifier.Wait()
	}
}

// routeSet is everything mountRoutes attaches to the server.
type routeSet struct {
	health        *handlers.HealthHandler
	auth          *handlers.AuthHandler
	users         *handlers.UserHandler
	posts         *handlers.PostHandler
	feed          *handlers.FeedHandler
	comments      *handlers.CommentHandler
	chats         *handlers.ChatHandler
	notifications *handlers.NotificationHandler
	verification  *handlers.VerificationHandler
	chatbot       *handlers.ChatbotHandler
	realtime      *handlers.RealtimeHandler

	sessions           *session.Manager
	verifiedIdentity   echo.MiddlewareFunc
	verificationSecret string
	userSource         loaders.UserSource
}

// SetupRoutes migrates the stores, wires repositories, services and handlers
// and mounts every route.
func SetupRoutes(ctx context.Context, e *echo.Echo, deps Dependencies) (*Background, error) {
	cfg, logger := deps.Config, deps.Logger

	// AutoMigrate PostgreSQL models
	if err := deps.Postgres.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.ChatThread{},
		&models.Message{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("postgres migrations completed")

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(deps.Postgres)
	chatRepo := repositories.NewPostgresChatRepository(deps.Postgres)
	postRepo := repositories.NewMongoPostRepository(deps.Mongo)
	commentRepo := repositories.NewMongoCommentRepository(deps.Mongo)
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("post indexes: %w", err)
	}
	if err := commentRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("comment indexes: %w", err)
	}

	// --- Services ---
	publisher := realtime.NewPublisher(deps.Redis)
	images := storage.NewImageStore(deps.Images, deps.Bucket, storage.DefaultMaxUploadSizeMB)
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL, deps.Identity, session.NewRevocationStore(deps.Redis))

	userService := services.NewUserService(userRepo, cfg.DefaultRadiusKm)
	notificationService := services.NewNotificationService(notificationRepo, publisher, logger)

	var worker *verifier.Worker
	var queue services.VerificationQueue
	if client := verifier.NewClient(cfg.VerificationURL, nil); client.Enabled() {
		worker = verifier.NewWorker(client, cfg.VerificationWorkers, verifier.DefaultQueueSize, logger)
		queue = worker
	} else {
		logger.Warn("VERIFICATION_URL not set; posts stay pending until the verification callback")
	}

	postService := services.NewPostService(services.PostServiceDeps{
		Posts:        postRepo,
		Comments:     commentRepo,
		Users:        userRepo,
		Images:       images,
		Notifier:     notificationService,
		Verification: queue,
		Publisher:    publisher,
		Radius:       userService,
		Logger:       logger,
	})
	commentService := services.NewCommentService(commentRepo, postRepo, userRepo, notificationService, logger)
	chatService := services.NewChatService(chatRepo, userRepo, publisher, logger)
	sweeper := services.NewSweeper(postRepo, commentRepo, images, cfg.SweepInterval, cfg.SweepBatchSize, logger)

	routes := routeSet{
		health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": func(ctx context.Context) error {
				sqlDB, err := deps.Postgres.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"mongo": func(ctx context.Context) error { return deps.Mongo.Client().Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		}),
		auth:          handlers.NewAuthHandler(userService, sessions),
		users:         handlers.NewUserHandler(userService, postService),
		posts:         handlers.NewPostHandler(postService),
		feed:          handlers.NewFeedHandler(postService),
		comments:      handlers.NewCommentHandler(commentService),
		chats:         handlers.NewChatHandler(chatService),
		notifications: handlers.NewNotificationHandler(notificationService),
		verification:  handlers.NewVerificationHandler(postService.ApplyVerification),
		chatbot:       handlers.NewChatbotHandler(chatbot.NewClient(cfg.ChatbotURL, nil)),
		realtime:      handlers.NewRealtimeHandler(realtime.NewBridge(publisher, logger)),

		sessions:           sessions,
		verifiedIdentity:   middleware.FirebaseAuthMiddleware(sessions),
		verificationSecret: cfg.VerificationSecret,
		userSource:         userRepo,
	}
	mountRoutes(e, routes)
	logger.Info("all routes configured")

	return &Background{Sweeper: sweeper, Verifier: worker, Posts: postService}, nil
}

func mountRoutes(e *echo.Echo, r routeSet) {
	// Health check and metrics - always accessible
	e.GET("/health", r.health.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"service": "nearby-api"})
	})

	authed := middleware.SessionAuthMiddleware(r.sessions)

	// --- Unprotected routes ---
	r.auth.RegisterAuthRoutes(e.Group("/api/v1/auth"), r.verifiedIdentity, authed)
	r.verification.RegisterVerificationRoutes(e.Group("/api/v1/verification"),
		middleware.SharedSecretMiddleware(middleware.VerificationSecretHeader, r.verificationSecret))

	// --- Protected routes ---
	api := e.Group("/api/v1", authed, loaders.Middleware(r.userSource))
	r.users.RegisterProfileRoutes(api)
	r.posts.RegisterPostRoutes(api)
	r.feed.RegisterFeedRoutes(api)
	r.comments.RegisterCommentRoutes(api)
	r.chats.RegisterChatRoutes(api)
	r.notifications.RegisterNotificationRoutes(api)
	r.chatbot.RegisterChatbotRoutes(api)
	r.realtime.RegisterRealtimeRoutes(api)
}
