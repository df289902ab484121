package bootstrap

import (
	"context"
	"log"

	"ai-testgen-be/internal/config"
	"ai-testgen-be/internal/controller"
	"ai-testgen-be/internal/handler"
	"ai-testgen-be/internal/pkg/logger"
	"ai-testgen-be/internal/pkg/mailer"
	"ai-testgen-be/internal/repository/implementation"
	"ai-testgen-be/internal/repository/memory"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/internal/service"
	"ai-testgen-be/internal/websocket"
	"ai-testgen-be/pkg/embedding"
	"ai-testgen-be/pkg/llm/factory"

	pktNats "ai-testgen-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds everything main.go needs to run: controllers for the
// HTTP server plus the background workers it has to start itself.
type Container struct {
	UserController    controller.IUserController
	AuthController    controller.IAuthController
	SessionController controller.ISessionController
	TestgenController controller.ITestgenController

	ConsumerService service.IConsumerService

	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

// NewContainer wires the whole dependency graph. NATS and Redis are
// optional at startup: a failed connection logs a warning and the
// dependent features degrade (no events, no cross-instance locks)
// while generation itself keeps working.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// --- Infrastructure ---
	uowFactory := unitofwork.NewRepositoryFactory(db)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// In-process queue for embed jobs
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Hub gets its own log file; connection churn would drown the app log
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// --- AI providers ---
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// Ollama generation reuses the embedding server's URL unless
	// LLM_BASE_URL overrides it. Huggingface must not inherit that URL;
	// left empty, the factory fills in the router default.
	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Hot cache for generation state between stage calls
	stateRepo := memory.NewStateRepository()

	// --- Services ---
	publisherService := service.NewPublisherService(cfg.Ai.EmbedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.EmbedTopic,
		uowFactory,
		embeddingProvider,
	)

	userService := service.NewUserService(uowFactory, natsPub, cfg.App.BaseURL)
	authService := service.NewAuthService(uowFactory, emailService, natsPub)

	sessionService := service.NewSessionService(
		uowFactory,
		llmProvider,
		stateRepo,
		publisherService,
		natsPub,
		embeddingProvider,
	)

	testgenService := service.NewTestgenService(
		uowFactory,
		llmProvider,
		stateRepo,
		rdb,
		natsPub,
	)

	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsHub, emailService, wsLogger) // Hub implements NotificationDelivery

	if natsSub != nil {
		go notifService.Start()
	}

	// --- HTTP surface ---
	notifHandler := handler.NewNotificationHandler(notifService, natsPub, wsHub, wsLogger)

	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		UserController:      controller.NewUserController(userService),
		AuthController:      controller.NewAuthController(authService),
		SessionController:   controller.NewSessionController(sessionService),
		TestgenController:   controller.NewTestgenController(testgenService),

		ConsumerService: consumerService,
	}
}
