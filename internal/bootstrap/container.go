package bootstrap

import (
	"context"
	"log"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/controller"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/internal/service"
	"ai-orchestrator-be/pkg/cache"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/embedding"
	"ai-orchestrator-be/pkg/llm/factory"
	"ai-orchestrator-be/pkg/memorystore"
	"ai-orchestrator-be/pkg/pipeline"
	"ai-orchestrator-be/pkg/pipeline/executor"
	"ai-orchestrator-be/pkg/pipeline/normalize"
	"ai-orchestrator-be/pkg/pipeline/planner"
	"ai-orchestrator-be/pkg/pipeline/resultcheck"
	"ai-orchestrator-be/pkg/pipeline/router"
	"ai-orchestrator-be/pkg/pipeline/synthesizer"
	"ai-orchestrator-be/pkg/pipeline/validator"
	"ai-orchestrator-be/pkg/tools"
	analyticstool "ai-orchestrator-be/pkg/tools/analytics"
	documenttool "ai-orchestrator-be/pkg/tools/document"

	pktNats "ai-orchestrator-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController controller.IQueryController

	// Background Services (Exposed for main.go to run)
	EventRelayService service.IEventRelayService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, cfg.Ai.OllamaModel)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Capability Contract
	contract, err := capability.LoadFromFile(cfg.Pipeline.CapabilityContractPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load capability contract: %v", err)
	}

	// 5. Infrastructure
	// NATS (optional; events are logged locally when unavailable)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis (optional; exact cache degrades to process-local)
	var exactStore cache.ExactStore
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory answer cache", err)
		exactStore = cache.NewMemoryExactStore(cfg.Pipeline.ExactCacheTTL)
	} else {
		exactStore = cache.NewRedisExactStore(rdb)
	}

	// 6. Caches and memory
	planCacheRepo := implementation.NewPlanCacheRepository(db)
	similarityStore := cache.NewSimilarityStore(planCacheRepo, embeddingProvider, cfg.Pipeline.SimilarityThreshold)
	memory := memorystore.NewStore(cfg.Pipeline.MemoryMaxItems, cfg.Pipeline.MemoryTokenBudget)

	// 7. Tool connectors
	registry := tools.NewRegistry()
	registry.Register("analytics", analyticstool.NewConnector(db))
	registry.Register("document", documenttool.NewConnector(cfg.Pipeline.DocumentServiceURL))

	// 8. Pipeline stages
	baselineRepo := implementation.NewBaselineRepository(db)
	anomalyPolicy := resultcheck.NewStatisticalPolicy(
		contract,
		baselineRepo,
		cfg.Pipeline.AnomalyDeviationRatio,
		cfg.Pipeline.AnomalyBaselineWindow,
	)

	eventPublisher := service.NewEventPublisherService(pubSub, service.TopicPipelineEvents)
	eventRelay := service.NewEventRelayService(pubSub, service.TopicPipelineEvents, natsPub)

	orchestrator := pipeline.NewOrchestrator(pipeline.OrchestratorDeps{
		Normalizer:      normalize.NewNormalizer(),
		ExactCache:      exactStore,
		SimilarityCache: similarityStore,
		Router:          router.NewRouter(),
		Planner:         planner.NewPlanner(llmProvider, contract, cfg.Pipeline.PlannerTokens, sysLogger),
		Validator:       validator.NewValidator(contract),
		Executor:        executor.NewExecutor(registry, contract, cfg.Pipeline.StepTimeout, cfg.Pipeline.MaxConcurrency, sysLogger),
		ResultChecker:   resultcheck.NewValidator(anomalyPolicy, sysLogger),
		Synthesizer:     synthesizer.NewSynthesizer(llmProvider, cfg.Pipeline.SynthesisTokens, cfg.Pipeline.MemoryTokenBudget, sysLogger),
		Memory:          memory,
		Contract:        contract,
		Publisher:       eventPublisher,
		Observer:        anomalyPolicy,
		ExactTTL:        cfg.Pipeline.ExactCacheTTL,
		Logger:          sysLogger,
	})

	queryService := service.NewQueryService(orchestrator, cfg.Pipeline.LLMTimeout)

	return &Container{
		QueryController:   controller.NewQueryController(queryService),
		EventRelayService: eventRelay,
	}
}
