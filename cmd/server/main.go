package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tess-backend/config"
	"tess-backend/handlers"
	"tess-backend/llm"
	"tess-backend/observability"
	"tess-backend/repository"
	"tess-backend/service"
	"tess-backend/sources"
	"tess-backend/storage"
	"tess-backend/tools"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	// Postgres is opened only when a backend needs it
	var db *pgxpool.Pool
	if cfg.Dossier.Backend == config.DossierBackendPostgres || cfg.Sources.Backend == config.SourcesBackendPostgres {
		db, err = initPostgres(ctx, cfg.Dossier.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		defer db.Close()
	}

	dossierRepo, closeRepo, err := initDossierRepository(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize dossier repository: %v", err)
	}
	defer closeRepo()

	retriever, err := initRetriever(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize source retriever: %v", err)
	}

	llmClient, err := initLLM(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// Initialize services
	registry, err := tools.NewRegistry(tools.Defaults(retriever, llmClient, cfg.Turn.SearchLimit)...)
	if err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}
	resolver := tools.NewResolver(registry,
		tools.WithMaxParallel(cfg.Turn.MaxParallelTools),
		tools.WithMetrics(metrics),
	)
	store := service.NewDossierStore(dossierRepo, service.WithStoreMetrics(metrics))
	orchestrator := service.NewOrchestrator(llmClient, resolver, store,
		service.WithFinalizing(cfg.Turn.FinalizeWithLLM),
		service.WithMaxToolRounds(cfg.Turn.MaxToolRounds),
		service.WithOrchestratorMetrics(metrics),
	)
	chatService := service.NewChatService(orchestrator, store, service.WithChatMetrics(metrics))

	// Initialize handlers
	cleanupAge, _ := cfg.CleanupAge()
	router := handlers.NewRouter(
		handlers.NewChatHandler(chatService),
		handlers.NewDossierHandler(store, cleanupAge),
		reg,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port,
			"llm_provider", cfg.LLM.Provider,
			"dossier_backend", cfg.Dossier.Backend,
			"sources_backend", cfg.Sources.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("postgres connection established")
	return pool, nil
}

func initDossierRepository(cfg *config.Config, db *pgxpool.Pool) (repository.DossierRepository, func(), error) {
	noop := func() {}

	switch cfg.Dossier.Backend {
	case config.DossierBackendPostgres:
		return repository.NewPostgresDossierRepository(db), noop, nil

	case config.DossierBackendSQLite:
		repo, err := repository.NewSQLiteDossierRepository(cfg.Dossier.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil

	case config.DossierBackendStorage:
		blobs, err := storage.NewStorage(storage.StorageConfig{
			Type:         storage.StorageType(cfg.Storage.Type),
			LocalPath:    cfg.Storage.LocalPath,
			S3Bucket:     cfg.Storage.S3Bucket,
			S3Region:     cfg.Storage.S3Region,
			S3Prefix:     cfg.Storage.S3Prefix,
			AWSAccessKey: cfg.Storage.AWSAccessKey,
			AWSSecretKey: cfg.Storage.AWSSecretKey,
			RedisURL:     cfg.Storage.RedisURL,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("dossier storage initialized", "type", cfg.Storage.Type)
		closer := noop
		if rs, ok := blobs.(*storage.RedisStorage); ok {
			closer = func() { rs.Close() }
		}
		return repository.NewSnapshotRepository(blobs), closer, nil

	default:
		slog.Warn("Warning: dossiers are kept in memory and are lost on restart")
		return repository.NewMemoryDossierRepository(), noop, nil
	}
}

func initRetriever(cfg *config.Config, db *pgxpool.Pool) (sources.Retriever, error) {
	switch cfg.Sources.Backend {
	case config.SourcesBackendPostgres:
		return repository.NewSourceRepository(db), nil

	case config.SourcesBackendMeili:
		return sources.NewMeiliRetriever(cfg.Sources.MeiliURL, cfg.Sources.MeiliAPIKey), nil

	default:
		if cfg.Sources.CatalogFile != "" {
			return sources.LoadCatalogFile(cfg.Sources.CatalogFile)
		}
		slog.Info("using built-in sample catalog")
		return sources.DefaultCatalog(), nil
	}
}

func initLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	backoff, _ := cfg.InitialBackoff()

	var client llm.Client
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		if cfg.LLM.OpenAIAPIKey == "" {
			slog.Warn("Warning: OPENAI_API_KEY not set")
		}
		oc := openai.DefaultConfig(cfg.LLM.OpenAIAPIKey)
		if cfg.LLM.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.LLM.OpenAIBaseURL
		}
		client = llm.NewOpenAIClient(openai.NewClientWithConfig(oc),
			llm.WithOpenAIModel(cfg.LLM.Model),
			llm.WithOpenAITemperature(cfg.LLM.Temperature),
		)

	default:
		if cfg.LLM.GeminiAPIKey == "" {
			slog.Warn("Warning: GEMINI_API_KEY not set")
		}
		gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.LLM.GeminiAPIKey))
		if err != nil {
			return nil, err
		}
		client = llm.NewGeminiClient(gc,
			llm.WithGeminiModel(cfg.LLM.Model),
			llm.WithGeminiTemperature(cfg.LLM.Temperature),
		)
	}

	slog.Info("llm client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return llm.WithRetry(client, cfg.LLM.MaxRetries, backoff), nil
}
