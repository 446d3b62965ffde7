package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/PauloHFS/alm-rag/docs"
	"github.com/PauloHFS/alm-rag/internal/config"
	"github.com/PauloHFS/alm-rag/internal/db"
	"github.com/PauloHFS/alm-rag/internal/httpclient"
	"github.com/PauloHFS/alm-rag/internal/llm"
	"github.com/PauloHFS/alm-rag/internal/logging"
	"github.com/PauloHFS/alm-rag/internal/middleware"
	"github.com/PauloHFS/alm-rag/internal/rag"
	"github.com/PauloHFS/alm-rag/internal/sse"
	"github.com/PauloHFS/alm-rag/internal/telemetry"
	"github.com/PauloHFS/alm-rag/internal/vector"
	"github.com/PauloHFS/alm-rag/internal/web"
	"github.com/PauloHFS/alm-rag/internal/webhook"
	"github.com/PauloHFS/alm-rag/internal/worker"
)

// @title ALM RAG API
// @version 1.0
// @description Serviço de retrieval sobre a base de erros conhecidos: indexa embeddings produzidos pelo job de ingestão e responde consultas de similaridade.
// @host localhost:8002
// @BasePath /
func RunServer() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logging.Init()
	logger := logging.Get()

	// 1. Tracing (no-op com OTEL_EXPORTER=disabled)
	shutdownTracing, err := telemetry.Init(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		panic(err)
	}

	// 2. DB: pools separados de leitura/escrita sobre o mesmo arquivo
	pool, err := db.NewDualPool("sqlite3", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.RunMigrations(context.Background(), pool.Write); err != nil {
		logger.Error("failed to run migrations", "error", err)
		panic(err)
	}

	// 3. Índice em memória + loop de materialização. O startup NÃO
	// espera o primeiro build: /ready responde 503 até a primeira
	// geração ser publicada.
	state := vector.NewState()
	store := vector.NewStore(pool.Read, logger)
	broker := sse.NewBroker()

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	ix := worker.New(cfg, store, state, pool.Write, broker, logger)
	if err := ix.RescueZombies(workerCtx); err != nil {
		logger.Error("zombie hunter failed", "error", err)
	}
	go ix.Start(workerCtx)

	// 4. Cliente de embeddings (com transport logado e métricas)
	hc := httpclient.New(httpclient.Config{
		Name:    "embeddings",
		Timeout: 30 * time.Second,
	})
	llmOpts := []llm.ClientOption{
		llm.WithBaseURL(cfg.EmbeddingsURL),
		llm.WithModel(cfg.EmbeddingModel),
		llm.WithHTTPClient(hc.Client),
		llm.WithMaxRetries(3),
	}
	if cfg.EmbeddingsAPIKey != "" {
		llmOpts = append(llmOpts, llm.WithAPIKey(cfg.EmbeddingsAPIKey))
	}
	llmClient, err := llm.NewClient(llmOpts...)
	if err != nil {
		logger.Error("failed to create embeddings client", "error", err)
		panic(err)
	}
	embedder := vector.NewEmbedder(llmClient.WithMetrics(), cfg.EmbeddingModel)

	engine, err := rag.NewEngine(state, embedder, cfg.EmbeddingModel)
	if err != nil {
		logger.Error("failed to create query engine", "error", err)
		panic(err)
	}

	// 5. Rotas
	mux := http.NewServeMux()
	mux.Handle("GET "+web.Metrics, promhttp.Handler())
	mux.Handle("GET "+web.Swagger, httpSwagger.WrapHandler)
	mux.Handle("POST /webhooks/{source}", webhook.NewHandler(pool.Write, ix, logger))

	web.RegisterRoutes(mux, web.HandlerDeps{
		Engine:  engine,
		State:   state,
		Indexer: ix,
		Store:   store,
		Broker:  broker,
		Config:  cfg,
	})

	handler := middleware.Recovery(
		middleware.RateLimitDefault(
			middleware.SecurityHeaders(cfg.Env == "prod")(
				middleware.CORS(middleware.CORSFromEnv(cfg.CORSOrigins))(
					middleware.Logger(mux),
				),
			),
		),
	)

	compressedHandler := gzhttp.GzipHandler(handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: compressedHandler,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("server stopping")

	broker.Shutdown()
	cancelWorker()
	ix.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("tracing shutdown incomplete", "error", err)
	}

	logger.Info("server exited properly")
}
