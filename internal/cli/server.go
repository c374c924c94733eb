package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"interview-rehearsal-service/internal/app"
	"interview-rehearsal-service/internal/config"
	"interview-rehearsal-service/internal/generation"
	"interview-rehearsal-service/internal/infra/memory"
	pgstore "interview-rehearsal-service/internal/infra/postgres"
	redisstore "interview-rehearsal-service/internal/infra/redis"
	"interview-rehearsal-service/internal/sampler"
	"interview-rehearsal-service/internal/session"
	transport "interview-rehearsal-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the interview rehearsal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	apiKey := cfg.Gemini.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	var generator generation.Generator
	if apiKey != "" {
		gem, err := generation.NewGeminiGenerator(ctx, apiKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		defer gem.Close()
		generator = gem
	} else {
		log.Printf("no gemini api key configured, serving built-in pools only")
	}

	poolSize := cfg.Pool.Size
	if poolSize <= 0 {
		poolSize = 10
	}
	source := generation.NewPoolSource(generator, nil, poolSize)

	poolTTL := config.TTLDuration(cfg.Pool.TTL, 10*time.Minute)
	var pools app.PoolRepository
	if redisClient != nil {
		pools = redisstore.NewPoolRepository(redisClient, source, poolTTL)
	} else {
		pools = memory.NewPoolRepository(source, poolTTL)
	}

	// The state store backs both selection history and session progress;
	// the redis variant expires progress at the restoration freshness window.
	var history sampler.HistoryStore
	var progress session.ProgressStore
	if redisClient != nil {
		state := redisstore.NewStateStore(redisClient, session.FreshnessWindow)
		history, progress = state, state
	} else {
		state := memory.NewStateStore()
		history, progress = state, state
	}

	var store app.InterviewStore
	if pool != nil {
		store = pgstore.NewInterviewStore(pool)
	} else {
		store = memory.NewInterviewStore()
	}

	questionCount := cfg.Session.QuestionCount
	if questionCount <= 0 {
		questionCount = 5
	}

	service := app.NewInterviewService(pools, sampler.New(history, nil), store, progress, questionCount)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewRESTHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting interview rehearsal service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
