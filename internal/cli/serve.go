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

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	pgbank "trivia-quiz/internal/infra/postgres"
	redisstore "trivia-quiz/internal/infra/redis"
	"trivia-quiz/internal/provider/opentdb"
	transport "trivia-quiz/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand that runs the presentation-facing
// API: a websocket for transitions plus a snapshot endpoint.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quiz session API over HTTP and websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *port)
		},
	}
}

func runServe(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer service.Close()

	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/session", wsHandler.ServeSession)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session API on :%s", finalPort)
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

// buildService wires the provider and session store from config: a Postgres
// question bank when configured (migrations applied first), the remote
// trivia API otherwise; Redis persistence when configured, in-memory
// otherwise.
func buildService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	cleanup := func() {}

	var provider app.Provider
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, cleanup, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		provider = pgbank.NewQuestionBank(pool)
	} else {
		provider = newTriviaClient(cfg)
	}

	var store app.SessionStore = memory.NewSessionStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 0))
	}

	service := app.NewQuizService(provider, store, app.Settings{
		QuestionAmount: cfg.Provider.Amount,
		TimeLimit:      config.TimeLimitSeconds(cfg.Quiz.TimeLimit, domain.DefaultTimeLimit),
	})
	return service, cleanup, nil
}

func newTriviaClient(cfg config.Config) app.Provider {
	return opentdb.NewClient(cfg.Provider.BaseURL)
}
