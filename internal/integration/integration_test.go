package integration

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	pgbank "trivia-quiz/internal/infra/postgres"
	pgmigrations "trivia-quiz/internal/infra/postgres/migrations"
	redisstore "trivia-quiz/internal/infra/redis"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	provider := pgbank.NewQuestionBankWithRand(pool, rand.New(rand.NewSource(1)))
	store := redisstore.NewSessionStore(redisClient, time.Hour)
	service := app.NewQuizService(provider, store, app.Settings{QuestionAmount: 2, TickInterval: time.Hour})
	defer service.Close()

	service.SetEmail("taker@example.com")
	if err := service.BeginLoad(ctx); err != nil {
		t.Fatalf("begin load: %v", err)
	}

	snapshot := service.Snapshot()
	if snapshot.Status != domain.StatusReady || len(snapshot.Questions) != 2 {
		t.Fatalf("expected 2 questions ready, got %+v", snapshot)
	}

	// Answer the first question correctly and submit.
	correct := snapshot.Questions[0].CorrectAnswer
	if err := service.SelectAnswer(0, correct); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := service.Navigate(1); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := service.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	report := service.Report()
	if report.Correct != 1 || report.Attempted != 1 || report.Total != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// A fresh process sees the submitted session through Redis.
	restored := app.NewQuizService(provider, store, app.Settings{QuestionAmount: 2, TickInterval: time.Hour})
	defer restored.Close()
	again := restored.Snapshot()
	if again.Status != domain.StatusSubmitted || again.Email != "taker@example.com" {
		t.Fatalf("expected submitted session restored, got %+v", again)
	}
	if again.SubmittedAt == nil {
		t.Fatalf("expected submittedAt preserved")
	}

	// Reset clears both the session and the saved email.
	restored.Reset()
	if got := store.Load(); !got.Empty() {
		t.Fatalf("expected empty store after reset, got %+v", got)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rows := []string{
		`{"question": "What is the capital of France?", "correct_answer": "Paris", "incorrect_answers": ["Rome", "Madrid"]}`,
		`{"question": "Who wrote &quot;Hamlet&quot;?", "correct_answer": "Shakespeare", "incorrect_answers": ["Marlowe", "Jonson"]}`,
	}
	for _, row := range rows {
		if _, err := db.ExecContext(ctx, `INSERT INTO questions (data) VALUES (?::jsonb)`, row); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
