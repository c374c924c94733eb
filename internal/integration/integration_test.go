package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
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

	"interview-rehearsal-service/internal/app"
	"interview-rehearsal-service/internal/domain"
	"interview-rehearsal-service/internal/generation"
	pgstore "interview-rehearsal-service/internal/infra/postgres"
	pgmigrations "interview-rehearsal-service/internal/infra/postgres/migrations"
	infraredis "interview-rehearsal-service/internal/infra/redis"
	"interview-rehearsal-service/internal/sampler"
	"interview-rehearsal-service/internal/session"
)

type grantingCapture struct{}

type grantedHandle struct{ lost chan struct{} }

func (h *grantedHandle) Lost() <-chan struct{} { return h.lost }
func (h *grantedHandle) Release()              {}

func (grantingCapture) Acquire(context.Context) (session.CaptureHandle, error) {
	return &grantedHandle{lost: make(chan struct{})}, nil
}

func TestInterviewEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	state := infraredis.NewStateStore(redisClient, session.FreshnessWindow)
	pools := infraredis.NewPoolRepository(redisClient, generation.NewPoolSource(nil, nil, 10), 5*time.Minute)
	store := pgstore.NewInterviewStore(pool)
	svc := app.NewInterviewService(pools, sampler.New(state, nil), store, state, 5, session.WithTickInterval(0))

	first := runSession(t, svc, "u1", "introduce yourself briefly and professionally with plenty of detail")
	if first.ID == 0 || first.TotalQuestions != 5 {
		t.Fatalf("unexpected first summary %+v", first)
	}
	if first.Improved != nil {
		t.Fatalf("first interview improved = %v, want nil", *first.Improved)
	}

	// Completed sessions must leave no recovery snapshot behind.
	exists, err := redisClient.Exists(ctx, "interview:progress:u1:hr-interview").Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("progress snapshot survived completion")
	}

	second := runSession(t, svc, "u1", "")
	if second.Improved == nil || *second.Improved {
		t.Fatalf("zero-score second interview improved = %v, want false", second.Improved)
	}

	list, err := svc.ListInterviews(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest-first list of 2, got %+v", list)
	}

	detail, err := svc.GetInterview(ctx, first.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Items) != 5 || detail.Items[0].Feedback == "" {
		t.Fatalf("expected 5 scored items with feedback, got %+v", detail.Items)
	}

	stats, err := svc.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalInterviews != 2 || stats.BestScore != first.OverallScore || stats.DeclinedCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := svc.DeleteInterview(ctx, first.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetInterview(ctx, first.ID, "u1"); !errors.Is(err, domain.ErrInterviewNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func runSession(t *testing.T, svc *app.InterviewService, userID, answer string) domain.InterviewSummary {
	t.Helper()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		summary domain.InterviewSummary
		saveErr error
	)
	m, err := svc.StartSession(ctx, "hr-interview", userID, grantingCapture{}, func(s domain.InterviewSummary, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary, saveErr = s, err
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := m.EditAnswer(ctx, answer); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
		if err := m.Next(ctx); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if saveErr != nil {
		t.Fatalf("completion save: %v", saveErr)
	}
	return summary
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
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
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "interview", "POSTGRES_PASSWORD": "interviewpass", "POSTGRES_DB": "interviewdb"},
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
	dsn := fmt.Sprintf("postgres://interview:interviewpass@%s:%s/interviewdb?sslmode=disable", host, port.Port())
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
