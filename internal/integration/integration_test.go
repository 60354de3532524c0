package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
	"examprep-engine/internal/infra/postgres"
	pgmigrations "examprep-engine/internal/infra/postgres/migrations"
	infraredis "examprep-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestExamLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	questions := postgres.NewQuestionRepository(pool)
	if err := questions.Insert(ctx, seedQuestions()); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	tests := infraredis.NewTestStore(redisClient, 5*time.Minute)
	results := postgres.NewResultStore(pool)
	engine := app.NewEngine(questions, tests, results, 20)

	test, err := engine.ActiveDemo(ctx, domain.ExamJEE)
	if err != nil {
		t.Fatalf("active demo: %v", err)
	}
	if len(test.QuestionIDs) != 75 {
		t.Fatalf("expected 75 questions in the JEE demo, got %d", len(test.QuestionIDs))
	}

	again, err := engine.ActiveDemo(ctx, domain.ExamJEE)
	if err != nil {
		t.Fatalf("active demo again: %v", err)
	}
	if again.ID != test.ID {
		t.Fatalf("demo singleton not stable: %s vs %s", test.ID, again.ID)
	}

	// Answer the first two questions correctly, one wrong, rest blank.
	ordered, err := questions.ByIDs(ctx, test.QuestionIDs[:3])
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	byID := map[string]domain.Question{}
	for _, q := range ordered {
		byID[q.ID] = q
	}
	answers := app.RawAnswers{}
	for i, id := range test.QuestionIDs[:3] {
		q, ok := byID[id]
		if !ok {
			t.Fatalf("question %s not returned by ByIDs", id)
		}
		switch {
		case i < 2:
			answers[id] = q.CorrectAnswer()
		case q.Type == domain.TypeNumerical:
			answers[id] = q.CorrectValue + 10
		default:
			answers[id] = (q.CorrectIndex + 1) % len(q.Options)
		}
	}

	result, err := engine.Submit(ctx, test.ID, "u1", answers, 1800)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 2 || result.Incorrect != 1 || result.Unattempted != 72 {
		t.Fatalf("unexpected tally: correct=%d incorrect=%d unattempted=%d",
			result.Correct, result.Incorrect, result.Unattempted)
	}

	report, err := engine.AnalyzePerformance(ctx, "u1", "Physics")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(report.Attempted) != 3 {
		t.Fatalf("expected 3 attempted ids in history, got %d", len(report.Attempted))
	}

	aiTest, aiQuestions, err := engine.GenerateAITest(ctx, "u1", domain.ExamJEE, "Physics", 10)
	if err != nil {
		t.Fatalf("generate ai test: %v", err)
	}
	if aiTest.Kind != domain.KindAI || len(aiQuestions) != 10 {
		t.Fatalf("unexpected ai test: kind=%s questions=%d", aiTest.Kind, len(aiQuestions))
	}
	for _, q := range aiQuestions {
		if q.Subject != "Physics" {
			t.Fatalf("ai test leaked a %s question", q.Subject)
		}
	}

	// The ai test is persisted and readable through the redis store.
	stored, err := engine.Test(ctx, aiTest.ID)
	if err != nil {
		t.Fatalf("reload ai test: %v", err)
	}
	if len(stored.QuestionIDs) != 10 {
		t.Fatalf("stored ai test has %d questions", len(stored.QuestionIDs))
	}
}

func seedQuestions() []domain.Question {
	var out []domain.Question
	for _, subject := range []string{"Physics", "Chemistry", "Mathematics"} {
		for i := 0; i < 25; i++ {
			out = append(out, domain.Question{
				ID:           fmt.Sprintf("%s-a-%d", strings.ToLower(subject), i),
				ExamType:     domain.ExamJEE,
				Subject:      subject,
				Chapter:      "Chapter 1",
				Topic:        fmt.Sprintf("Topic %d", i%4),
				Type:         domain.TypeSingle,
				Section:      domain.SectionA,
				Text:         fmt.Sprintf("%s question %d", subject, i),
				Options:      []string{"1", "2", "3", "4"},
				CorrectIndex: i % 4,
			})
		}
		for i := 0; i < 8; i++ {
			out = append(out, domain.Question{
				ID:           fmt.Sprintf("%s-b-%d", strings.ToLower(subject), i),
				ExamType:     domain.ExamJEE,
				Subject:      subject,
				Chapter:      "Chapter 2",
				Topic:        fmt.Sprintf("Topic %d", i%2),
				Type:         domain.TypeNumerical,
				Section:      domain.SectionB,
				Text:         fmt.Sprintf("%s numerical %d", subject, i),
				CorrectValue: float64(i) * 1.5,
			})
		}
	}
	return out
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
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
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
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
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
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
