package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examprep-engine/internal/app"
	"examprep-engine/internal/config"
	"examprep-engine/internal/domain"
	"examprep-engine/internal/infra/memory"
	pgstore "examprep-engine/internal/infra/postgres"
	redisstore "examprep-engine/internal/infra/redis"
	transport "examprep-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam engine server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var questions app.QuestionRepository
	var tests app.TestStore
	var results app.ResultStore

	switch {
	case pool != nil:
		questions = pgstore.NewQuestionRepository(pool)
		tests = pgstore.NewTestStore(pool)
		results = pgstore.NewResultStore(pool)
	default:
		questions = memory.NewQuestionBank(sampleBank()...)
		tests = memory.NewTestStore()
		results = memory.NewResultStore()
		log.Printf("no postgres configured, serving a generated in-memory bank")
	}
	if redisClient != nil {
		tests = redisstore.NewTestStore(redisClient, redisTTL)
	}

	engine := app.NewEngine(questions, tests, results, cfg.Engine.HistoryWindow)
	handler := transport.NewHandler(engine)
	wsHandler := transport.NewWSHandler(engine)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/ws/exam", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam engine on :%s", finalPort)
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

// sampleBank fabricates a bank large enough to assemble both demo patterns;
// swap in the Postgres repository (plus the seed command) for real content.
func sampleBank() []domain.Question {
	var bank []domain.Question

	jeeSubjects := []string{"Physics", "Chemistry", "Mathematics"}
	for _, subject := range jeeSubjects {
		for i := 0; i < 24; i++ {
			bank = append(bank, domain.Question{
				ID:           fmt.Sprintf("jee-%s-a-%02d", subject, i),
				ExamType:     domain.ExamJEE,
				Subject:      subject,
				Chapter:      fmt.Sprintf("Chapter %d", i%4+1),
				Topic:        fmt.Sprintf("Topic %d", i%6+1),
				Type:         domain.TypeSingle,
				Section:      domain.SectionA,
				Text:         fmt.Sprintf("%s sample question %d", subject, i),
				Options:      []string{"Option A", "Option B", "Option C", "Option D"},
				CorrectIndex: i % 4,
				Difficulty:   []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard}[i%3],
			})
		}
		for i := 0; i < 8; i++ {
			bank = append(bank, domain.Question{
				ID:           fmt.Sprintf("jee-%s-b-%02d", subject, i),
				ExamType:     domain.ExamJEE,
				Subject:      subject,
				Chapter:      fmt.Sprintf("Chapter %d", i%4+1),
				Topic:        fmt.Sprintf("Topic %d", i%6+1),
				Type:         domain.TypeNumerical,
				Section:      domain.SectionB,
				Text:         fmt.Sprintf("%s numerical question %d", subject, i),
				CorrectValue: float64(i) * 1.5,
				Difficulty:   []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard}[i%3],
			})
		}
	}

	neetCounts := map[string]int{"Physics": 50, "Chemistry": 50, "Biology": 95}
	for subject, count := range neetCounts {
		for i := 0; i < count; i++ {
			bank = append(bank, domain.Question{
				ID:           fmt.Sprintf("neet-%s-%02d", subject, i),
				ExamType:     domain.ExamNEET,
				Subject:      subject,
				Chapter:      fmt.Sprintf("Chapter %d", i%5+1),
				Topic:        fmt.Sprintf("Topic %d", i%8+1),
				Type:         domain.TypeSingle,
				Text:         fmt.Sprintf("%s NEET sample question %d", subject, i),
				Options:      []string{"Option A", "Option B", "Option C", "Option D"},
				CorrectIndex: i % 4,
				Difficulty:   []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard}[i%3],
			})
		}
	}
	return bank
}
