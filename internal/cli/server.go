package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cartie-training-service/internal/app"
	"cartie-training-service/internal/config"
	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/infra/memory"
	pgstore "cartie-training-service/internal/infra/postgres"
	rediscache "cartie-training-service/internal/infra/redis"
	"cartie-training-service/internal/logging"
	"cartie-training-service/internal/render"
	transport "cartie-training-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the training service",
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

	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

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
		defer pool.Close()
	}

	var (
		locations app.LocationRepository
		questions app.QuestionRepository
		ledgers   app.LedgerRepository
		progress  app.ProgressRepository
		certs     app.CertificateRepository
		sequence  app.Sequence
	)
	if pool != nil {
		locations = pgstore.NewLocationLoader(pool)
		questions = pgstore.NewQuestionLoader(pool)
		ledgers = pgstore.NewLedgerRepository(pool)
		progress = pgstore.NewProgressRepository(pool)
		certs = pgstore.NewCertificateRepository(pool)
		sequence = pgstore.NewSequence(pool, pgstore.CertificateCounterName)
	} else {
		locations = memory.NewLocationStore(sampleLocations())
		questions = memory.NewQuestionStore(sampleQuestions())
		ledgers = memory.NewLedgerStore()
		progress = memory.NewProgressStore()
		certs = memory.NewCertificateStore()
		sequence = memory.NewSequence()
	}

	answerTTL := config.TTLDuration(cfg.Quiz.AnswerTTL, 10*time.Minute)
	var answers app.AnswerSource
	if redisClient != nil {
		answers = rediscache.NewAnswerCache(redisClient, questions, answerTTL)
	} else {
		answers = memory.NewAnswerCache(questions, answerTTL)
	}

	// Catalog and user records are owned by the content and auth subsystems;
	// this service reads seeded projections until those integrations land.
	catalog := memory.NewCatalog(sampleCatalog())
	users := memory.NewUserDirectory(sampleUsers())

	resolver := app.NewResolver(locations)
	assessments := app.NewAssessmentService(resolver, locations, questions, answers, ledgers, log).
		WithQuizCap(cfg.Quiz.Cap)

	progressService := app.NewProgressService(progress, catalog, log)
	if cfg.Progress.ToleranceSeconds > 0 {
		progressService = progressService.WithTolerance(cfg.Progress.ToleranceSeconds)
	}

	artifactDir := cfg.Certificate.ArtifactDir
	if artifactDir == "" {
		artifactDir = "artifacts"
	}
	artifactBaseURL := cfg.Certificate.ArtifactBaseURL
	if artifactBaseURL == "" {
		artifactBaseURL = "/certs"
	}
	renderer := render.NewCertificateRenderer(render.NewFileStore(artifactDir, artifactBaseURL))

	certService := app.NewCertificateService(certs, sequence, renderer, users, locations, log)
	if cfg.Certificate.IssuedBy != "" {
		certService = certService.WithIssuedBy(cfg.Certificate.IssuedBy)
	}
	if cfg.Certificate.RequireCompletion {
		certService = certService.WithCompletionGate(app.NewTrainingGate(ledgers, progress, catalog))
	}

	handler := transport.NewHandler(assessments, progressService, certService, log)
	mux := handler.Routes()
	wsHandler := transport.NewProgressWSHandler(progressService, log)
	mux.HandleFunc("/ws/progress", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting training service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleLocations seeds the in-memory fallback used when no database is
// configured; production deployments run against Postgres.
func sampleLocations() []domain.Location {
	return []domain.Location{
		{
			ID:   "loc-springfield",
			Name: "Springfield Depot",
			Boundary: domain.Polygon{
				{Lon: -89.72, Lat: 39.74}, {Lon: -89.58, Lat: 39.74},
				{Lon: -89.58, Lat: 39.84}, {Lon: -89.72, Lat: 39.84},
			},
		},
		{ID: "loc-nationwide", Name: "Nationwide", Default: true},
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:         "q-speed",
			LocationID: "loc-nationwide",
			Prompt:     "What should you do when approaching a school zone?",
			Options: []domain.Option{
				{ID: "q-speed-o1", Text: "Maintain speed"},
				{ID: "q-speed-o2", Text: "Slow to the posted limit and watch for children", Correct: true},
				{ID: "q-speed-o3", Text: "Sound the horn"},
			},
		},
		{
			ID:         "q-follow",
			LocationID: "loc-nationwide",
			Prompt:     "What is a safe following distance in dry conditions?",
			Options: []domain.Option{
				{ID: "q-follow-o1", Text: "One second"},
				{ID: "q-follow-o2", Text: "Three seconds or more", Correct: true},
				{ID: "q-follow-o3", Text: "Half a car length"},
			},
		},
	}
}

func sampleCatalog() map[string][]domain.CatalogSection {
	return map[string][]domain.CatalogSection{
		"loc-nationwide": {
			{
				ID:     "sec-basics",
				Number: "1",
				Title:  "Driving Basics",
				Videos: []domain.CatalogVideo{
					{ID: "v-mirrors", Title: "Mirror Checks", DurationSeconds: 180},
					{ID: "v-signals", Title: "Signaling", DurationSeconds: 240},
				},
			},
		},
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "u-demo", Email: "demo@example.com", Name: "Demo Driver"},
	}
}
