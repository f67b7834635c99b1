package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httpadapter "almsdesk/internal/adapters/http"
	pg "almsdesk/internal/adapters/postgres"
	"almsdesk/internal/config"
	"almsdesk/internal/ports"
	donationsvc "almsdesk/internal/services/donations"
	donorsvc "almsdesk/internal/services/donors"
	matchersvc "almsdesk/internal/services/matcher"
	"almsdesk/internal/services/mergesvc"
	resolutionsvc "almsdesk/internal/services/resolution"
	"almsdesk/internal/workers/matchrunner"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Warn("config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pg.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	var (
		_ ports.DonorRepository    = db
		_ ports.DonationRepository = db
		_ ports.NoteRepository     = db
		_ ports.MergeRepository    = db
		_ ports.JobRepository      = db
	)

	matcher := matchersvc.New(db, db, matchersvc.Config{
		NameThreshold:    cfg.NameThreshold,
		AddressThreshold: cfg.AddressThreshold,
		CandidateLimit:   cfg.CandidateLimit,
	}, log)
	donations := donationsvc.New(db, db, db, matcher, log)
	donors := donorsvc.New(db, db, db, log)
	resolutions := resolutionsvc.New(db, log)
	merges := mergesvc.New(db, log)

	srv := httpadapter.New(donations, donors, matcher, resolutions, merges, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	if cfg.MatchWorkers > 0 {
		matchrunner.Run(ctx, db, matcher, cfg.MatchWorkers, 500*time.Millisecond, log)
		log.Info("match workers started", zap.Int("count", cfg.MatchWorkers))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Info("listening", zap.String("addr", cfg.ListenAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal("server error", zap.Error(err))
	}
}
