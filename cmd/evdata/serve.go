package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evdata/evdata/internal/api"
	"github.com/evdata/evdata/internal/config"
	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/db"
	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/logger"
	"github.com/evdata/evdata/internal/query"
	"github.com/evdata/evdata/internal/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the report workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Component("main")
	log.WithField("node_id", cfg.NodeID).Info("starting evdata")

	engine := query.New(dataset.NewLoader(cfg.DataRoot), cfg.DatasetFile)
	if err := engine.Init(); err != nil {
		// The server still starts; queries retry the load on demand.
		log.WithError(err).Warn("dataset not loaded at startup")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("close result store")
		}
	}()

	exec := job.NewExecutor(store,
		job.WithWorkers(cfg.Workers),
		job.WithMaxRetries(cfg.MaxRetries),
		job.WithRetryDelay(cfg.RetryDelay),
	)
	report.Register(exec, report.NewGenerator(engine, report.WithDelay(cfg.ReportDelay)))
	exec.Start()
	defer exec.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     api.NewRouter(cfg, engine, exec),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-done:
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config) (job.JobStore, error) {
	switch cfg.ResultBackend {
	case config.BackendBadger:
		dbStore, err := db.NewStore(cfg.ResultDir)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return job.NewPersistentStore(dbStore), nil
	case config.BackendSQLite:
		s, err := job.NewSQLStore(cfg.ResultDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return job.NewStore(), nil
	}
}
