package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smart-outreach-go/internal/db"
	"smart-outreach-go/internal/handlers"
	"smart-outreach-go/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the dispatch scheduler",
		RunE: runWithEnv(true, func(ctx context.Context, _ *cobra.Command, env *Env, _ []string) error {
			logrus.SetFormatter(&logrus.JSONFormatter{})
			logrus.Info("Starting Smart Outreach Service")
			return serve(ctx, env)
		}),
	}
}

func serve(ctx context.Context, env *Env) error {
	cfg := env.Config

	if err := db.Migrate(env.DB); err != nil {
		return err
	}

	sched, err := env.Scheduler(ctx)
	if err != nil {
		return err
	}

	services := handlers.Services{
		Store:     env.Store,
		Manager:   env.Manager,
		Planner:   env.Planner,
		Importer:  env.Importer,
		Renderer:  env.Renderer,
		Scheduler: sched,
	}
	if inbox, err := env.Replies(ctx); err == nil {
		services.Inbox = inbox
		if services.Replies, err = env.ReplyTracker(ctx); err != nil {
			return err
		}
	}

	router := server.SetupRouter(handlers.NewHandlers(services), env.Registry)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Scheduler.AutoStart {
		if err := sched.Start(); err != nil {
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			sched.Stop()
			return err
		}
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
