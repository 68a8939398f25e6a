package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/internal/server"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(ctx context.Context, cc *commandContext) error {
	cfg := cc.config
	log := cc.logger

	shutdownTracing, err := tracing.Setup(ctx, cfg.TracingConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("Failed to flush traces")
		}
	}()

	a := newApp(cc, appOptions{store: true, sources: true})
	defer func() {
		if err := a.stop(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Error("Shutdown failed")
		}
	}()

	if err := a.start(ctx); err != nil {
		return err
	}

	containerID := config.AppName + "-" + uuid.NewString()
	if _, err := handlers.NewContainer(containerID, handlers.Deps{
		Resolver:  a.pipeline,
		Ranker:    a.ranker,
		Reviewer:  a.review,
		Conflicts: a.conflicts,
	}); err != nil {
		return fmt.Errorf("dependency container: %w", err)
	}

	srv := server.New(cfg.Server, server.Handlers{
		ContainerID: containerID,
		Resolution:  handlers.NewResolutionHandler(log),
		Decision:    handlers.NewDecisionHandler(log),
		Conflict:    handlers.NewConflictHandler(log),
	}, a.checker, log)

	// a second pass only starts the listener; the backends are already up
	a.startup.AddDependency(srv)
	if err := a.startup.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil
	case err, ok := <-srv.Errors():
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
