package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"linepump/internal/logging"
	"linepump/internal/pipeline"
	"linepump/internal/telemetry"
)

type Engine struct {
	runner  *pipeline.Runner
	metrics *telemetry.Metrics
	server  *telemetry.Server // nil when metrics are off
}

// Run pumps in to completion. The transformer and sinks are closed on every
// return path, which is where the exit-time flush happens.
func (e *Engine) Run(ctx context.Context, in io.Reader) error {
	g, gctx := errgroup.WithContext(ctx)

	if e.server != nil {
		g.Go(e.server.Serve)
	}

	g.Go(func() error {
		defer e.stopServer()
		runErr := e.runner.Run(gctx, in)
		logging.L().Debug("pump stopped", "err", runErr)
		return errors.Join(runErr, e.runner.Close())
	})

	return g.Wait()
}

func (e *Engine) stopServer() {
	if e.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		logging.L().Warn("metrics shutdown", "err", err)
	}
}
