// Package app wires the ieum-rag command line to the service.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/ieum/cmd/ieum-rag/app/options"
	"github.com/kart-io/ieum/internal/ieum"
	"github.com/kart-io/ieum/pkg/infra/app"
)

const commandDesc = `ieum-rag indexes meeting records, style templates and reference
material, answers questions from them and regenerates minutes from docx templates.

Configuration is read from ieum-rag.yaml (or -c), IEUM_RAG_* environment
variables and flags, in increasing order of precedence.`

// NewApp returns the ieum-rag command.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(ieum.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)
}

func run(opts *options.ServerOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := shutdownContext()
	defer stop()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return server.Run(ctx)
}

// shutdownContext 在 SIGINT/SIGTERM 时取消，第二次收到信号时直接退出。
func shutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
			return
		}
		<-sigs
		os.Exit(1)
	}()
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
