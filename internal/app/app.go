package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/auto-dns/myapp/internal/metrics"
)

// Server is the listener hook StartServer delegates to when one is wired.
type Server interface {
	Start(ctx context.Context) error
}

// App is a named application handle. The name is fixed at construction and
// never validated; empty and duplicate names are permitted.
type App struct {
	name      string
	out       io.Writer
	logger    zerolog.Logger
	telemetry metrics.Collector
	server    Server
}

// Option configures an App beyond its name.
type Option func(*App)

// WithOutput redirects the status line away from stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

func WithTelemetry(telemetry metrics.Collector) Option {
	return func(a *App) { a.telemetry = telemetry }
}

// WithServer wires a listener into the StartServer hook.
func WithServer(s Server) Option {
	return func(a *App) { a.server = s }
}

// New creates a new application handle wrapping name.
func New(name string, opts ...Option) *App {
	a := &App{
		name:      name,
		out:       os.Stdout,
		logger:    zerolog.Nop(),
		telemetry: metrics.Noop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the handle's identity.
func (a *App) Name() string {
	return a.name
}

// Run writes one status line naming the application. It is stateless:
// calling it k times writes k identical lines.
func (a *App) Run(ctx context.Context) error {
	a.telemetry.IncRun(a.name)
	if _, err := fmt.Fprintf(a.out, "Running %s\n", a.name); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	return nil
}

// StartServer starts the wired listener. On a handle without a server it
// completes immediately with no observable effect.
func (a *App) StartServer(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	a.logger.Info().Str("name", a.name).Msg("Starting server")
	return a.server.Start(ctx)
}
