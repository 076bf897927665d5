package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/auto-dns/myapp/internal/config"
	"github.com/auto-dns/myapp/internal/database/finitestate"
	"github.com/auto-dns/myapp/internal/metrics"
	"github.com/rs/zerolog"
)

// Client is the subset of the etcd client the application uses.
type Client interface {
	Status(ctx context.Context, endpoint string) (*clientv3.StatusResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Close() error
}

type dialFunc func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error)

func defaultDial(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{cfg.Endpoint()},
		DialTimeout: cfg.DialTimeout(),
		Context:     ctx,
	})
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// Connection is a database connection handle with an enforced lifecycle:
// Connect transitions it to connected, Disconnect releases the client and
// returns it to disconnected. At most one live connection per handle.
type Connection struct {
	cfg       *config.DatabaseConfig
	logger    zerolog.Logger
	telemetry metrics.Collector
	machine   finitestate.Machine
	dial      dialFunc

	mu     sync.Mutex
	client Client
}

// NewConnection creates a disconnected handle for the configured endpoint.
func NewConnection(cfg *config.DatabaseConfig, logger zerolog.Logger, telemetry metrics.Collector) (*Connection, error) {
	machine, err := finitestate.New(slog.Default().Handler())
	if err != nil {
		return nil, fmt.Errorf("create connection state machine: %w", err)
	}
	if telemetry == nil {
		telemetry = metrics.Noop()
	}
	return &Connection{
		cfg:       cfg,
		logger:    logger,
		telemetry: telemetry,
		machine:   machine,
		dial:      defaultDial,
	}, nil
}

// Connect dials the configured endpoint, verifying it with a status call.
// It retries up to cfg.MaxRetries attempts, cfg.RetryInterval apart, and
// fails with AlreadyConnectedError if the handle is already connected.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.GetState() == finitestate.StatusConnected {
		return NewAlreadyConnectedError(c.cfg.Endpoint())
	}
	if err := c.machine.Transition(finitestate.StatusConnecting); err != nil {
		return fmt.Errorf("begin connect: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		cli, err := c.dial(ctx, c.cfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout())
			_, err = cli.Status(pingCtx, c.cfg.Endpoint())
			cancel()
			if err == nil {
				c.client = cli
				c.telemetry.IncConnectAttempt(metrics.OutcomeSuccess)
				c.logger.Info().Str("endpoint", c.cfg.Endpoint()).Int("attempt", attempt).Msg("Database connected")
				return c.machine.Transition(finitestate.StatusConnected)
			}
			cli.Close()
		}
		lastErr = err
		c.telemetry.IncConnectAttempt(metrics.OutcomeFailure)
		c.logger.Warn().Err(err).Str("endpoint", c.cfg.Endpoint()).Int("attempt", attempt).Msg("Database dial failed")

		if attempt == c.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			c.machine.Transition(finitestate.StatusDisconnected)
			return ctx.Err()
		case <-time.After(c.cfg.RetryInterval()):
		}
	}

	c.machine.Transition(finitestate.StatusDisconnected)
	return fmt.Errorf("connect to %s after %d attempts: %w", c.cfg.Endpoint(), c.cfg.MaxRetries, lastErr)
}

// Disconnect releases the client. Calling it on a handle that was never
// connected fails with NotConnectedError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.GetState() != finitestate.StatusConnected {
		return NewNotConnectedError()
	}
	err := c.client.Close()
	c.client = nil
	if terr := c.machine.Transition(finitestate.StatusDisconnected); terr != nil {
		return fmt.Errorf("end disconnect: %w", terr)
	}
	if err != nil {
		return fmt.Errorf("close database client: %w", err)
	}
	c.logger.Info().Str("endpoint", c.cfg.Endpoint()).Msg("Database disconnected")
	return nil
}

// WithConnection runs fn against a freshly acquired connection and
// guarantees release on all exit paths, including fn failure.
func (c *Connection) WithConnection(ctx context.Context, fn func(ctx context.Context, client Client) error) (err error) {
	if err = c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := c.Disconnect(); derr != nil && err == nil {
			err = derr
		}
	}()
	return fn(ctx, c.Client())
}

// Client returns the live client, or nil when disconnected.
func (c *Connection) Client() Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// State reports the handle's current lifecycle state.
func (c *Connection) State() string {
	return c.machine.GetState()
}
