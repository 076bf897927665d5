package database

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/auto-dns/myapp/internal/config"
	"github.com/auto-dns/myapp/internal/database/finitestate"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            "localhost",
		Port:            2379,
		MaxRetries:      3,
		RetryIntervalMs: 1,
		DialTimeoutMs:   50,
	}
}

func newTestConnection(t *testing.T, dial dialFunc) *Connection {
	t.Helper()
	conn, err := NewConnection(testConfig(), zerolog.Nop(), &countingCollector{})
	require.NoError(t, err)
	conn.dial = dial
	return conn
}

func TestConnectSuccess(t *testing.T) {
	cli := &fakeClient{}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return cli, nil
	})

	require.NoError(t, conn.Connect(context.Background()))
	require.Equal(t, finitestate.StatusConnected, conn.State())
	require.Same(t, Client(cli), conn.Client())
}

func TestConnectExhaustsRetryBudget(t *testing.T) {
	dials := 0
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		dials++
		return nil, errors.New("connection refused")
	})

	err := conn.Connect(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
	require.Equal(t, 3, dials)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
	require.Nil(t, conn.Client())
}

func TestConnectRecoversWithinBudget(t *testing.T) {
	dials := 0
	cli := &fakeClient{}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		dials++
		if dials < 3 {
			return nil, errors.New("connection refused")
		}
		return cli, nil
	})

	require.NoError(t, conn.Connect(context.Background()))
	require.Equal(t, 3, dials)
	require.Equal(t, finitestate.StatusConnected, conn.State())
}

func TestConnectClosesClientOnFailedPing(t *testing.T) {
	cli := &fakeClient{statusErr: errors.New("endpoint unreachable")}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return cli, nil
	})

	require.Error(t, conn.Connect(context.Background()))
	require.Equal(t, 3, cli.closes)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
}

func TestConnectWhileConnected(t *testing.T) {
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return &fakeClient{}, nil
	})
	require.NoError(t, conn.Connect(context.Background()))

	var target *AlreadyConnectedError
	require.ErrorAs(t, conn.Connect(context.Background()), &target)
	require.Equal(t, "localhost:2379", target.Endpoint)
}

func TestConnectHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		cancel()
		return nil, errors.New("connection refused")
	})

	require.ErrorIs(t, conn.Connect(ctx), context.Canceled)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
}

func TestDisconnectBeforeConnect(t *testing.T) {
	conn := newTestConnection(t, nil)

	var target *NotConnectedError
	require.ErrorAs(t, conn.Disconnect(), &target)
}

func TestDisconnectReleasesClient(t *testing.T) {
	cli := &fakeClient{}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return cli, nil
	})
	require.NoError(t, conn.Connect(context.Background()))

	require.NoError(t, conn.Disconnect())
	require.Equal(t, 1, cli.closes)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
	require.Nil(t, conn.Client())

	// A second disconnect has nothing to release.
	var target *NotConnectedError
	require.ErrorAs(t, conn.Disconnect(), &target)
}

func TestWithConnectionReleasesOnSuccess(t *testing.T) {
	cli := &fakeClient{}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return cli, nil
	})

	var seen Client
	err := conn.WithConnection(context.Background(), func(ctx context.Context, client Client) error {
		seen = client
		return nil
	})
	require.NoError(t, err)
	require.Same(t, Client(cli), seen)
	require.Equal(t, 1, cli.closes)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
}

func TestWithConnectionReleasesOnError(t *testing.T) {
	sentinel := errors.New("query failed")
	cli := &fakeClient{}
	conn := newTestConnection(t, func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		return cli, nil
	})

	err := conn.WithConnection(context.Background(), func(ctx context.Context, client Client) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, cli.closes)
	require.Equal(t, finitestate.StatusDisconnected, conn.State())
}

func TestConnectRecordsAttemptOutcomes(t *testing.T) {
	telemetry := &countingCollector{}
	conn, err := NewConnection(testConfig(), zerolog.Nop(), telemetry)
	require.NoError(t, err)

	dials := 0
	conn.dial = func(ctx context.Context, cfg *config.DatabaseConfig) (Client, error) {
		dials++
		if dials < 2 {
			return nil, errors.New("connection refused")
		}
		return &fakeClient{}, nil
	}

	require.NoError(t, conn.Connect(context.Background()))
	require.Equal(t, 1, telemetry.failures)
	require.Equal(t, 1, telemetry.successes)
}

type fakeClient struct {
	statusErr error
	closes    int
}

func (c *fakeClient) Status(ctx context.Context, endpoint string) (*clientv3.StatusResponse, error) {
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	return &clientv3.StatusResponse{}, nil
}

func (c *fakeClient) Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	return &clientv3.LeaseGrantResponse{}, nil
}

func (c *fakeClient) KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error) {
	return &clientv3.LeaseKeepAliveResponse{}, nil
}

func (c *fakeClient) Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (c *fakeClient) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	return &clientv3.PutResponse{}, nil
}

func (c *fakeClient) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	return &clientv3.DeleteResponse{}, nil
}

func (c *fakeClient) Close() error {
	c.closes++
	return nil
}

type countingCollector struct {
	runs      int
	successes int
	failures  int
	beats     int
}

func (c *countingCollector) IncRun(string) { c.runs++ }

func (c *countingCollector) IncConnectAttempt(outcome string) {
	if outcome == "success" {
		c.successes++
	} else {
		c.failures++
	}
}

func (c *countingCollector) IncHeartbeat() { c.beats++ }
