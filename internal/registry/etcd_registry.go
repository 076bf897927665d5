package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/auto-dns/myapp/internal/config"
	"github.com/auto-dns/myapp/internal/metrics"
	"github.com/rs/zerolog"
)

// EtcdRegistry stores one leased presence key per registered instance. The
// key disappears on its own once the lease expires, so a crashed instance
// deregisters itself after the TTL.
type EtcdRegistry struct {
	client    etcdClient
	cfg       *config.DatabaseConfig
	hostname  string
	logger    zerolog.Logger
	telemetry metrics.Collector

	key     string
	leaseID clientv3.LeaseID
}

func NewEtcdRegistry(client etcdClient, cfg *config.DatabaseConfig, hostname string, logger zerolog.Logger, telemetry metrics.Collector) *EtcdRegistry {
	if telemetry == nil {
		telemetry = metrics.Noop()
	}
	return &EtcdRegistry{
		client:    client,
		cfg:       cfg,
		hostname:  hostname,
		logger:    logger,
		telemetry: telemetry,
	}
}

// instanceKey builds the presence key for an application name.
func (r *EtcdRegistry) instanceKey(name string) string {
	return fmt.Sprintf("%s/instances/%s", r.cfg.PathPrefix, name)
}

// instanceValue builds the JSON value stored under the presence key.
func (r *EtcdRegistry) instanceValue(name string) (string, error) {
	data := map[string]interface{}{
		"name":     name,
		"hostname": r.hostname,
		"pid":      os.Getpid(),
		"started":  time.Now().Format(time.RFC3339),
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Register writes the instance's presence key under a lease.
func (r *EtcdRegistry) Register(ctx context.Context, name string) error {
	lease, err := r.client.Grant(ctx, r.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}
	key := r.instanceKey(name)
	value, err := r.instanceValue(name)
	if err != nil {
		return fmt.Errorf("encode instance value: %w", err)
	}
	if _, err := r.client.Put(ctx, key, value, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("put instance key: %w", err)
	}
	r.key = key
	r.leaseID = lease.ID
	r.logger.Info().Str("key", key).Int64("lease_ttl", r.cfg.LeaseTTL).Msg("Instance registered")
	return nil
}

// Deregister removes the presence key and revokes its lease. It is a no-op
// on an instance that never registered.
func (r *EtcdRegistry) Deregister(ctx context.Context) error {
	if r.key == "" {
		return nil
	}
	if _, err := r.client.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("delete instance key: %w", err)
	}
	if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("revoke lease: %w", err)
	}
	r.logger.Info().Str("key", r.key).Msg("Instance deregistered")
	r.key = ""
	r.leaseID = 0
	return nil
}

// Heartbeat keeps the lease alive until the context is canceled. A failed
// keepalive is logged and retried on the next tick; the lease TTL decides
// when the registration actually lapses.
func (r *EtcdRegistry) Heartbeat(ctx context.Context) error {
	if r.key == "" {
		return fmt.Errorf("heartbeat before register")
	}
	ticker := time.NewTicker(r.cfg.HeartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Stopping registry heartbeat")
			return nil
		case <-ticker.C:
			if _, err := r.client.KeepAliveOnce(ctx, r.leaseID); err != nil {
				r.logger.Warn().Err(err).Str("key", r.key).Msg("Lease keepalive failed")
				continue
			}
			r.telemetry.IncHeartbeat()
		}
	}
}
