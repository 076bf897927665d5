package registry

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

type etcdClient interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
}

// Registry records a serving instance's presence in the backing store.
type Registry interface {
	Register(ctx context.Context, name string) error
	Deregister(ctx context.Context) error
	Heartbeat(ctx context.Context) error
}
