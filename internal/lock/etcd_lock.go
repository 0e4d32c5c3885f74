package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
)

const releaseTimeout = 2 * time.Second

type etcdClient interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
}

// EtcdLocker holds the orchestration lock as a leased key in etcd. The lease
// is kept alive for as long as the lock is held.
type EtcdLocker struct {
	client etcdClient
	cfg    config.LockConfig
	owner  string
	logger zerolog.Logger
}

func NewEtcdLocker(client etcdClient, cfg config.LockConfig, owner string, logger zerolog.Logger) *EtcdLocker {
	return &EtcdLocker{
		client: client,
		cfg:    cfg,
		owner:  owner,
		logger: logger,
	}
}

func (l *EtcdLocker) Acquire(ctx context.Context) (func(), error) {
	leaseResp, err := l.client.Grant(ctx, l.cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create lease: %w", err)
	}

	acquired := false
	deadline := time.Now().Add(l.cfg.Timeout)
	for {
		txnResp, err := l.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(l.cfg.Key), "=", 0)).
			Then(clientv3.OpPut(l.cfg.Key, l.owner, clientv3.WithLease(leaseResp.ID))).
			Commit()
		if err != nil {
			l.revoke(leaseResp.ID)
			return nil, fmt.Errorf("lock transaction on %s: %w", l.cfg.Key, err)
		}
		if txnResp.Succeeded {
			acquired = true
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-time.After(l.cfg.RetryInterval):
		case <-ctx.Done():
			l.revoke(leaseResp.ID)
			return nil, ctx.Err()
		}
	}
	if !acquired {
		l.revoke(leaseResp.ID)
		return nil, fmt.Errorf("%w: %s is held in etcd", ErrLocked, l.cfg.Key)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	ch, err := l.client.KeepAlive(keepCtx, leaseResp.ID)
	if err != nil {
		l.logger.Warn().Err(err).Str("key", l.cfg.Key).Msg("Lease keep-alive failed; lock expires with its TTL")
	} else {
		go func() {
			for range ch {
			}
		}()
	}
	l.logger.Debug().Str("key", l.cfg.Key).Str("owner", l.owner).Msg("Orchestration lock acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			l.release(leaseResp.ID)
		})
	}, nil
}

func (l *EtcdLocker) release(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if _, err := l.client.Delete(ctx, l.cfg.Key); err != nil {
		l.logger.Warn().Err(err).Msgf("failed to delete lock key %s", l.cfg.Key)
	}
	if _, err := l.client.Revoke(ctx, id); err != nil {
		l.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", l.cfg.Key)
	}
	l.logger.Debug().Str("key", l.cfg.Key).Msg("Orchestration lock released")
}

func (l *EtcdLocker) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if _, err := l.client.Revoke(ctx, id); err != nil {
		l.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", l.cfg.Key)
	}
}
