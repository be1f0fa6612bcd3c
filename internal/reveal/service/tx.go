package service

import (
	"context"
	"sync"
	"time"

	"agencydesk/internal/reveal/ports"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
)

// ShardedTx serializes reveal units of work per user using sharded
// mutexes. Operations are distributed across N shards by a hash of the
// user id, so two users rarely contend while two requests for the same
// user always do. This is the in-memory counterpart of the PostgreSQL
// transaction runner wired in cmd/server.
const numShards = 128

// defaultTxTimeout bounds a reveal unit of work.
const defaultTxTimeout = 5 * time.Second

type ShardedTx struct {
	shards  [numShards]sync.Mutex
	usage   ports.UsageStore
	ledger  ports.LedgerStore
	timeout time.Duration
}

func NewShardedTx(usage ports.UsageStore, ledger ports.LedgerStore) *ShardedTx {
	return &ShardedTx{usage: usage, ledger: ledger}
}

func (t *ShardedTx) RunInTx(ctx context.Context, userID dom.UserID, fn func(usage ports.UsageStore, ledger ports.LedgerStore) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashUserID(userID) % numShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.usage, t.ledger)
}

// hashUserID uses FNV-1a for shard distribution.
func hashUserID(userID dom.UserID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	s := userID.String()
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
