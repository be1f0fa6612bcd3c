package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"agencydesk/internal/reveal/ports"
	dom "agencydesk/pkg/domain"
)

const revealedSetKeyPrefix = "reveals:"

// cacheTTL bounds the per-user revealed set so abandoned accounts age out.
// Entries are only ever positive and a pair never leaves the Granted state,
// so caching is safe; expiry just refills from the source of truth.
const cacheTTL = 24 * time.Hour

// RedisCache is a read-through cache over a LedgerStore for the bulk
// membership path used by listing. Writes pass straight through to the
// inner store; redis holds only positive memberships, so a cache miss is
// never taken as "unrevealed" without asking the inner store.
type RedisCache struct {
	inner  ports.LedgerStore
	client *redis.Client
}

func NewRedisCache(inner ports.LedgerStore, client *redis.Client) *RedisCache {
	return &RedisCache{inner: inner, client: client}
}

func (c *RedisCache) Has(ctx context.Context, userID dom.UserID, contactID dom.ContactID) (bool, error) {
	key := revealedSetKeyPrefix + userID.String()
	hit, err := c.client.SIsMember(ctx, key, contactID.String()).Result()
	if err == nil && hit {
		return true, nil
	}

	has, err := c.inner.Has(ctx, userID, contactID)
	if err != nil {
		return false, err
	}
	if has {
		c.add(ctx, key, contactID.String())
	}
	return has, nil
}

func (c *RedisCache) Record(ctx context.Context, userID dom.UserID, contactID dom.ContactID, at time.Time) (bool, error) {
	created, err := c.inner.Record(ctx, userID, contactID, at)
	if err != nil {
		return false, err
	}
	c.add(ctx, revealedSetKeyPrefix+userID.String(), contactID.String())
	return created, nil
}

func (c *RedisCache) Revealed(ctx context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error) {
	out := make(map[dom.ContactID]struct{})
	if len(ids) == 0 {
		return out, nil
	}

	key := revealedSetKeyPrefix + userID.String()
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		members = append(members, id.String())
	}

	misses := ids
	hits, err := c.client.SMIsMember(ctx, key, members...).Result()
	if err == nil && len(hits) == len(ids) {
		misses = misses[:0]
		for i, hit := range hits {
			if hit {
				out[ids[i]] = struct{}{}
			} else {
				misses = append(misses, ids[i])
			}
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	found, err := c.inner.Revealed(ctx, userID, misses)
	if err != nil {
		return nil, err
	}
	for id := range found {
		out[id] = struct{}{}
		c.add(ctx, key, id.String())
	}
	return out, nil
}

// add is best effort: a failed cache write only costs a future lookup.
func (c *RedisCache) add(ctx context.Context, key, member string) {
	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, cacheTTL)
	_, _ = pipe.Exec(ctx)
}
