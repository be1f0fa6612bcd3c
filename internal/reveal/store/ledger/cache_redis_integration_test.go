//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agencydesk/internal/reveal/store/ledger"
	dom "agencydesk/pkg/domain"
	"agencydesk/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *ledger.InMemoryStore
	cache *ledger.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = ledger.NewInMemory()
	s.cache = ledger.NewRedisCache(s.inner, s.redis.Client)
}

func (s *RedisCacheSuite) TestRecordPopulatesCache() {
	ctx := context.Background()
	contactID := dom.NewContactID()

	created, err := s.cache.Record(ctx, "u1", contactID, time.Now())
	s.Require().NoError(err)
	s.True(created)

	hit, err := s.redis.Client.SIsMember(ctx, "reveals:u1", contactID.String()).Result()
	s.Require().NoError(err)
	s.True(hit)

	has, err := s.cache.Has(ctx, "u1", contactID)
	s.Require().NoError(err)
	s.True(has)
}

// TestReadThroughFillsFromInner: entries written behind the cache's back
// (the transactional path bypasses it) are still found and cached.
func (s *RedisCacheSuite) TestReadThroughFillsFromInner() {
	ctx := context.Background()
	contactID := dom.NewContactID()

	_, err := s.inner.Record(ctx, "u1", contactID, time.Now())
	s.Require().NoError(err)

	has, err := s.cache.Has(ctx, "u1", contactID)
	s.Require().NoError(err)
	s.True(has)

	hit, err := s.redis.Client.SIsMember(ctx, "reveals:u1", contactID.String()).Result()
	s.Require().NoError(err)
	s.True(hit)
}

func (s *RedisCacheSuite) TestRevealedMixesHitsAndMisses() {
	ctx := context.Background()

	cached := dom.NewContactID()
	uncached := dom.NewContactID()
	absent := dom.NewContactID()

	_, err := s.cache.Record(ctx, "u1", cached, time.Now())
	s.Require().NoError(err)
	_, err = s.inner.Record(ctx, "u1", uncached, time.Now())
	s.Require().NoError(err)

	out, err := s.cache.Revealed(ctx, "u1", []dom.ContactID{cached, uncached, absent})
	s.Require().NoError(err)
	s.Len(out, 2)
	s.Contains(out, cached)
	s.Contains(out, uncached)

	// The miss that resolved positive is now cached too.
	hit, err := s.redis.Client.SIsMember(ctx, "reveals:u1", uncached.String()).Result()
	s.Require().NoError(err)
	s.True(hit)
}

// TestCacheMissNeverMeansUnrevealed: flushing redis must not flip any pair
// back to unrevealed.
func (s *RedisCacheSuite) TestCacheMissNeverMeansUnrevealed() {
	ctx := context.Background()
	contactID := dom.NewContactID()

	_, err := s.cache.Record(ctx, "u1", contactID, time.Now())
	s.Require().NoError(err)

	s.Require().NoError(s.redis.FlushAll(ctx))

	has, err := s.cache.Has(ctx, "u1", contactID)
	s.Require().NoError(err)
	s.True(has)
}
