//go:build integration

package usage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"agencydesk/internal/reveal/models"
	"agencydesk/internal/reveal/store/usage"
	"agencydesk/pkg/testutil/containers"
)

const usageDDL = `
	CREATE TABLE IF NOT EXISTS user_usage (
		user_id     TEXT PRIMARY KEY,
		count       INTEGER NOT NULL DEFAULT 0,
		window_date DATE NOT NULL
	)
`

type PostgresUsageSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *usage.PostgresStore
}

func TestPostgresUsageSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUsageSuite))
}

func (s *PostgresUsageSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), usageDDL))
	s.store = usage.NewPostgres(s.postgres.DB)
}

func (s *PostgresUsageSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "user_usage"))
}

func (s *PostgresUsageSuite) TestIncrementCreatesCounter() {
	ctx := context.Background()
	day := models.Day("2026-08-29")

	count, ok, err := s.store.IncrementIfUnder(ctx, "u1", day, 50)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, count)

	u, err := s.store.Get(ctx, "u1")
	s.Require().NoError(err)
	s.Require().NotNil(u)
	s.Equal(1, u.Count)
	s.Equal(day, u.WindowDate)
}

func (s *PostgresUsageSuite) TestLimitEnforced() {
	ctx := context.Background()
	day := models.Day("2026-08-29")

	for i := 1; i <= 3; i++ {
		count, ok, err := s.store.IncrementIfUnder(ctx, "u1", day, 3)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(i, count)
	}

	count, ok, err := s.store.IncrementIfUnder(ctx, "u1", day, 3)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(3, count)

	// The denied attempt must not have mutated the counter.
	u, err := s.store.Get(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(3, u.Count)
}

func (s *PostgresUsageSuite) TestDayRolloverResets() {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, ok, err := s.store.IncrementIfUnder(ctx, "u1", "2026-08-29", 2)
		s.Require().NoError(err)
		s.True(ok)
	}
	_, ok, err := s.store.IncrementIfUnder(ctx, "u1", "2026-08-29", 2)
	s.Require().NoError(err)
	s.False(ok)

	// A new window starts from one even though the stored row was full.
	count, ok, err := s.store.IncrementIfUnder(ctx, "u1", "2026-08-30", 2)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, count)
}

// TestConcurrentIncrementsAtBoundary verifies the conditional increment
// admits exactly the remaining headroom under contention.
func (s *PostgresUsageSuite) TestConcurrentIncrementsAtBoundary() {
	ctx := context.Background()
	day := models.Day("2026-08-29")
	const limit = 50

	for i := 0; i < 45; i++ {
		_, ok, err := s.store.IncrementIfUnder(ctx, "u1", day, limit)
		s.Require().NoError(err)
		s.Require().True(ok)
	}

	const goroutines = 20
	var wg sync.WaitGroup
	var granted, denied atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.store.IncrementIfUnder(ctx, "u1", day, limit)
			if !s.NoError(err) {
				return
			}
			if ok {
				granted.Add(1)
			} else {
				denied.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(5), granted.Load())
	s.Equal(int32(15), denied.Load())

	u, err := s.store.Get(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(limit, u.Count)
}

func (s *PostgresUsageSuite) TestGetUnknownUser() {
	u, err := s.store.Get(context.Background(), "nobody")
	s.Require().NoError(err)
	s.Nil(u)
}
