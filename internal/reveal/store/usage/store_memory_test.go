package usage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestGet() {
	ctx := context.Background()

	s.Run("absent user returns nil", func() {
		u, err := s.store.Get(ctx, "u-missing")
		s.NoError(err)
		s.Nil(u)
	})

	s.Run("returns stored counter without rollover", func() {
		_, ok, err := s.store.IncrementIfUnder(ctx, "u1", "2026-08-28", 50)
		s.Require().NoError(err)
		s.Require().True(ok)

		// Read on a later day still sees the stale window untouched.
		u, err := s.store.Get(ctx, "u1")
		s.NoError(err)
		s.Equal(1, u.Count)
		s.Equal(models.Day("2026-08-28"), u.WindowDate)
	})

	s.Run("returned value is a copy", func() {
		_, _, err := s.store.IncrementIfUnder(ctx, "u2", "2026-08-28", 50)
		s.Require().NoError(err)

		u, err := s.store.Get(ctx, "u2")
		s.Require().NoError(err)
		u.Count = 999

		again, err := s.store.Get(ctx, "u2")
		s.NoError(err)
		s.Equal(1, again.Count)
	})
}

func (s *InMemoryStoreSuite) TestIncrementIfUnder() {
	ctx := context.Background()
	day := models.Day("2026-08-29")

	s.Run("lazily creates and counts up to the limit", func() {
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
	})

	s.Run("new day resets the counter", func() {
		for i := 0; i < 3; i++ {
			_, _, err := s.store.IncrementIfUnder(ctx, "u2", "2026-08-29", 3)
			s.Require().NoError(err)
		}

		count, ok, err := s.store.IncrementIfUnder(ctx, "u2", "2026-08-30", 3)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(1, count)
	})
}

// TestConcurrentIncrements verifies the check-and-increment is atomic:
// concurrent callers can never push the count past the limit.
func (s *InMemoryStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	day := models.Day("2026-08-29")
	const limit = 10
	const goroutines = 50

	var wg sync.WaitGroup
	var allowed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.store.IncrementIfUnder(ctx, dom.UserID("u-conc"), day, limit)
			s.NoError(err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(limit), allowed.Load())

	u, err := s.store.Get(ctx, "u-conc")
	s.Require().NoError(err)
	s.Equal(limit, u.Count)
}
