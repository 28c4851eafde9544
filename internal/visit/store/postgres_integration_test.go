//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"visitlog/internal/visit/models"
	"visitlog/internal/visit/store"
	"visitlog/pkg/platform/sentinel"
	"visitlog/pkg/testutil/containers"
)

type PostgresVisitStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresVisitStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVisitStoreSuite))
}

func (s *PostgresVisitStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresVisitStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "visits"))
}

func (s *PostgresVisitStoreSuite) makeVisit(entry time.Time) *models.Visit {
	visit, err := models.NewVisit("12.345.678-5", "Maria Gonzalez", "vendor meeting", entry)
	s.Require().NoError(err)
	return visit
}

func (s *PostgresVisitStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	visit := s.makeVisit(time.Now().UTC().Truncate(time.Microsecond))

	s.Require().NoError(s.store.Create(ctx, visit))

	found, err := s.store.FindByID(ctx, visit.ID)
	s.Require().NoError(err)
	s.Equal(visit.RUT, found.RUT)
	s.Equal(visit.VisitorName, found.VisitorName)
	s.True(visit.EntryTime.Equal(found.EntryTime))
	s.Nil(found.ExitTime)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresVisitStoreSuite) TestListOrderingAndStatus() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	var newest *models.Visit
	for i := 0; i < 3; i++ {
		v := s.makeVisit(base.Add(time.Duration(i) * time.Minute))
		s.Require().NoError(s.store.Create(ctx, v))
		newest = v
	}
	exit := base.Add(time.Hour)
	newest.ExitTime = &exit
	s.Require().NoError(s.store.Update(ctx, newest))

	listed, err := s.store.List(ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal(newest.ID, listed[0].ID, "newest entry first")

	active, err := s.store.ListByStatus(ctx, true)
	s.Require().NoError(err)
	s.Len(active, 2)

	completed, err := s.store.ListByStatus(ctx, false)
	s.Require().NoError(err)
	s.Require().Len(completed, 1)
	s.Equal(newest.ID, completed[0].ID)

	total, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, total)
}

func (s *PostgresVisitStoreSuite) TestExecuteSerializesDeparture() {
	ctx := context.Background()
	visit := s.makeVisit(time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, visit))

	const goroutines = 10
	var wg sync.WaitGroup
	var wins atomic.Int32
	now := time.Now().UTC()

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, visit.ID,
				func(v *models.Visit) error { return v.CanDepart() },
				func(v *models.Visit) { v.ApplyDeparture(now) },
			)
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one goroutine records the departure")

	stored, err := s.store.FindByID(ctx, visit.ID)
	s.Require().NoError(err)
	s.NotNil(stored.ExitTime)
}

func (s *PostgresVisitStoreSuite) TestDelete() {
	ctx := context.Background()
	visit := s.makeVisit(time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, visit))

	s.Require().NoError(s.store.Delete(ctx, visit.ID))
	s.Require().ErrorIs(s.store.Delete(ctx, visit.ID), sentinel.ErrNotFound)
}
