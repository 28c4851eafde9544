package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"visitlog/internal/visit/models"
	"visitlog/internal/visit/store"
	dErrors "visitlog/pkg/domain-errors"
	"visitlog/pkg/requestcontext"
)

type VisitServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *VisitService
	ctx     context.Context
	now     time.Time
}

func (s *VisitServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.now = time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestVisitServiceSuite(t *testing.T) {
	suite.Run(t, new(VisitServiceSuite))
}

func (s *VisitServiceSuite) validParams() CreateParams {
	return CreateParams{
		RUT:         "12.345.678-5",
		VisitorName: "Maria Gonzalez",
		Reason:      "vendor meeting",
	}
}

func (s *VisitServiceSuite) TestCreate() {
	s.Run("registers a visit with assigned entry time", func() {
		visit, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)
		s.Equal(s.now, visit.EntryTime)
		s.Equal(models.StatusActive, visit.Status())
		s.Nil(visit.ExitTime)

		stored, err := s.store.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Equal(visit.VisitorName, stored.VisitorName)
	})

	s.Run("failing rut persists nothing", func() {
		before, err := s.store.Count(s.ctx)
		s.Require().NoError(err)

		params := s.validParams()
		params.RUT = "12345678-0"
		_, err = s.service.Create(s.ctx, params)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		after, err := s.store.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(before, after, "count of stored visits must be unchanged")
	})

	s.Run("missing name persists nothing", func() {
		params := s.validParams()
		params.VisitorName = ""
		_, err := s.service.Create(s.ctx, params)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *VisitServiceSuite) TestMarkDeparture() {
	visit, err := s.service.Create(s.ctx, s.validParams())
	s.Require().NoError(err)

	s.Run("first call completes the visit", func() {
		departCtx := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
		updated, err := s.service.MarkDeparture(departCtx, visit.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, updated.Status())
		s.Require().NotNil(updated.ExitTime)
		s.Equal(s.now.Add(time.Hour), *updated.ExitTime)
	})

	s.Run("second call is rejected without mutation", func() {
		laterCtx := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
		_, err := s.service.MarkDeparture(laterCtx, visit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := s.store.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Require().NotNil(stored.ExitTime)
		s.Equal(s.now.Add(time.Hour), *stored.ExitTime, "exit time must be unchanged")
	})

	s.Run("unknown visit returns not found", func() {
		_, err := s.service.MarkDeparture(s.ctx, uuid.New())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *VisitServiceSuite) TestUpdateBypassesDepartureGuard() {
	visit, err := s.service.Create(s.ctx, s.validParams())
	s.Require().NoError(err)
	_, err = s.service.MarkDeparture(s.ctx, visit.ID)
	s.Require().NoError(err)

	s.Run("can overwrite a recorded departure", func() {
		newExit := s.now.Add(3 * time.Hour)
		updated, err := s.service.Update(s.ctx, visit.ID, UpdateParams{
			RUT:         visit.RUT,
			VisitorName: visit.VisitorName,
			Reason:      "extended meeting",
			ExitTime:    &newExit,
		})
		s.Require().NoError(err)
		s.Require().NotNil(updated.ExitTime)
		s.Equal(newExit, *updated.ExitTime)
	})

	s.Run("can clear the departure, returning the visit to active", func() {
		updated, err := s.service.Update(s.ctx, visit.ID, UpdateParams{
			RUT:         visit.RUT,
			VisitorName: visit.VisitorName,
			Reason:      visit.Reason,
			ExitTime:    nil,
		})
		s.Require().NoError(err)
		s.Nil(updated.ExitTime)
		s.Equal(models.StatusActive, updated.Status())
	})

	s.Run("still validates the identifier", func() {
		_, err := s.service.Update(s.ctx, visit.ID, UpdateParams{
			RUT:         "AB1234-5",
			VisitorName: visit.VisitorName,
			Reason:      visit.Reason,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("entry time is immutable through update", func() {
		stored, err := s.store.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Equal(s.now, stored.EntryTime)
	})
}

func (s *VisitServiceSuite) TestDelete() {
	visit, err := s.service.Create(s.ctx, s.validParams())
	s.Require().NoError(err)

	s.Run("removes an active visit unconditionally", func() {
		s.Require().NoError(s.service.Delete(s.ctx, visit.ID))

		_, err := s.service.Get(s.ctx, visit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deleting again returns not found", func() {
		err := s.service.Delete(s.ctx, visit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *VisitServiceSuite) TestListings() {
	for i := 0; i < 12; i++ {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Create(ctx, s.validParams())
		s.Require().NoError(err)
	}
	// Complete two of them.
	actives, err := s.service.ListActive(s.ctx)
	s.Require().NoError(err)
	for _, v := range actives[:2] {
		_, err := s.service.MarkDeparture(s.ctx, v.ID)
		s.Require().NoError(err)
	}

	s.Run("paginated list reports total", func() {
		page, total, err := s.service.List(s.ctx, 10, 0)
		s.Require().NoError(err)
		s.Len(page, 10)
		s.Equal(12, total)
	})

	s.Run("status listings partition the records", func() {
		active, err := s.service.ListActive(s.ctx)
		s.Require().NoError(err)
		completed, err := s.service.ListCompleted(s.ctx)
		s.Require().NoError(err)
		s.Len(active, 10)
		s.Len(completed, 2)
	})

	s.Run("recent listing is capped at ten", func() {
		recent, err := s.service.ListRecent(s.ctx)
		s.Require().NoError(err)
		s.Len(recent, 10)
	})

	s.Run("export yields one row per visit with derived status", func() {
		rows, err := s.service.ExportRows(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(rows, 12)

		statuses := map[string]int{}
		for _, r := range rows {
			statuses[r.Status]++
			s.Len(r.Fields(), len(ExportHeader))
		}
		s.Equal(10, statuses["Active"])
		s.Equal(2, statuses["Completed"])
	})
}
