//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"visitlog/internal/auth/models"
	"visitlog/internal/auth/store"
	"visitlog/pkg/platform/sentinel"
	"visitlog/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "users"))
}

func (s *PostgresUserStoreSuite) makeUser(username string) *models.User {
	user, err := models.NewUser(username, "$2a$10$fakehashfakehashfakehash", false, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return user
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	user := s.makeUser("reception")
	s.Require().NoError(s.store.Create(ctx, user))

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("reception", byID.Username)

	byName, err := s.store.FindByUsername(ctx, "reception")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByUsername(ctx, "ghost")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestDuplicateUsernameConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.makeUser("reception")))

	err := s.store.Create(ctx, s.makeUser("reception"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}
