package infra_postgres_vote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/reelroom/core/internal/model"
	usecase_vote "github.com/reelroom/core/internal/usecase/vote"
	"github.com/stretchr/testify/assert"
)

type VoteInfraUnitSuite struct {
	suite.Suite
}

type resources struct {
	db     *sqlx.DB
	mock   sqlmock.Sqlmock
	driver *Driver
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	driver := New(sqlxDB)

	return &resources{
		db:     sqlxDB,
		mock:   mock,
		driver: driver,
		ctx:    context.Background(),
	}
}

func validVote() model.Vote {
	return model.Vote{
		RoomID:   uuid.New(),
		UserID:   uuid.New(),
		ItemID:   "603",
		VoteType: model.VoteLike,
		CastAt:   time.Now().UTC(),
	}
}

func (suite *VoteInfraUnitSuite) TestInsert(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, vote model.Vote)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should insert a vote",
			setupMocks: func(r *resources, vote model.Vote) {
				r.mock.ExpectExec("INSERT INTO votes").
					WithArgs(vote.RoomID, vote.UserID, vote.ItemID, vote.VoteType, vote.CastAt).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "Should translate a unique violation into a duplicate vote",
			setupMocks: func(r *resources, vote model.Vote) {
				r.mock.ExpectExec("INSERT INTO votes").
					WithArgs(vote.RoomID, vote.UserID, vote.ItemID, vote.VoteType, vote.CastAt).
					WillReturnError(&pq.Error{Code: uniqueViolation})
			},
			expectError:   true,
			expectedError: usecase_vote.ErrDuplicateVote,
		},
		{
			name: "Should pass through other database errors",
			setupMocks: func(r *resources, vote model.Vote) {
				r.mock.ExpectExec("INSERT INTO votes").
					WithArgs(vote.RoomID, vote.UserID, vote.ItemID, vote.VoteType, vote.CastAt).
					WillReturnError(errors.New("connection reset"))
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			vote := validVote()
			tc.setupMocks(r, vote)

			err := r.driver.Insert(r.ctx, vote)

			if tc.expectError {
				assert.Error(t, err)
				if tc.expectedError != nil {
					assert.ErrorIs(t, err, tc.expectedError)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *VoteInfraUnitSuite) TestTallyLikes(t provider.T) {
	t.Parallel()

	r := initResources(t)
	roomID := uuid.New()

	rows := sqlmock.NewRows([]string{"item_id", "likes"}).
		AddRow("603", 2).
		AddRow("550", 1)
	r.mock.ExpectQuery("FROM votes").
		WithArgs(roomID, model.VoteLike).
		WillReturnRows(rows)

	tally, err := r.driver.TallyLikes(r.ctx, roomID)

	assert.NoError(t, err)
	assert.Equal(t, map[string]int{"603": 2, "550": 1}, tally)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func (suite *VoteInfraUnitSuite) TestVotedCounts(t provider.T) {
	t.Parallel()

	r := initResources(t)
	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	rows := sqlmock.NewRows([]string{"user_id", "voted"}).
		AddRow(alice, 50).
		AddRow(bob, 12)
	r.mock.ExpectQuery("FROM votes").
		WithArgs(roomID).
		WillReturnRows(rows)

	counts, err := r.driver.VotedCounts(r.ctx, roomID)

	assert.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{alice: 50, bob: 12}, counts)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(VoteInfraUnitSuite))
}
