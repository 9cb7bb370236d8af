package infra_postgres_room

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/reelroom/core/internal/model"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
	"github.com/stretchr/testify/assert"
)

type RoomInfraUnitSuite struct {
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

func roomColumns() []string {
	return []string{
		"id", "owner_id", "agreement_count", "status",
		"media_type", "genres", "filters_applied", "matched_item_id", "created_at",
	}
}

func (suite *RoomInfraUnitSuite) TestByID(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, roomID model.RoomID)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should map a room row to the domain",
			setupMocks: func(r *resources, roomID model.RoomID) {
				rows := sqlmock.NewRows(roomColumns()).AddRow(
					roomID, uuid.New(), 2, model.RoomStatusActive,
					model.MediaTypeMovie, "{28,12}", true, nil, time.Now().UTC(),
				)
				r.mock.ExpectQuery("FROM rooms").
					WithArgs(roomID).
					WillReturnRows(rows)
			},
		},
		{
			name: "Should translate no rows into not found",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.mock.ExpectQuery("FROM rooms").
					WithArgs(roomID).
					WillReturnRows(sqlmock.NewRows(roomColumns()))
			},
			expectError:   true,
			expectedError: usecase_room.ErrResourceNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()
			tc.setupMocks(r, roomID)

			room, err := r.driver.ByID(r.ctx, roomID)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, roomID, room.ID)
				assert.True(t, room.Filters.Applied)
				assert.Equal(t, []string{"28", "12"}, room.Filters.Genres)
				assert.Nil(t, room.MatchedItemID)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *RoomInfraUnitSuite) TestSetFilters(t provider.T) {
	t.Parallel()

	filters := model.Filters{MediaType: model.MediaTypeMovie, Genres: []string{"28"}}

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, roomID model.RoomID)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should apply filters on the first write",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.mock.ExpectExec("UPDATE rooms").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Should reject the write when filters were already applied",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.mock.ExpectExec("UPDATE rooms").
					WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectQuery("SELECT EXISTS").
					WithArgs(roomID).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expectError:   true,
			expectedError: usecase_room.ErrImmutableFilter,
		},
		{
			name: "Should distinguish a missing room from an applied filter",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.mock.ExpectExec("UPDATE rooms").
					WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectQuery("SELECT EXISTS").
					WithArgs(roomID).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			expectError:   true,
			expectedError: usecase_room.ErrResourceNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()
			tc.setupMocks(r, roomID)

			err := r.driver.SetFilters(r.ctx, roomID, filters)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *RoomInfraUnitSuite) TestCommitMatch(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		rowsAffected int64
		expected     bool
	}{
		{
			name:         "Should win the transition on an active room",
			rowsAffected: 1,
			expected:     true,
		},
		{
			name:         "Should lose the transition when the room left ACTIVE",
			rowsAffected: 0,
			expected:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()

			r.mock.ExpectExec("UPDATE rooms").
				WithArgs(model.RoomStatusMatched, "603", roomID, model.RoomStatusActive).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			committed, err := r.driver.CommitMatch(r.ctx, roomID, "603")

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, committed)
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *RoomInfraUnitSuite) TestSetStatus(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		rowsAffected int64
		expected     bool
	}{
		{
			name:         "Should move the room when it is in the expected state",
			rowsAffected: 1,
			expected:     true,
		},
		{
			name:         "Should report a miss when the state moved underneath",
			rowsAffected: 0,
			expected:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()

			r.mock.ExpectExec("UPDATE rooms").
				WithArgs(model.RoomStatusActive, roomID, model.RoomStatusWaiting).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			moved, err := r.driver.SetStatus(r.ctx, roomID, model.RoomStatusWaiting, model.RoomStatusActive)

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, moved)
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(RoomInfraUnitSuite))
}
