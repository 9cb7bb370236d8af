package usecase_room

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/reelroom/core/internal/model"
	repo_mocks "github.com/reelroom/core/internal/usecase/room/mocks/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UsecaseRoomUnitSuite struct {
	suite.Suite
}

type resources struct {
	usecase  *Usecase
	roomRepo *repo_mocks.RoomRepository
	ctx      context.Context
}

func initResources(t provider.T) *resources {
	roomRepo := repo_mocks.NewRoomRepository(t)
	usecase := New(roomRepo)

	return &resources{
		roomRepo: roomRepo,
		usecase:  usecase,
		ctx:      context.Background(),
	}
}

func activeRoom(id model.RoomID) model.Room {
	return model.Room{
		ID:             id,
		OwnerID:        uuid.New(),
		AgreementCount: 2,
		Status:         model.RoomStatusActive,
	}
}

func (suite *UsecaseRoomUnitSuite) TestCreate(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		agreementCount int
		filters        model.Filters
		setupMocks     func(r *resources)
		expectError    bool
		expectedError  error
		expectApplied  bool
	}{
		{
			name:           "Should create room without filters",
			agreementCount: 2,
			filters:        model.Filters{},
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).Return(nil).Once()
				r.roomRepo.On("AddParticipant", r.ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
			},
			expectApplied: false,
		},
		{
			name:           "Should mark filters applied when given at creation",
			agreementCount: 3,
			filters:        model.Filters{MediaType: model.MediaTypeMovie, Genres: []string{"28"}},
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).Return(nil).Once()
				r.roomRepo.On("AddParticipant", r.ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
			},
			expectApplied: true,
		},
		{
			name:           "Should reject agreement count below minimum",
			agreementCount: 1,
			filters:        model.Filters{},
			setupMocks:     func(r *resources) {},
			expectError:    true,
			expectedError:  ErrInvalidAgreement,
		},
		{
			name:           "Should reject zero agreement count",
			agreementCount: 0,
			filters:        model.Filters{},
			setupMocks:     func(r *resources) {},
			expectError:    true,
			expectedError:  ErrInvalidAgreement,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			room, err := r.usecase.Create(r.ctx, uuid.New(), tc.agreementCount, tc.filters)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, room.ID)
				assert.Equal(t, model.RoomStatusWaiting, room.Status)
				assert.Equal(t, tc.agreementCount, room.AgreementCount)
				assert.Equal(t, tc.expectApplied, room.Filters.Applied)
			}
			r.roomRepo.AssertExpectations(t)
		})
	}
}

func (suite *UsecaseRoomUnitSuite) TestUpdateFilters(t provider.T) {
	t.Parallel()

	newFilters := model.Filters{MediaType: model.MediaTypeShow, Genres: []string{"18"}}

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, roomID model.RoomID)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should allow first filter write on a bare room",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(activeRoom(roomID), nil).Once()
				applied := newFilters
				applied.Applied = true
				r.roomRepo.On("SetFilters", r.ctx, roomID, applied).Return(nil).Once()
			},
		},
		{
			name: "Should reject second filter write",
			setupMocks: func(r *resources, roomID model.RoomID) {
				room := activeRoom(roomID)
				room.Filters = model.Filters{MediaType: model.MediaTypeMovie, Applied: true}
				r.roomRepo.On("ByID", r.ctx, roomID).Return(room, nil).Once()
			},
			expectError:   true,
			expectedError: ErrImmutableFilter,
		},
		{
			name: "Should surface a lost race against a concurrent first write",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(activeRoom(roomID), nil).Once()
				applied := newFilters
				applied.Applied = true
				r.roomRepo.On("SetFilters", r.ctx, roomID, applied).Return(ErrImmutableFilter).Once()
			},
			expectError:   true,
			expectedError: ErrImmutableFilter,
		},
		{
			name: "Should return not found for unknown room",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(model.Room{}, ErrResourceNotFound).Once()
			},
			expectError:   true,
			expectedError: ErrResourceNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()
			tc.setupMocks(r, roomID)

			err := r.usecase.UpdateFilters(r.ctx, roomID, newFilters)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
			r.roomRepo.AssertExpectations(t)
		})
	}
}

func (suite *UsecaseRoomUnitSuite) TestJoin(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, roomID model.RoomID, userID uuid.UUID)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should activate a waiting room on first join",
			setupMocks: func(r *resources, roomID model.RoomID, userID uuid.UUID) {
				room := activeRoom(roomID)
				room.Status = model.RoomStatusWaiting
				r.roomRepo.On("ByID", r.ctx, roomID).Return(room, nil).Once()
				r.roomRepo.On("AddParticipant", r.ctx, roomID, userID).Return(nil).Once()
				r.roomRepo.On("SetStatus", r.ctx, roomID, model.RoomStatusWaiting, model.RoomStatusActive).Return(true, nil).Once()
			},
		},
		{
			name: "Should join an active room without a status change",
			setupMocks: func(r *resources, roomID model.RoomID, userID uuid.UUID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(activeRoom(roomID), nil).Once()
				r.roomRepo.On("AddParticipant", r.ctx, roomID, userID).Return(nil).Once()
			},
		},
		{
			name: "Should reject joining a closed room",
			setupMocks: func(r *resources, roomID model.RoomID, userID uuid.UUID) {
				room := activeRoom(roomID)
				room.Status = model.RoomStatusClosed
				r.roomRepo.On("ByID", r.ctx, roomID).Return(room, nil).Once()
			},
			expectError:   true,
			expectedError: ErrRoomClosed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()
			userID := uuid.New()
			tc.setupMocks(r, roomID, userID)

			err := r.usecase.Join(r.ctx, roomID, userID)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
			r.roomRepo.AssertExpectations(t)
		})
	}
}

func (suite *UsecaseRoomUnitSuite) TestClose(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		setupMocks    func(r *resources, roomID model.RoomID)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should close an active room",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(activeRoom(roomID), nil).Once()
				r.roomRepo.On("SetStatus", r.ctx, roomID, model.RoomStatusActive, model.RoomStatusClosed).Return(true, nil).Once()
			},
		},
		{
			name: "Should keep a matched room as-is",
			setupMocks: func(r *resources, roomID model.RoomID) {
				itemID := "603"
				room := activeRoom(roomID)
				room.Status = model.RoomStatusMatched
				room.MatchedItemID = &itemID
				r.roomRepo.On("ByID", r.ctx, roomID).Return(room, nil).Once()
			},
		},
		{
			name: "Should treat closing a closed room as a no-op",
			setupMocks: func(r *resources, roomID model.RoomID) {
				room := activeRoom(roomID)
				room.Status = model.RoomStatusClosed
				r.roomRepo.On("ByID", r.ctx, roomID).Return(room, nil).Once()
			},
		},
		{
			name: "Should return not found for unknown room",
			setupMocks: func(r *resources, roomID model.RoomID) {
				r.roomRepo.On("ByID", r.ctx, roomID).Return(model.Room{}, ErrResourceNotFound).Once()
			},
			expectError:   true,
			expectedError: ErrResourceNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			roomID := uuid.New()
			tc.setupMocks(r, roomID)

			err := r.usecase.Close(r.ctx, roomID)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
			r.roomRepo.AssertExpectations(t)
		})
	}
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseRoomUnitSuite))
}
