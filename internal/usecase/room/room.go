package usecase_room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reelroom/core/internal/model"
)

var (
	ErrInternal         = errors.New("internal error")
	ErrResourceNotFound = errors.New("no such resource")
	ErrImmutableFilter  = errors.New("selection filters are already set")
	ErrInvalidAgreement = errors.New("agreement count must be at least 2")
	ErrRoomClosed       = errors.New("room is closed")
)

const MinAgreementCount = 2

//go:generate mockery --name=RoomRepository --output=./mocks/repository --filename=repository.go
type RoomRepository interface {
	Create(ctx context.Context, room model.Room) error
	ByID(ctx context.Context, roomID model.RoomID) (model.Room, error)
	SetFilters(ctx context.Context, roomID model.RoomID, filters model.Filters) error
	SetStatus(ctx context.Context, roomID model.RoomID, from, to model.RoomStatus) (bool, error)
	AddParticipant(ctx context.Context, roomID model.RoomID, userID uuid.UUID) error
	Participants(ctx context.Context, roomID model.RoomID) ([]uuid.UUID, error)
}

type Usecase struct {
	rooms RoomRepository
}

func New(rooms RoomRepository) *Usecase {
	return &Usecase{rooms: rooms}
}

// Create validates the agreement count up front so an out-of-range value
// can never reach the consensus path. Filters given at creation count as
// the one allowed filter write.
func (u *Usecase) Create(ctx context.Context, ownerID uuid.UUID, agreementCount int, filters model.Filters) (model.Room, error) {
	if agreementCount < MinAgreementCount {
		return model.Room{}, fmt.Errorf("%w: got %d", ErrInvalidAgreement, agreementCount)
	}

	filters.Applied = !filters.IsEmpty()

	room := model.Room{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		AgreementCount: agreementCount,
		Status:         model.RoomStatusWaiting,
		Filters:        filters,
		CreatedAt:      time.Now().UTC(),
	}

	if err := u.rooms.Create(ctx, room); err != nil {
		return model.Room{}, errors.Join(ErrInternal, err)
	}
	if err := u.rooms.AddParticipant(ctx, room.ID, ownerID); err != nil {
		return model.Room{}, errors.Join(ErrInternal, err)
	}

	return room, nil
}

// UpdateFilters is the filter-immutability guard. The first write on a
// room created without filters is allowed; every later attempt is
// rejected outright, no old-vs-new comparison.
func (u *Usecase) UpdateFilters(ctx context.Context, roomID model.RoomID, filters model.Filters) error {
	room, err := u.rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return errors.Join(ErrInternal, err)
	}

	if room.Filters.Applied {
		return ErrImmutableFilter
	}

	filters.Applied = true
	if err := u.rooms.SetFilters(ctx, roomID, filters); err != nil {
		if errors.Is(err, ErrImmutableFilter) {
			// Lost a race against a concurrent first write.
			return ErrImmutableFilter
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (u *Usecase) Join(ctx context.Context, roomID model.RoomID, userID uuid.UUID) error {
	room, err := u.rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	if room.Status == model.RoomStatusClosed {
		return ErrRoomClosed
	}

	if err := u.rooms.AddParticipant(ctx, roomID, userID); err != nil {
		return errors.Join(ErrInternal, err)
	}

	// First member after the owner makes the room votable.
	if room.Status == model.RoomStatusWaiting {
		if _, err := u.rooms.SetStatus(ctx, roomID, model.RoomStatusWaiting, model.RoomStatusActive); err != nil {
			return errors.Join(ErrInternal, err)
		}
	}
	return nil
}

func (u *Usecase) Status(ctx context.Context, roomID model.RoomID) (model.Room, error) {
	room, err := u.rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return model.Room{}, ErrResourceNotFound
		}
		return model.Room{}, errors.Join(ErrInternal, err)
	}
	return room, nil
}

// Close is allowed from any non-MATCHED state. A MATCHED room is terminal
// and stays as-is; closing it is a no-op rather than an error.
func (u *Usecase) Close(ctx context.Context, roomID model.RoomID) error {
	room, err := u.rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	if room.Status == model.RoomStatusMatched || room.Status == model.RoomStatusClosed {
		return nil
	}

	if _, err := u.rooms.SetStatus(ctx, roomID, room.Status, model.RoomStatusClosed); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}
