package infra_postgres_room

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/reelroom/core/internal/model"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type roomDTO struct {
	ID             uuid.UUID      `db:"id"`
	OwnerID        uuid.UUID      `db:"owner_id"`
	AgreementCount int            `db:"agreement_count"`
	Status         string         `db:"status"`
	MediaType      string         `db:"media_type"`
	Genres         pq.StringArray `db:"genres"`
	FiltersApplied bool           `db:"filters_applied"`
	MatchedItemID  sql.NullString `db:"matched_item_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (dto roomDTO) toDomain() model.Room {
	room := model.Room{
		ID:             dto.ID,
		OwnerID:        dto.OwnerID,
		AgreementCount: dto.AgreementCount,
		Status:         dto.Status,
		Filters: model.Filters{
			MediaType: dto.MediaType,
			Genres:    []string(dto.Genres),
			Applied:   dto.FiltersApplied,
		},
		CreatedAt: dto.CreatedAt,
	}
	if dto.MatchedItemID.Valid {
		itemID := dto.MatchedItemID.String
		room.MatchedItemID = &itemID
	}
	return room
}

func (d *Driver) Create(ctx context.Context, room model.Room) error {
	query := `
		INSERT INTO rooms (id, owner_id, agreement_count, status, media_type, genres, filters_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := d.db.ExecContext(ctx, query,
		room.ID,
		room.OwnerID,
		room.AgreementCount,
		room.Status,
		room.Filters.MediaType,
		pq.StringArray(room.Filters.Genres),
		room.Filters.Applied,
		room.CreatedAt,
	)
	return err
}

func (d *Driver) ByID(ctx context.Context, roomID model.RoomID) (model.Room, error) {
	var dto roomDTO

	query := `
		SELECT id, owner_id, agreement_count, status, media_type, genres, filters_applied, matched_item_id, created_at
		FROM rooms
		WHERE id = $1
	`

	err := d.db.GetContext(ctx, &dto, query, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, usecase_room.ErrResourceNotFound
		}
		return model.Room{}, err
	}

	return dto.toDomain(), nil
}

// SetFilters is conditional on filters never having been applied. The
// database enforces the write-once rule even when two first writes race.
func (d *Driver) SetFilters(ctx context.Context, roomID model.RoomID, filters model.Filters) error {
	query := `
		UPDATE rooms
		SET media_type = $1, genres = $2, filters_applied = TRUE
		WHERE id = $3 AND filters_applied = FALSE
	`

	result, err := d.db.ExecContext(ctx, query,
		filters.MediaType,
		pq.StringArray(filters.Genres),
		roomID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		var exists bool
		if err := d.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)`, roomID); err != nil {
			return err
		}
		if !exists {
			return usecase_room.ErrResourceNotFound
		}
		return usecase_room.ErrImmutableFilter
	}
	return nil
}

// SetStatus moves the room from one expected status to another. False
// with no error means the room was not in the expected state.
func (d *Driver) SetStatus(ctx context.Context, roomID model.RoomID, from, to model.RoomStatus) (bool, error) {
	query := `
		UPDATE rooms
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := d.db.ExecContext(ctx, query, to, roomID, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// CommitMatch is the one contended write in the engine. The WHERE on
// status = ACTIVE makes the transition atomic: out of any number of
// concurrent committers exactly one sees rowsAffected = 1.
func (d *Driver) CommitMatch(ctx context.Context, roomID model.RoomID, itemID string) (bool, error) {
	query := `
		UPDATE rooms
		SET status = $1, matched_item_id = $2
		WHERE id = $3 AND status = $4
	`

	result, err := d.db.ExecContext(ctx, query,
		model.RoomStatusMatched, itemID, roomID, model.RoomStatusActive)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (d *Driver) AddParticipant(ctx context.Context, roomID model.RoomID, userID uuid.UUID) error {
	query := `
		INSERT INTO participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`

	_, err := d.db.ExecContext(ctx, query, roomID, userID)
	return err
}

func (d *Driver) Participants(ctx context.Context, roomID model.RoomID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	query := `
		SELECT user_id
		FROM participants
		WHERE room_id = $1
		ORDER BY joined_at
	`

	if err := d.db.SelectContext(ctx, &ids, query, roomID); err != nil {
		return nil, err
	}
	return ids, nil
}

// CloseStaleRooms closes WAITING/ACTIVE rooms older than the deadline.
// Advisory cleanup used by the sweeper, never correctness-critical.
func (d *Driver) CloseStaleRooms(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE rooms
		SET status = $1
		WHERE status IN ($2, $3) AND created_at < $4
	`

	result, err := d.db.ExecContext(ctx, query,
		model.RoomStatusClosed,
		model.RoomStatusWaiting,
		model.RoomStatusActive,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
