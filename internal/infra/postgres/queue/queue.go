package infra_postgres_queue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reelroom/core/internal/model"
)

var ErrMetadataNotFound = errors.New("queue metadata not found")

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type metaDTO struct {
	RoomID         model.RoomID `db:"room_id"`
	CursorIndex    int          `db:"cursor_index"`
	FetchedBatches int          `db:"fetched_batches"`
	Status         string       `db:"status"`
	ExpiresAt      time.Time    `db:"expires_at"`
}

type itemDTO struct {
	RoomID        model.RoomID `db:"room_id"`
	SequenceIndex int          `db:"sequence_index"`
	BatchNumber   int          `db:"batch_number"`
	ItemID        string       `db:"item_id"`
	Title         string       `db:"title"`
	PosterRef     string       `db:"poster_ref"`
	Synopsis      string       `db:"synopsis"`
	Rating        float64      `db:"rating"`
	ReleaseDate   string       `db:"release_date"`
	MediaType     string       `db:"media_type"`
}

func (dto itemDTO) toDomain() model.QueueItem {
	return model.QueueItem{
		RoomID:        dto.RoomID,
		SequenceIndex: dto.SequenceIndex,
		BatchNumber:   dto.BatchNumber,
		ItemID:        dto.ItemID,
		Title:         dto.Title,
		PosterRef:     dto.PosterRef,
		Synopsis:      dto.Synopsis,
		Rating:        dto.Rating,
		ReleaseDate:   dto.ReleaseDate,
		MediaType:     dto.MediaType,
	}
}

func (d *Driver) EnsureMetadata(ctx context.Context, roomID model.RoomID, ttl time.Duration) error {
	query := `
		INSERT INTO queue_meta (room_id, cursor_index, fetched_batches, status, expires_at)
		VALUES ($1, 0, 0, $2, $3)
		ON CONFLICT (room_id) DO NOTHING
	`

	_, err := d.db.ExecContext(ctx, query,
		roomID, model.QueueStatusActive, time.Now().UTC().Add(ttl))
	return err
}

func (d *Driver) Metadata(ctx context.Context, roomID model.RoomID) (model.QueueMetadata, error) {
	var dto metaDTO

	query := `
		SELECT room_id, cursor_index, fetched_batches, status, expires_at
		FROM queue_meta
		WHERE room_id = $1
	`

	err := d.db.GetContext(ctx, &dto, query, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.QueueMetadata{}, ErrMetadataNotFound
		}
		return model.QueueMetadata{}, err
	}

	return model.QueueMetadata{
		RoomID:         dto.RoomID,
		Cursor:         dto.CursorIndex,
		FetchedBatches: dto.FetchedBatches,
		Status:         dto.Status,
		ExpiresAt:      dto.ExpiresAt,
	}, nil
}

func (d *Driver) ExistingItemIDs(ctx context.Context, roomID model.RoomID) (map[string]struct{}, error) {
	var ids []string

	query := `SELECT item_id FROM queue_items WHERE room_id = $1`

	if err := d.db.SelectContext(ctx, &ids, query, roomID); err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Append assigns dense sequence indexes under the metadata row lock, so
// concurrent refills cannot interleave indexes or double-insert an item.
func (d *Driver) Append(ctx context.Context, roomID model.RoomID, items []model.CatalogItem, pagesFetched int, ttl time.Duration) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var meta metaDTO
	lockQuery := `
		SELECT room_id, cursor_index, fetched_batches, status, expires_at
		FROM queue_meta
		WHERE room_id = $1
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &meta, lockQuery, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMetadataNotFound
		}
		return 0, err
	}

	existing := make(map[string]struct{})
	var ids []string
	if err := tx.SelectContext(ctx, &ids,
		`SELECT item_id FROM queue_items WHERE room_id = $1`, roomID); err != nil {
		return 0, err
	}
	for _, id := range ids {
		existing[id] = struct{}{}
	}

	var nextSeq int
	if err := tx.GetContext(ctx, &nextSeq,
		`SELECT COALESCE(MAX(sequence_index) + 1, 0) FROM queue_items WHERE room_id = $1`, roomID); err != nil {
		return 0, err
	}

	batch := meta.FetchedBatches + 1
	expiresAt := time.Now().UTC().Add(ttl)
	appended := 0

	insertQuery := `
		INSERT INTO queue_items
			(room_id, sequence_index, batch_number, item_id, title, poster_ref, synopsis, rating, release_date, media_type, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, item := range items {
		if _, dup := existing[item.ID]; dup {
			continue
		}
		existing[item.ID] = struct{}{}

		if _, err := tx.ExecContext(ctx, insertQuery,
			roomID, nextSeq, batch,
			item.ID, item.Title, item.PosterRef, item.Synopsis,
			item.Rating, item.ReleaseDate, item.MediaType, expiresAt,
		); err != nil {
			return 0, err
		}
		nextSeq++
		appended++
	}

	updateMeta := `
		UPDATE queue_meta
		SET fetched_batches = fetched_batches + $1
		WHERE room_id = $2
	`
	if _, err := tx.ExecContext(ctx, updateMeta, pagesFetched, roomID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return appended, nil
}

func (d *Driver) Next(ctx context.Context, roomID model.RoomID, fromSequence int, excludeItemIDs []string) (model.QueueItem, bool, error) {
	var dto itemDTO

	if len(excludeItemIDs) == 0 {
		query := `
			SELECT room_id, sequence_index, batch_number, item_id, title, poster_ref, synopsis, rating, release_date, media_type
			FROM queue_items
			WHERE room_id = $1 AND sequence_index >= $2
			ORDER BY sequence_index
			LIMIT 1
		`
		err := d.db.GetContext(ctx, &dto, query, roomID, fromSequence)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.QueueItem{}, false, nil
			}
			return model.QueueItem{}, false, err
		}
		return dto.toDomain(), true, nil
	}

	query, args, err := sqlx.In(`
		SELECT room_id, sequence_index, batch_number, item_id, title, poster_ref, synopsis, rating, release_date, media_type
		FROM queue_items
		WHERE room_id = ? AND sequence_index >= ? AND item_id NOT IN (?)
		ORDER BY sequence_index
		LIMIT 1
	`, roomID, fromSequence, excludeItemIDs)
	if err != nil {
		return model.QueueItem{}, false, err
	}

	query = d.db.Rebind(query)
	if err := d.db.GetContext(ctx, &dto, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.QueueItem{}, false, nil
		}
		return model.QueueItem{}, false, err
	}
	return dto.toDomain(), true, nil
}

func (d *Driver) UnseenCount(ctx context.Context, roomID model.RoomID) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM queue_items qi
		JOIN queue_meta qm ON qm.room_id = qi.room_id
		WHERE qi.room_id = $1 AND qi.sequence_index >= qm.cursor_index
	`

	if err := d.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, err
	}
	return count, nil
}

// AdvanceCursor only moves forward. A stale (lower) target matches no
// row and the call is a silent no-op.
func (d *Driver) AdvanceCursor(ctx context.Context, roomID model.RoomID, toSequence int) error {
	query := `
		UPDATE queue_meta
		SET cursor_index = $1
		WHERE room_id = $2 AND cursor_index < $1
	`

	_, err := d.db.ExecContext(ctx, query, toSequence, roomID)
	return err
}

func (d *Driver) MarkExhausted(ctx context.Context, roomID model.RoomID) error {
	query := `
		UPDATE queue_meta
		SET status = $1
		WHERE room_id = $2
	`

	_, err := d.db.ExecContext(ctx, query, model.QueueStatusExhausted, roomID)
	return err
}

func (d *Driver) SequenceIndexes(ctx context.Context, roomID model.RoomID, itemIDs []string) (map[string]int, error) {
	if len(itemIDs) == 0 {
		return map[string]int{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT item_id, sequence_index
		FROM queue_items
		WHERE room_id = ? AND item_id IN (?)
	`, roomID, itemIDs)
	if err != nil {
		return nil, err
	}

	query = d.db.Rebind(query)
	rows := []struct {
		ItemID        string `db:"item_id"`
		SequenceIndex int    `db:"sequence_index"`
	}{}
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	seqs := make(map[string]int, len(rows))
	for _, row := range rows {
		seqs[row.ItemID] = row.SequenceIndex
	}
	return seqs, nil
}

// DeleteExpired drops queue rows past their TTL. Metadata goes first so
// a crash between the two deletes leaves only re-creatable item rows.
func (d *Driver) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM queue_meta WHERE expires_at < $1`, now); err != nil {
		return 0, err
	}

	result, err := d.db.ExecContext(ctx,
		`DELETE FROM queue_items WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
