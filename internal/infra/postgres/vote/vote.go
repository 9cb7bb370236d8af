package infra_postgres_vote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/reelroom/core/internal/model"
	usecase_vote "github.com/reelroom/core/internal/usecase/vote"
)

const uniqueViolation = "23505"

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

// Insert appends one vote. The primary key on (room_id, user_id, item_id)
// is the uniqueness invariant; a repeat lands here as a unique violation
// and is rejected, never overwritten.
func (d *Driver) Insert(ctx context.Context, vote model.Vote) error {
	query := `
		INSERT INTO votes (room_id, user_id, item_id, vote_type, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := d.db.ExecContext(ctx, query,
		vote.RoomID, vote.UserID, vote.ItemID, vote.VoteType, vote.CastAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return usecase_vote.ErrDuplicateVote
		}
		return err
	}
	return nil
}

func (d *Driver) TallyLikes(ctx context.Context, roomID model.RoomID) (map[string]int, error) {
	rows := []struct {
		ItemID string `db:"item_id"`
		Likes  int    `db:"likes"`
	}{}

	query := `
		SELECT item_id, COUNT(*) AS likes
		FROM votes
		WHERE room_id = $1 AND vote_type = $2
		GROUP BY item_id
	`

	if err := d.db.SelectContext(ctx, &rows, query, roomID, model.VoteLike); err != nil {
		return nil, err
	}

	tally := make(map[string]int, len(rows))
	for _, row := range rows {
		tally[row.ItemID] = row.Likes
	}
	return tally, nil
}

func (d *Driver) VotedItemIDs(ctx context.Context, roomID model.RoomID, userID uuid.UUID) (map[string]struct{}, error) {
	var ids []string

	query := `
		SELECT item_id
		FROM votes
		WHERE room_id = $1 AND user_id = $2
	`

	if err := d.db.SelectContext(ctx, &ids, query, roomID, userID); err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// VotedCounts reports distinct voted items per member, the input to the
// last-finisher decision.
func (d *Driver) VotedCounts(ctx context.Context, roomID model.RoomID) (map[uuid.UUID]int, error) {
	rows := []struct {
		UserID uuid.UUID `db:"user_id"`
		Voted  int       `db:"voted"`
	}{}

	query := `
		SELECT user_id, COUNT(DISTINCT item_id) AS voted
		FROM votes
		WHERE room_id = $1
		GROUP BY user_id
	`

	if err := d.db.SelectContext(ctx, &rows, query, roomID); err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Voted
	}
	return counts, nil
}
