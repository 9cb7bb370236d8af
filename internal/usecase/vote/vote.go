package usecase_vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reelroom/core/internal/model"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
)

var (
	ErrInternal      = errors.New("internal error")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomClosed    = errors.New("room is closed")
	ErrDuplicateVote = errors.New("vote already cast for this item")
	ErrInvalidVote   = errors.New("invalid vote type")
)

//go:generate mockery --name=VoteRepository --output=./mocks/votes --filename=votes.go
type VoteRepository interface {
	Insert(ctx context.Context, vote model.Vote) error
	TallyLikes(ctx context.Context, roomID model.RoomID) (map[string]int, error)
	VotedItemIDs(ctx context.Context, roomID model.RoomID, userID uuid.UUID) (map[string]struct{}, error)
}

//go:generate mockery --name=RoomRepository --output=./mocks/rooms --filename=rooms.go
type RoomRepository interface {
	ByID(ctx context.Context, roomID model.RoomID) (model.Room, error)
	// CommitMatch transitions the room to MATCHED only if it is still
	// ACTIVE. Returns true when this call won the transition.
	CommitMatch(ctx context.Context, roomID model.RoomID, itemID string) (bool, error)
}

//go:generate mockery --name=QueueReader --output=./mocks/queue --filename=queue.go
type QueueReader interface {
	SequenceIndexes(ctx context.Context, roomID model.RoomID, itemIDs []string) (map[string]int, error)
}

type Usecase struct {
	votes VoteRepository
	rooms RoomRepository
	queue QueueReader
}

func New(votes VoteRepository, rooms RoomRepository, queue QueueReader) *Usecase {
	return &Usecase{
		votes: votes,
		rooms: rooms,
		queue: queue,
	}
}

// Cast appends one vote and runs consensus detection. On an already
// MATCHED room it returns the stored match without touching the ledger,
// so repeated calls after a match never error and never change anything.
func (u *Usecase) Cast(ctx context.Context, roomID model.RoomID, userID uuid.UUID, itemID string, voteType model.VoteType) (model.MatchResult, error) {
	if voteType != model.VoteLike && voteType != model.VoteDislike {
		return model.NoMatch, fmt.Errorf("%w: %q", ErrInvalidVote, voteType)
	}

	room, err := u.loadRoom(ctx, roomID)
	if err != nil {
		return model.NoMatch, err
	}
	if room.IsMatched() {
		return model.MatchResult{Matched: true, ItemID: *room.MatchedItemID}, nil
	}
	if room.Status == model.RoomStatusClosed {
		return model.NoMatch, ErrRoomClosed
	}

	err = u.votes.Insert(ctx, model.Vote{
		RoomID:   roomID,
		UserID:   userID,
		ItemID:   itemID,
		VoteType: voteType,
		CastAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			return model.NoMatch, ErrDuplicateVote
		}
		return model.NoMatch, errors.Join(ErrInternal, err)
	}

	if voteType != model.VoteLike {
		// A dislike can never complete a consensus.
		return model.NoMatch, nil
	}

	return u.detect(ctx, room)
}

// Detect re-evaluates consensus for a room without casting anything.
// Stateless over the ledger, safe to call any number of times.
func (u *Usecase) Detect(ctx context.Context, roomID model.RoomID) (model.MatchResult, error) {
	room, err := u.loadRoom(ctx, roomID)
	if err != nil {
		return model.NoMatch, err
	}
	if room.IsMatched() {
		return model.MatchResult{Matched: true, ItemID: *room.MatchedItemID}, nil
	}
	return u.detect(ctx, room)
}

// Results reports current like counts per item, recomputed from the
// ledger on every call.
func (u *Usecase) Results(ctx context.Context, roomID model.RoomID) (map[string]int, error) {
	if _, err := u.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}
	tally, err := u.votes.TallyLikes(ctx, roomID)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}
	return tally, nil
}

func (u *Usecase) loadRoom(ctx context.Context, roomID model.RoomID) (model.Room, error) {
	room, err := u.rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, usecase_room.ErrResourceNotFound) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, errors.Join(ErrInternal, err)
	}
	return room, nil
}

func (u *Usecase) detect(ctx context.Context, room model.Room) (model.MatchResult, error) {
	tally, err := u.votes.TallyLikes(ctx, room.ID)
	if err != nil {
		return model.NoMatch, errors.Join(ErrInternal, err)
	}

	qualified := make([]string, 0, 1)
	for itemID, likes := range tally {
		if likes >= room.AgreementCount {
			qualified = append(qualified, itemID)
		}
	}
	if len(qualified) == 0 {
		return model.NoMatch, nil
	}

	winner, err := u.pickEarliest(ctx, room.ID, qualified)
	if err != nil {
		return model.NoMatch, errors.Join(ErrInternal, err)
	}

	committed, err := u.rooms.CommitMatch(ctx, room.ID, winner)
	if err != nil {
		return model.NoMatch, errors.Join(ErrInternal, err)
	}
	if committed {
		return model.MatchResult{Matched: true, ItemID: winner}, nil
	}

	// Someone else committed first. Their result is the room's result.
	current, err := u.loadRoom(ctx, room.ID)
	if err != nil {
		return model.NoMatch, err
	}
	if current.IsMatched() {
		return model.MatchResult{Matched: true, ItemID: *current.MatchedItemID}, nil
	}
	return model.NoMatch, nil
}

// pickEarliest breaks ties between items that reached the agreement
// count in the same evaluation: the one shown first wins.
func (u *Usecase) pickEarliest(ctx context.Context, roomID model.RoomID, itemIDs []string) (string, error) {
	if len(itemIDs) == 1 {
		return itemIDs[0], nil
	}

	seqs, err := u.queue.SequenceIndexes(ctx, roomID, itemIDs)
	if err != nil {
		return "", err
	}

	winner := itemIDs[0]
	best := int(^uint(0) >> 1)
	for _, id := range itemIDs {
		seq, ok := seqs[id]
		if !ok {
			continue
		}
		if seq < best {
			best = seq
			winner = id
		}
	}
	return winner, nil
}
