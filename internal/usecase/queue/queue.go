package usecase_queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelroom/core/internal/model"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
)

var (
	ErrInternal           = errors.New("internal error")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomClosed         = errors.New("room is closed")
	ErrCatalogUnavailable = errors.New("no candidates available right now")
)

// End-of-round phrases. These are the only two terminal messages a user
// ever sees when a pool runs out without a match.
const (
	MsgLastFinisher = "no consensus reached; suggest starting a new room"
	MsgNotLast      = "hope you get lucky and match"
)

const (
	maxCatalogPages = 5
	minFetchSize    = 50
	fetchRetries    = 2
	retryBackoff    = 500 * time.Millisecond
)

//go:generate mockery --name=QueueRepository --output=./mocks/queue --filename=queue.go
type QueueRepository interface {
	EnsureMetadata(ctx context.Context, roomID model.RoomID, ttl time.Duration) error
	Metadata(ctx context.Context, roomID model.RoomID) (model.QueueMetadata, error)
	ExistingItemIDs(ctx context.Context, roomID model.RoomID) (map[string]struct{}, error)
	// Append stores net-new items after the current tail, skipping any
	// item id the room has already seen. Returns the number stored.
	Append(ctx context.Context, roomID model.RoomID, items []model.CatalogItem, pagesFetched int, ttl time.Duration) (int, error)
	Next(ctx context.Context, roomID model.RoomID, fromSequence int, excludeItemIDs []string) (model.QueueItem, bool, error)
	UnseenCount(ctx context.Context, roomID model.RoomID) (int, error)
	AdvanceCursor(ctx context.Context, roomID model.RoomID, toSequence int) error
	MarkExhausted(ctx context.Context, roomID model.RoomID) error
}

//go:generate mockery --name=Catalog --output=./mocks/catalog --filename=catalog.go
type Catalog interface {
	FetchPage(ctx context.Context, filters model.Filters, page, pageSize int) ([]model.CatalogItem, bool, error)
}

type VoteReader interface {
	VotedItemIDs(ctx context.Context, roomID model.RoomID, userID uuid.UUID) (map[string]struct{}, error)
	VotedCounts(ctx context.Context, roomID model.RoomID) (map[uuid.UUID]int, error)
}

type RoomReader interface {
	ByID(ctx context.Context, roomID model.RoomID) (model.Room, error)
	Participants(ctx context.Context, roomID model.RoomID) ([]uuid.UUID, error)
}

type Config struct {
	PoolSize     int
	LowWaterMark int
	QueueTTL     time.Duration
}

type Outcome int

const (
	OutcomeCandidate Outcome = iota
	OutcomeKeepGoing
	OutcomeEndOfRound
	OutcomeMatched
)

// NextResult is the single shape every next-candidate call resolves to.
// Exactly one of Item / Match / Message is meaningful, keyed by Outcome.
type NextResult struct {
	Outcome   Outcome
	Item      model.QueueItem
	Match     model.MatchResult
	Message   string
	Remaining int
}

type Usecase struct {
	queue   QueueRepository
	catalog Catalog
	votes   VoteReader
	rooms   RoomReader
	cfg     Config

	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Usecase)

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func New(queue QueueRepository, catalog Catalog, votes VoteReader, rooms RoomReader, cfg Config, opts ...Option) *Usecase {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 50
	}
	if cfg.LowWaterMark <= 0 {
		cfg.LowWaterMark = 10
	}
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = 24 * time.Hour
	}

	u := &Usecase{
		queue:   queue,
		catalog: catalog,
		votes:   votes,
		rooms:   rooms,
		cfg:     cfg,
		logger:  slog.Default(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// EnsureCandidates tops the room's queue up to at least limit unseen
// items. An EXHAUSTED queue with nothing left is final under the current
// filters and is never refetched.
func (u *Usecase) EnsureCandidates(ctx context.Context, roomID model.RoomID, limit int) error {
	room, err := u.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == model.RoomStatusClosed {
		return ErrRoomClosed
	}
	if room.IsMatched() {
		return nil
	}

	if limit <= 0 {
		limit = u.cfg.LowWaterMark
	}

	if err := u.queue.EnsureMetadata(ctx, roomID, u.cfg.QueueTTL); err != nil {
		return errors.Join(ErrInternal, err)
	}
	meta, err := u.queue.Metadata(ctx, roomID)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	unseen, err := u.queue.UnseenCount(ctx, roomID)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	if meta.Status == model.QueueStatusExhausted && unseen == 0 {
		return nil
	}
	if unseen >= limit {
		return nil
	}

	return u.refill(ctx, room, meta, limit)
}

func (u *Usecase) refill(ctx context.Context, room model.Room, meta model.QueueMetadata, limit int) error {
	exclude, err := u.queue.ExistingItemIDs(ctx, room.ID)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	fetchSize := limit * 2
	if fetchSize < minFetchSize {
		fetchSize = minFetchSize
	}

	collected := make([]model.CatalogItem, 0, limit)
	seen := make(map[string]struct{}, limit)
	page := meta.FetchedBatches
	pagesFetched := 0
	catalogDry := false

	for len(collected) < limit && pagesFetched < maxCatalogPages {
		page++
		pagesFetched++

		items, hasMore, err := u.fetchWithRetry(ctx, room.Filters, page, fetchSize)
		if err != nil {
			if len(collected) > 0 {
				// Keep what we have; the rest can come on a later call.
				break
			}
			return ErrCatalogUnavailable
		}

		for _, item := range items {
			if _, dup := exclude[item.ID]; dup {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			collected = append(collected, item)
		}

		if !hasMore {
			catalogDry = true
			break
		}
	}

	if len(collected) == 0 {
		if catalogDry || pagesFetched >= maxCatalogPages {
			// Nothing new exists under the room's filters.
			if err := u.queue.MarkExhausted(ctx, room.ID); err != nil {
				return errors.Join(ErrInternal, err)
			}
		}
		return nil
	}

	if _, err := u.queue.Append(ctx, room.ID, collected, pagesFetched, u.cfg.QueueTTL); err != nil {
		return errors.Join(ErrInternal, err)
	}

	u.logger.Info("queue refilled",
		slog.String("room_id", room.ID.String()),
		slog.Int("appended", len(collected)),
		slog.Int("pages", pagesFetched))
	return nil
}

func (u *Usecase) fetchWithRetry(ctx context.Context, filters model.Filters, page, pageSize int) ([]model.CatalogItem, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			if err := u.sleep(ctx, retryBackoff*time.Duration(attempt)); err != nil {
				return nil, false, err
			}
		}

		items, hasMore, err := u.catalog.FetchPage(ctx, filters, page, pageSize)
		if err == nil {
			return items, hasMore, nil
		}
		lastErr = err
		u.logger.Warn("catalog fetch failed",
			slog.Int("page", page),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
	return nil, false, lastErr
}

// NextCandidate serves the next unseen-by-this-user item, refilling when
// the queue runs low. An empty queue resolves to either "keep going"
// (pool not yet exhausted by this user) or one of the two end-of-round
// messages. A MATCHED room short-circuits everything.
func (u *Usecase) NextCandidate(ctx context.Context, roomID model.RoomID, userID uuid.UUID) (NextResult, error) {
	room, err := u.loadRoom(ctx, roomID)
	if err != nil {
		return NextResult{}, err
	}
	if room.IsMatched() {
		return NextResult{
			Outcome: OutcomeMatched,
			Match:   model.MatchResult{Matched: true, ItemID: *room.MatchedItemID},
		}, nil
	}
	if room.Status == model.RoomStatusClosed {
		return NextResult{}, ErrRoomClosed
	}

	voted, err := u.votes.VotedItemIDs(ctx, roomID, userID)
	if err != nil {
		return NextResult{}, errors.Join(ErrInternal, err)
	}

	if item, ok, err := u.nextUnvoted(ctx, roomID, voted); err != nil {
		return NextResult{}, err
	} else if ok {
		return NextResult{Outcome: OutcomeCandidate, Item: item}, nil
	}

	if len(voted) < u.cfg.PoolSize {
		// Momentarily empty, not end-of-round: refill and try once more.
		if err := u.EnsureCandidates(ctx, roomID, u.cfg.LowWaterMark); err != nil {
			if errors.Is(err, ErrCatalogUnavailable) {
				return NextResult{
					Outcome:   OutcomeKeepGoing,
					Remaining: u.cfg.PoolSize - len(voted),
				}, nil
			}
			return NextResult{}, err
		}
		if item, ok, err := u.nextUnvoted(ctx, roomID, voted); err != nil {
			return NextResult{}, err
		} else if ok {
			return NextResult{Outcome: OutcomeCandidate, Item: item}, nil
		}
		return NextResult{
			Outcome:   OutcomeKeepGoing,
			Remaining: u.cfg.PoolSize - len(voted),
		}, nil
	}

	return u.endOfRound(ctx, roomID, userID)
}

func (u *Usecase) nextUnvoted(ctx context.Context, roomID model.RoomID, voted map[string]struct{}) (model.QueueItem, bool, error) {
	if err := u.queue.EnsureMetadata(ctx, roomID, u.cfg.QueueTTL); err != nil {
		return model.QueueItem{}, false, errors.Join(ErrInternal, err)
	}
	meta, err := u.queue.Metadata(ctx, roomID)
	if err != nil {
		return model.QueueItem{}, false, errors.Join(ErrInternal, err)
	}

	exclude := make([]string, 0, len(voted))
	for id := range voted {
		exclude = append(exclude, id)
	}

	item, ok, err := u.queue.Next(ctx, roomID, meta.Cursor, exclude)
	if err != nil {
		return model.QueueItem{}, false, errors.Join(ErrInternal, err)
	}
	if !ok {
		return model.QueueItem{}, false, nil
	}

	// Two users reading concurrently may both land on this item; only
	// forward movement is guaranteed, not exclusivity.
	if err := u.queue.AdvanceCursor(ctx, roomID, item.SequenceIndex); err != nil {
		return model.QueueItem{}, false, errors.Join(ErrInternal, err)
	}
	return item, true, nil
}

// endOfRound decides between the two terminal messages purely from the
// current ledger state, so recomputing it is always safe.
func (u *Usecase) endOfRound(ctx context.Context, roomID model.RoomID, userID uuid.UUID) (NextResult, error) {
	counts, err := u.votes.VotedCounts(ctx, roomID)
	if err != nil {
		return NextResult{}, errors.Join(ErrInternal, err)
	}
	members, err := u.rooms.Participants(ctx, roomID)
	if err != nil {
		return NextResult{}, errors.Join(ErrInternal, err)
	}

	last := true
	for _, member := range members {
		if member == userID {
			continue
		}
		if counts[member] < u.cfg.PoolSize {
			last = false
			break
		}
	}

	msg := MsgNotLast
	if last {
		msg = MsgLastFinisher
	}
	return NextResult{Outcome: OutcomeEndOfRound, Message: msg}, nil
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

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
