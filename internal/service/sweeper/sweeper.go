package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// QueueCleaner drops queue rows past their TTL.
type QueueCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RoomCleaner closes rooms that never reached a match and went stale.
type RoomCleaner interface {
	CloseStaleRooms(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper is advisory housekeeping. Nothing in the engine's correctness
// depends on it running, or running on time.
type Sweeper struct {
	queue QueueCleaner
	rooms RoomCleaner

	period    time.Duration
	staleness time.Duration
	logger    *slog.Logger
}

func New(queue QueueCleaner, rooms RoomCleaner, period, staleness time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		queue:     queue,
		rooms:     rooms,
		period:    period,
		staleness: staleness,
		logger:    logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if closed, err := s.rooms.CloseStaleRooms(ctx, s.staleness); err != nil {
		s.logger.Warn("stale room sweep failed", slog.String("error", err.Error()))
	} else if closed > 0 {
		s.logger.Info("closed stale rooms", slog.Int64("count", closed))
	}

	if deleted, err := s.queue.DeleteExpired(ctx); err != nil {
		s.logger.Warn("queue sweep failed", slog.String("error", err.Error()))
	} else if deleted > 0 {
		s.logger.Info("expired queue rows deleted", slog.Int64("count", deleted))
	}
}
