package model

import "time"

type QueueStatus = string

const (
	QueueStatusActive    QueueStatus = "ACTIVE"
	QueueStatusExhausted QueueStatus = "EXHAUSTED"
)

// QueueMetadata is the per-room read state of the candidate queue.
// Cursor only ever moves forward.
type QueueMetadata struct {
	RoomID         RoomID
	Cursor         int
	FetchedBatches int
	Status         QueueStatus
	ExpiresAt      time.Time
}

// QueueItem is one candidate shown to a room. (RoomID, SequenceIndex) and
// (RoomID, ItemID) are both unique; items are never mutated after append.
type QueueItem struct {
	RoomID        RoomID
	SequenceIndex int
	BatchNumber   int
	ItemID        string
	Title         string
	PosterRef     string
	Synopsis      string
	Rating        float64
	ReleaseDate   string
	MediaType     MediaType
}
