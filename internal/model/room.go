package model

import (
	"time"

	"github.com/google/uuid"
)

type RoomID = uuid.UUID

type RoomStatus = string

const (
	RoomStatusWaiting RoomStatus = "WAITING"
	RoomStatusActive  RoomStatus = "ACTIVE"
	RoomStatusMatched RoomStatus = "MATCHED"
	RoomStatusClosed  RoomStatus = "CLOSED"
)

type MediaType = string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "tv"
)

// Filters is the room's selection criteria. Write-once: Applied is set
// the first time filters are stored and guards every later write.
type Filters struct {
	MediaType MediaType
	Genres    []string
	Applied   bool
}

func (f Filters) IsEmpty() bool {
	return f.MediaType == "" && len(f.Genres) == 0
}

type Room struct {
	ID             RoomID
	OwnerID        uuid.UUID
	AgreementCount int
	Status         RoomStatus
	Filters        Filters
	MatchedItemID  *string
	CreatedAt      time.Time
}

func (r Room) IsMatched() bool {
	return r.Status == RoomStatusMatched && r.MatchedItemID != nil
}
