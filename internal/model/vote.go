package model

import (
	"time"

	"github.com/google/uuid"
)

type VoteType = string

const (
	VoteLike    VoteType = "LIKE"
	VoteDislike VoteType = "DISLIKE"
)

type Vote struct {
	RoomID   RoomID
	UserID   uuid.UUID
	ItemID   string
	VoteType VoteType
	CastAt   time.Time
}

// MatchResult is what every vote returns: either "no match yet" or the
// item the whole room agreed on. Concurrent voters all observe the same
// ItemID once a match is committed.
type MatchResult struct {
	Matched bool
	ItemID  string
}

var NoMatch = MatchResult{}
