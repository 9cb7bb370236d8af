package http_queue

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/reelroom/core/internal/delivery/http/common"
	http_identity_middleware "github.com/reelroom/core/internal/delivery/http/middleware/identity"
	"github.com/reelroom/core/internal/model"
	usecase_queue "github.com/reelroom/core/internal/usecase/queue"
)

type Controller struct {
	usecase *usecase_queue.Usecase
	logger  *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_queue.Usecase, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	queue := router.Group("/rooms/:room_id/queue")
	{
		queue.POST("/refill", c.refill)
		queue.GET("/next", c.next)
	}
}

type RefillRequestDTO struct {
	Limit int `json:"limit"`
}

type QueueItemDTO struct {
	ItemID        string  `json:"item_id"`
	SequenceIndex int     `json:"sequence_index"`
	Title         string  `json:"title"`
	PosterRef     string  `json:"poster_ref"`
	Synopsis      string  `json:"synopsis"`
	Rating        float64 `json:"rating"`
	ReleaseDate   string  `json:"release_date"`
	MediaType     string  `json:"media_type"`
}

// NextResponseDTO mirrors the engine's next-candidate result: exactly
// one of item / matched_item_id / message is set, keyed by outcome.
type NextResponseDTO struct {
	Outcome       string        `json:"outcome"`
	Item          *QueueItemDTO `json:"item,omitempty"`
	MatchedItemID string        `json:"matched_item_id,omitempty"`
	Message       string        `json:"message,omitempty"`
	Remaining     int           `json:"remaining,omitempty"`
}

func itemDTO(item model.QueueItem) *QueueItemDTO {
	return &QueueItemDTO{
		ItemID:        item.ItemID,
		SequenceIndex: item.SequenceIndex,
		Title:         item.Title,
		PosterRef:     item.PosterRef,
		Synopsis:      item.Synopsis,
		Rating:        item.Rating,
		ReleaseDate:   item.ReleaseDate,
		MediaType:     item.MediaType,
	}
}

func (c *Controller) refill(ctx *gin.Context) {
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	var req RefillRequestDTO
	_ = ctx.ShouldBindJSON(&req)

	if err := c.usecase.EnsureCandidates(ctx.Request.Context(), roomID, req.Limit); err != nil {
		c.respondError(ctx, err, "refill failed")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) next(ctx *gin.Context) {
	userID, ok := http_identity_middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "missing user id"})
		return
	}
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	result, err := c.usecase.NextCandidate(ctx.Request.Context(), roomID, userID)
	if err != nil {
		c.respondError(ctx, err, "next candidate failed")
		return
	}

	var resp NextResponseDTO
	switch result.Outcome {
	case usecase_queue.OutcomeCandidate:
		resp = NextResponseDTO{Outcome: "candidate", Item: itemDTO(result.Item)}
	case usecase_queue.OutcomeMatched:
		resp = NextResponseDTO{Outcome: "matched", MatchedItemID: result.Match.ItemID}
	case usecase_queue.OutcomeKeepGoing:
		resp = NextResponseDTO{
			Outcome:   "keep_going",
			Message:   "couldn't load more right now",
			Remaining: result.Remaining,
		}
	case usecase_queue.OutcomeEndOfRound:
		resp = NextResponseDTO{Outcome: "end_of_round", Message: result.Message}
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) roomID(ctx *gin.Context) (model.RoomID, bool) {
	roomID, err := uuid.Parse(ctx.Param("room_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed room id"})
		return uuid.Nil, false
	}
	return roomID, true
}

func (c *Controller) respondError(ctx *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, usecase_queue.ErrRoomNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "room not found"})
	case errors.Is(err, usecase_queue.ErrRoomClosed):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: "room is closed"})
	case errors.Is(err, usecase_queue.ErrCatalogUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{
			Message: "couldn't load more right now",
		})
	default:
		c.logger.Error(logMsg, slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
	}
}
