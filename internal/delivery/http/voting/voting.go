package http_voting

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/reelroom/core/internal/delivery/http/common"
	http_identity_middleware "github.com/reelroom/core/internal/delivery/http/middleware/identity"
	ws_room "github.com/reelroom/core/internal/delivery/ws/room"
	"github.com/reelroom/core/internal/model"
	usecase_vote "github.com/reelroom/core/internal/usecase/vote"
)

type Controller struct {
	usecase *usecase_vote.Usecase
	hub     *ws_room.Hub

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_vote.Usecase, hub *ws_room.Hub, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase: usecase,
		hub:     hub,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	voting := router.Group("/rooms/:room_id/voting")
	voting.POST("/votes", c.vote)
	voting.GET("/results", c.results)
}

type VoteRequestDTO struct {
	ItemID   string `json:"item_id" binding:"required"`
	VoteType string `json:"vote_type" binding:"required"`
}

type VoteResponseDTO struct {
	Matched bool   `json:"matched"`
	ItemID  string `json:"item_id,omitempty"`
}

type ResultsResponseDTO struct {
	Likes map[string]int `json:"likes"`
}

func (c *Controller) vote(ctx *gin.Context) {
	userID, ok := http_identity_middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "missing user id"})
		return
	}
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	var req VoteRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request body"})
		return
	}

	result, err := c.usecase.Cast(ctx.Request.Context(), roomID, userID, req.ItemID, req.VoteType)
	if err != nil {
		c.respondError(ctx, err, "vote failed")
		return
	}

	if result.Matched {
		c.hub.BroadcastToRoom(roomID, ws_room.Event{
			Type: ws_room.EventMatchFound,
			Payload: map[string]any{
				"item_id": result.ItemID,
			},
		})
	}

	ctx.JSON(http.StatusOK, VoteResponseDTO{
		Matched: result.Matched,
		ItemID:  result.ItemID,
	})
}

func (c *Controller) results(ctx *gin.Context) {
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	likes, err := c.usecase.Results(ctx.Request.Context(), roomID)
	if err != nil {
		c.respondError(ctx, err, "results failed")
		return
	}

	ctx.JSON(http.StatusOK, ResultsResponseDTO{Likes: likes})
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
	case errors.Is(err, usecase_vote.ErrRoomNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "room not found"})
	case errors.Is(err, usecase_vote.ErrDuplicateVote):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: "vote already cast"})
	case errors.Is(err, usecase_vote.ErrRoomClosed):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: "room is closed"})
	case errors.Is(err, usecase_vote.ErrInvalidVote):
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid vote type"})
	default:
		c.logger.Error(logMsg, slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
	}
}
