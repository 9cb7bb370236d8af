package http_room

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/reelroom/core/internal/delivery/http/common"
	http_identity_middleware "github.com/reelroom/core/internal/delivery/http/middleware/identity"
	ws_room "github.com/reelroom/core/internal/delivery/ws/room"
	"github.com/reelroom/core/internal/model"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
)

type Controller struct {
	usecase *usecase_room.Usecase
	hub     *ws_room.Hub
	logger  *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_room.Usecase, hub *ws_room.Hub, opts ...ControllerOption) *Controller {
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
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.GET("/:room_id/status", c.status)
		rooms.POST("/:room_id/participants", c.join)
		rooms.PATCH("/:room_id/filters", c.updateFilters)
		rooms.DELETE("/:room_id", c.close)
	}
}

type FiltersDTO struct {
	MediaType string   `json:"media_type"`
	Genres    []string `json:"genres"`
}

func (dto FiltersDTO) toDomain() model.Filters {
	return model.Filters{
		MediaType: dto.MediaType,
		Genres:    dto.Genres,
	}
}

type CreateRoomRequestDTO struct {
	AgreementCount int         `json:"agreement_count" binding:"required"`
	Filters        *FiltersDTO `json:"filters"`
}

type RoomResponseDTO struct {
	RoomID         string     `json:"room_id"`
	Status         string     `json:"status"`
	AgreementCount int        `json:"agreement_count"`
	Filters        FiltersDTO `json:"filters"`
	MatchedItemID  *string    `json:"matched_item_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func roomResponse(room model.Room) RoomResponseDTO {
	return RoomResponseDTO{
		RoomID:         room.ID.String(),
		Status:         room.Status,
		AgreementCount: room.AgreementCount,
		Filters: FiltersDTO{
			MediaType: room.Filters.MediaType,
			Genres:    room.Filters.Genres,
		},
		MatchedItemID: room.MatchedItemID,
		CreatedAt:     room.CreatedAt,
	}
}

func (c *Controller) create(ctx *gin.Context) {
	ownerID, ok := http_identity_middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "missing user id"})
		return
	}

	var req CreateRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request body"})
		return
	}

	var filters model.Filters
	if req.Filters != nil {
		filters = req.Filters.toDomain()
	}

	room, err := c.usecase.Create(ctx.Request.Context(), ownerID, req.AgreementCount, filters)
	if err != nil {
		if errors.Is(err, usecase_room.ErrInvalidAgreement) {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: err.Error()})
			return
		}
		c.logger.Error("failed to create room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.JSON(http.StatusCreated, roomResponse(room))
}

func (c *Controller) status(ctx *gin.Context) {
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	room, err := c.usecase.Status(ctx.Request.Context(), roomID)
	if err != nil {
		c.respondError(ctx, err, "failed to get room status")
		return
	}

	ctx.JSON(http.StatusOK, roomResponse(room))
}

func (c *Controller) join(ctx *gin.Context) {
	userID, ok := http_identity_middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "missing user id"})
		return
	}
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	if err := c.usecase.Join(ctx.Request.Context(), roomID, userID); err != nil {
		c.respondError(ctx, err, "failed to join room")
		return
	}

	c.hub.BroadcastToRoom(roomID, ws_room.Event{
		Type: ws_room.EventMemberJoined,
		Payload: map[string]any{
			"user_id": userID.String(),
		},
	})

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) updateFilters(ctx *gin.Context) {
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	var req FiltersDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid request body"})
		return
	}

	if err := c.usecase.UpdateFilters(ctx.Request.Context(), roomID, req.toDomain()); err != nil {
		if errors.Is(err, usecase_room.ErrImmutableFilter) {
			ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: err.Error()})
			return
		}
		c.respondError(ctx, err, "failed to update filters")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) close(ctx *gin.Context) {
	roomID, ok := c.roomID(ctx)
	if !ok {
		return
	}

	if err := c.usecase.Close(ctx.Request.Context(), roomID); err != nil {
		c.respondError(ctx, err, "failed to close room")
		return
	}

	ctx.Status(http.StatusNoContent)
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
	case errors.Is(err, usecase_room.ErrResourceNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "room not found"})
	case errors.Is(err, usecase_room.ErrRoomClosed):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: "room is closed"})
	default:
		c.logger.Error(logMsg, slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
	}
}
