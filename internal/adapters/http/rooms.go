package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/domain"
	"interviewhub/backend/internal/store"
)

// RoomHandlers covers the REST side of the video room lifecycle: a room
// record is created here first, then participants open signaling connections
// against its id.
type RoomHandlers struct {
	Store store.RoomStore
}

type createRoomRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}
	room := &domain.VideoRoom{
		ID:           domain.RoomID(uuid.NewString()),
		CreatedBy:    domain.UserID(req.UserID),
		Participants: []domain.UserID{domain.UserID(req.UserID)},
	}
	if err := h.Store.CreateRoom(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID})
}

type joinRoomRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}
	err := h.Store.AddParticipant(c.Request.Context(), roomID, domain.UserID(req.UserID))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roomId": roomID})
}
