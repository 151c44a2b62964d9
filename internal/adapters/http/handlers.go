package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

type restHandler struct {
	deps Deps
}

type loginRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

type loginResponse struct {
	Token       string        `json:"token"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

// login mints a bearer token for the realtime core. The user id sticks
// to the browser session so reconnecting keeps the same identity.
func (h *restHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid displayName"})
		return
	}
	user, err := domain.NewUser(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := sessions.Default(c)
	if prev, ok := sess.Get("user_id").(string); ok && prev != "" {
		user.ID = domain.UserID(prev)
	}
	sess.Set("user_id", string(user.ID))
	sess.Set("display_name", user.DisplayName)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}

	token, err := h.deps.Gate.Issue(user.ID, user.DisplayName)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("token issue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, UserID: user.ID, DisplayName: user.DisplayName})
}

func (h *restHandler) listRooms(c *gin.Context) {
	rooms, err := h.deps.Rooms.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *restHandler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	ident := identityFrom(c)
	room := domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		Name:      domain.RoomName(req.Name),
		CreatedBy: ident.UserID,
		CreatedAt: time.Now(),
	}
	if err := h.deps.Rooms.Save(c.Request.Context(), room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *restHandler) roomMessages(c *gin.Context) {
	room := domain.RoomID(c.Param("id"))
	msgs, err := h.deps.Messages.ByRoom(c.Request.Context(), room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *restHandler) listCallLogs(c *gin.Context) {
	room := domain.RoomID(c.Query("room"))
	logs, err := h.deps.CallLogs.ByRoom(c.Request.Context(), room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

type callLogRequest struct {
	Room      domain.RoomID     `json:"room" binding:"required"`
	Kind      domain.CallKind   `json:"callKind" binding:"required"`
	Status    domain.CallStatus `json:"status" binding:"required"`
	Duration  int               `json:"duration"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   time.Time         `json:"endedAt"`
}

// writeCallLog is the out-of-band call history write: duration is
// measured on the client from accept to end, never held by the server.
func (h *restHandler) writeCallLog(c *gin.Context) {
	var req callLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid fields"})
		return
	}
	ident := identityFrom(c)
	entry := domain.CallLog{
		ID:         uuid.NewString(),
		Room:       req.Room,
		Caller:     ident.UserID,
		CallerName: ident.DisplayName,
		Kind:       req.Kind,
		Status:     req.Status,
		Duration:   req.Duration,
		StartedAt:  req.StartedAt,
		EndedAt:    req.EndedAt,
	}
	if err := h.deps.CallLogs.Save(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}
