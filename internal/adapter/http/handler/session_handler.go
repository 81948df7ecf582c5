package handler

import (
	"encoding/json"
	"io"
	"time"

	"cryoner-gateway/internal/adapter/http/dto"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"
	"cryoner-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles the short-lived payment-session endpoints.
type SessionHandler struct {
	sessions ports.SessionRepository
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions ports.SessionRepository) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /api/v1/sessions. The body is stored opaque; it only
// has to be valid JSON.
func (h *SessionHandler) Create(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		response.Error(c, apperror.Validation("session payload must be valid JSON"))
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), body)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, dto.SessionResponse{
		ID:        sess.ID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Get handles GET /api/v1/sessions/:id. Expired sessions read as absent.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if sess == nil {
		response.Error(c, apperror.ErrSessionNotFound())
		return
	}

	response.OK(c, dto.SessionResponse{
		ID:        sess.ID,
		Payload:   json.RawMessage(sess.Payload),
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Delete handles DELETE /api/v1/sessions/:id. Deleting an absent session
// succeeds.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
