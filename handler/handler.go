package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"session-gateway/constant"
	"session-gateway/dto"
	"session-gateway/entities"
	"session-gateway/service"
)

type SessionHandler struct {
	sessions service.SessionService
	profiles service.ProfileService
}

func NewSessionHandler(sessions service.SessionService, profiles service.ProfileService) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		profiles: profiles,
	}
}

func (h *SessionHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	sessions := api.Group("/sessions")
	sessions.POST("", h.createSession)
	sessions.GET("", h.listSessions)
	sessions.GET("/mine", h.mySessions)
	sessions.GET("/:id", h.getSession)
	sessions.PATCH("/:id", h.updateSession)
	sessions.DELETE("/:id", h.deleteSession)
	sessions.POST("/:id/join", h.joinSession)
	sessions.POST("/:id/leave", h.leaveSession)
	sessions.POST("/:id/status", h.updateStatus)
	sessions.POST("/:id/recording/start", h.startRecording)
	sessions.POST("/:id/recording/stop", h.stopRecording)

	profiles := api.Group("/profiles")
	profiles.GET("/:principal", h.getProfile)
	profiles.PUT("/me", h.saveProfile)
}

func (h *SessionHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidResponse), errors.Is(err, service.ErrUnexpectedFormat):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (h *SessionHandler) sessionView(s *entities.Session) gin.H {
	return gin.H{
		"session":      s,
		"status_label": h.sessions.StatusLabel(s.Status),
		"type_label":   h.sessions.TypeLabel(s.SessionType),
	}
}

func (h *SessionHandler) createSession(c *gin.Context) {
	var input dto.CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.sessionView(session))
}

func (h *SessionHandler) listSessions(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		sessions []*entities.Session
		err      error
	)
	switch {
	case c.Query("status") != "":
		sessions, err = h.sessions.SessionsByStatus(ctx, constant.SessionStatus(c.Query("status")))
	case c.Query("type") != "":
		sessions, err = h.sessions.SessionsByType(ctx, constant.SessionType(c.Query("type")))
	case c.Query("filter") == "upcoming":
		sessions, err = h.sessions.UpcomingSessions(ctx)
	case c.Query("filter") == "live":
		sessions, err = h.sessions.LiveSessions(ctx)
	default:
		sessions, err = h.sessions.ListSessions(ctx)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h *SessionHandler) mySessions(c *gin.Context) {
	sessions, err := h.sessions.MySessions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h *SessionHandler) getSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) updateSession(c *gin.Context) {
	var input dto.UpdateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.UpdateSession(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) deleteSession(c *gin.Context) {
	deleted, err := h.sessions.DeleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *SessionHandler) joinSession(c *gin.Context) {
	result, err := h.sessions.JoinSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":      result.Session,
		"is_moderator": result.IsModerator,
		"status_label": h.sessions.StatusLabel(result.Session.Status),
		"type_label":   h.sessions.TypeLabel(result.Session.SessionType),
	})
}

func (h *SessionHandler) leaveSession(c *gin.Context) {
	session, err := h.sessions.LeaveSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) updateStatus(c *gin.Context) {
	var input dto.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.UpdateSessionStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) startRecording(c *gin.Context) {
	session, err := h.sessions.StartRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) stopRecording(c *gin.Context) {
	session, err := h.sessions.StopRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView(session))
}

func (h *SessionHandler) getProfile(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), c.Param("principal"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SessionHandler) saveProfile(c *gin.Context) {
	var profile entities.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.profiles.SaveProfile(c.Request.Context(), &profile); err != nil {
		if errors.Is(err, service.ErrAuthRequired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}
