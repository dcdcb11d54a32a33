package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hitoq/hitoq/internal/messaging"
)

// registerRoutes sets up the messaging and notification routes.
func registerRoutes(r *gin.RouterGroup, h *handlers) {
	msgs := r.Group("/messages")
	msgs.POST("", h.send)
	msgs.GET("", h.roots)
	msgs.GET("/inbox", h.inbox)
	msgs.GET("/conversations", h.conversations)
	msgs.GET("/unread-count", h.unreadCount)
	msgs.POST("/heart-states", h.heartStates)
	msgs.GET("/:id", h.get)
	msgs.PATCH("/:id", h.updateStatus)
	msgs.PUT("/:id/content", h.editContent)
	msgs.DELETE("/:id", h.delete)
	msgs.GET("/:id/thread", h.thread)
	msgs.POST("/:id/heart", h.toggleHeart)
	msgs.GET("/:id/likes", h.likers)

	notes := r.Group("/notifications")
	notes.GET("", h.notifications)
	notes.GET("/count", h.notificationCount)
	notes.PATCH("/mark-all-read", h.markAllRead)
}

type handlers struct {
	svc *messaging.Service
}

type pageQuery struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=unread read replied"`
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

type heartStatesRequest struct {
	MessageIDs []string `json:"messageIds" binding:"required"`
}

func bindPage(c *gin.Context) (messaging.Page, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return messaging.Page{}, false
	}
	return messaging.Page{Skip: q.Skip, Limit: q.Limit}, true
}

func (h *handlers) send(c *gin.Context) {
	var req messaging.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.svc.Send(c.Request.Context(), callerID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) roots(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	views, err := h.svc.Roots(c.Request.Context(), callerID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) inbox(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	views, err := h.svc.Inbox(c.Request.Context(), callerID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) conversations(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	views, err := h.svc.Conversations(c.Request.Context(), callerID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) unreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

func (h *handlers) get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.svc.UpdateStatus(c.Request.Context(), callerID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) editContent(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.svc.EditContent(c.Request.Context(), callerID(c), c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) delete(c *gin.Context) {
	n, err := h.svc.Delete(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "deletedCount": n})
}

// thread responds with the root first, then the replies in thread order.
func (h *handlers) thread(c *gin.Context) {
	t, err := h.svc.Thread(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]messaging.MessageView, 0, len(t.Replies)+1)
	out = append(out, t.Root)
	out = append(out, t.Replies...)
	c.JSON(http.StatusOK, out)
}

func (h *handlers) toggleHeart(c *gin.Context) {
	state, err := h.svc.ToggleHeart(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handlers) likers(c *gin.Context) {
	users, err := h.svc.Likers(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handlers) heartStates(c *gin.Context) {
	var req heartStatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	states, err := h.svc.HeartStates(c.Request.Context(), callerID(c), req.MessageIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

func (h *handlers) notifications(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	views, err := h.svc.Notifications(c.Request.Context(), callerID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) notificationCount(c *gin.Context) {
	n, err := h.svc.NotificationCount(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *handlers) markAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllNotificationsRead(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updatedCount": n})
}

// writeError maps the messaging error taxonomy onto HTTP statuses.
// A blocked recipient is a 400 on send, not a 403.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, messaging.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, messaging.ErrRecipientBlocked):
		status = http.StatusBadRequest
	case errors.Is(err, messaging.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, messaging.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, messaging.ErrReactionConflict):
		status = http.StatusConflict
	}
	c.Error(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
