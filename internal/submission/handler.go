package submission

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type Handler struct {
	service   *Service
	feed      ChangeFeed
	cache     *Cache
	sanitizer *bluemonday.Policy
}

func NewHandler(service *Service, f ChangeFeed, cache *Cache) *Handler {
	return &Handler{
		service:   service,
		feed:      f,
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type View struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Username        string    `json:"username"`
	ImageURL        string    `json:"image_url"`
	Comment         string    `json:"comment"`
	Status          string    `json:"status"`
	StatusLabel     string    `json:"status_label"`
	Likes           int       `json:"likes"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	RejectionLabel  string    `json:"rejection_label,omitempty"`
}

func (h *Handler) view(sub store.Submission) View {
	status := sub.CurrentStatus()
	v := View{
		ID:          sub.ID,
		CreatedAt:   sub.CreatedAt,
		Username:    h.sanitizer.Sanitize(sub.Username),
		ImageURL:    sub.ImageURL,
		Comment:     h.sanitizer.Sanitize(sub.Comment),
		Status:      string(status),
		StatusLabel: StatusLabel(status),
		Likes:       sub.LikeCount(),
	}
	if sub.RejectionReason != nil {
		reason := RejectionReason(*sub.RejectionReason)
		v.RejectionReason = string(reason)
		v.RejectionLabel = reason.Label()
	}
	return v
}

func (h *Handler) views(subs []store.Submission) []View {
	out := make([]View, 0, len(subs))
	for _, sub := range subs {
		out = append(out, h.view(sub))
	}
	return out
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidID})
		return 0, false
	}
	return id, true
}

// List GET /api/submissions
func (h *Handler) List(c *gin.Context) {
	route := c.FullPath()
	g, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRetry})
		logs.LogJSON("ERROR", "Error during submissions retrieval", map[string]interface{}{
			"error": err,
			"route": route,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending":  h.views(g.Pending),
		"approved": h.views(g.Approved),
		"rejected": h.views(g.Rejected),
	})
}

// Status GET /api/status?username=
func (h *Handler) Status(c *gin.Context) {
	route := c.FullPath()
	username := strings.TrimSpace(c.Query("username"))

	sub, err := h.service.Lookup(c.Request.Context(), username)
	switch {
	case store.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUsernameRequired})
		return
	case store.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNoSubmission})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRetry})
		logs.LogJSON("ERROR", "Error during status lookup", map[string]interface{}{
			"error":    err,
			"route":    route,
			"username": username,
		})
		return
	}
	c.JSON(http.StatusOK, h.view(sub))
}

// Delete DELETE /api/admin/submissions/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		var de *DeleteError
		if errors.As(err, &de) {
			code := http.StatusInternalServerError
			if store.IsNotFound(de.Err) && de.Step == StepLookup {
				code = http.StatusNotFound
			}
			c.JSON(code, gin.H{"error": de.Message, "step": de.Step})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRetry})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDelete POST /api/admin/submissions/bulk-delete
func (h *Handler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgSelectSubmissions})
		return
	}
	res := h.service.BulkDelete(c.Request.Context(), req.IDs)
	logs.LogJSON("INFO", "Bulk delete finished", map[string]interface{}{
		"route":     c.FullPath(),
		"requested": len(req.IDs),
		"succeeded": res.Succeeded,
		"failed":    len(res.Failed),
	})
	c.JSON(http.StatusOK, res)
}

// Approve POST /api/admin/submissions/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sub, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		h.writeStatusError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, h.view(sub))
}

type rejectRequest struct {
	Reason RejectionReason `json:"reason"`
}

// Reject POST /api/admin/submissions/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Reason.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidReason})
		return
	}
	sub, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.writeStatusError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, h.view(sub))
}

func (h *Handler) writeStatusError(c *gin.Context, id int64, err error) {
	switch {
	case store.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case store.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidReason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRetry})
		logs.LogJSON("ERROR", "Error updating submission status", map[string]interface{}{
			"error":        err,
			"route":        c.FullPath(),
			"submissionID": id,
		})
	}
}

// Events GET /api/admin/submissions/events streams status notifications
// over SSE while the connection stays open.
func (h *Handler) Events(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	notes := make(chan Notification, 16)
	m := NewMaintainer(h.feed, h.cache, func(n Notification) {
		select {
		case notes <- n:
		default:
		}
	})
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case n := <-notes:
			c.SSEvent("status", n)
			return true
		case err := <-errc:
			if err != nil {
				logs.LogJSON("ERROR", "Submission event stream stopped", map[string]interface{}{
					"error": err,
					"route": c.FullPath(),
				})
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
}
