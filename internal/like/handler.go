package like

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/muhtarbag/fenomen-pet/internal/events"
	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type SubmissionReader interface {
	GetSubmission(ctx context.Context, id int64) (store.Submission, error)
}

type EventPublisher interface {
	PublishLikeToggled(ctx context.Context, ev events.LikeToggled) error
}

// Handler serves the like control of one submission for the calling
// viewer. Viewer identity comes from the auth and viewer middlewares.
type Handler struct {
	Store       Store
	Submissions SubmissionReader
	Markers     *RedisMarkerStore
	Fallback    OriginResolver
	Registry    *Registry
	Events      EventPublisher
}

type ginIdentity struct {
	c *gin.Context
}

func (g ginIdentity) CurrentIdentity(context.Context) (*Identity, error) {
	userID := g.c.GetString("user_id")
	if userID == "" {
		return nil, nil
	}
	return &Identity{ID: userID, Email: g.c.GetString("user_email")}, nil
}

func viewerOf(c *gin.Context) (string, bool) {
	if userID := c.GetString("user_id"); userID != "" {
		return userID, false
	}
	return c.GetString("viewer_id"), true
}

func statusFor(cat Category) int {
	switch cat {
	case CategorySuccess:
		return http.StatusOK
	case CategoryAlreadyLiked, CategoryIgnored:
		return http.StatusConflict
	case CategoryCooldown:
		return http.StatusTooManyRequests
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryPlaceholder, CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// engineFor builds the engine for the request. It writes the error
// response itself and returns nil when the submission cannot be served.
func (h *Handler) engineFor(c *gin.Context) *Engine {
	route := c.FullPath()
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Outcome{Category: CategoryValidation, Message: msgInvalidID})
		return nil
	}
	if id <= 0 {
		return NewEngine(Config{SubmissionID: id, Placeholder: true})
	}

	sub, err := h.Submissions.GetSubmission(c.Request.Context(), id)
	if store.IsNotFound(err) {
		c.JSON(http.StatusNotFound, Outcome{Category: CategoryNotFound, Message: msgNotFound})
		logs.LogJSON("WARN", "Submission not found", map[string]interface{}{
			"route":        route,
			"submissionID": id,
		})
		return nil
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Outcome{Category: CategoryRetry, Message: msgRetry})
		logs.LogJSON("ERROR", "Error loading submission", map[string]interface{}{
			"error":        err,
			"route":        route,
			"submissionID": id,
		})
		return nil
	}

	viewer, anonymous := viewerOf(c)
	var markers MarkerStore
	if anonymous && h.Markers != nil && viewer != "" {
		markers = h.Markers.Viewer(viewer)
	}
	return NewEngine(Config{
		SubmissionID: id,
		InitialLikes: sub.LikeCount(),
		Identity:     ginIdentity{c: c},
		Store:        h.Store,
		Markers:      markers,
		Origin:       RequestOrigin{IP: c.ClientIP(), Fallback: h.Fallback},
	})
}

// GetStatus GET /api/submissions/:id/like
func (h *Handler) GetStatus(c *gin.Context) {
	engine := h.engineFor(c)
	if engine == nil {
		return
	}
	c.JSON(http.StatusOK, engine.Reconcile(c.Request.Context()))
}

// Toggle POST /api/submissions/:id/like
func (h *Handler) Toggle(c *gin.Context) {
	engine := h.engineFor(c)
	if engine == nil {
		return
	}
	ctx := c.Request.Context()
	id := engine.submissionID
	viewer, anonymous := viewerOf(c)

	if !engine.placeholder && h.Registry != nil {
		if !h.Registry.Acquire(id, viewer) {
			c.JSON(http.StatusConflict, Outcome{Category: CategoryIgnored, State: engine.State()})
			return
		}
		defer h.Registry.Release(id, viewer)
	}

	engine.Reconcile(ctx)
	out := engine.Toggle(ctx)

	if out.Category == CategorySuccess && h.Events != nil {
		err := h.Events.PublishLikeToggled(ctx, events.LikeToggled{
			SubmissionID: id,
			Viewer:       viewer,
			Anonymous:    anonymous,
			Liked:        out.State.IsLiked,
			LikeCount:    out.State.LikeCount,
		})
		if err != nil {
			logs.LogJSON("WARN", "Error publishing like event", map[string]interface{}{
				"error":        err,
				"submissionID": id,
			})
		}
	}

	logs.LogJSON("INFO", "Like toggled", map[string]interface{}{
		"route":        c.FullPath(),
		"submissionID": id,
		"category":     out.Category,
		"anonymous":    anonymous,
	})
	c.JSON(statusFor(out.Category), out)
}
