package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ViewerCookie = "anon_id"
	viewerMaxAge = 365 * 24 * 60 * 60
)

// ViewerMiddleware gives every browser a stable anonymous id so per-viewer
// like markers survive between requests.
func ViewerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ViewerCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ViewerCookie, id, viewerMaxAge, "/", "", c.Request.TLS != nil, true)
		}
		c.Set("viewer_id", id)
		c.Next()
	}
}
