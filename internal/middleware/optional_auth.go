package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
)

// OptionalAuthMiddleware identifies the viewer when a valid token is sent
// and lets the request through as anonymous otherwise.
func OptionalAuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			c.Next()
			return
		}

		userID, email, err := parseToken(tokenStr, key)
		if err != nil {
			logs.LogJSON("DEBUG", "Ignoring invalid token on optional route", map[string]interface{}{
				"route": c.FullPath(),
				"error": err,
			})
			c.Next()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_email", email)
		c.Next()
	}
}
