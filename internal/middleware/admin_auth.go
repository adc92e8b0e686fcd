package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/user"
)

// AdminOnlyMiddleware must run after AuthMiddleware.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		userID := c.GetString("user_id")

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Oturum açmanız gerekiyor"})
			logs.LogJSON("WARN", "Non-authenticated user tried admin route", map[string]interface{}{
				"route": route,
			})
			return
		}

		isAdmin, err := user.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Yetki kontrolü yapılamadı"})
			logs.LogJSON("ERROR", "Admin check failed", map[string]interface{}{
				"error":  err,
				"route":  route,
				"userID": userID,
			})
			return
		}

		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Bu işlem yalnızca yöneticilere açıktır"})
			logs.LogJSON("WARN", "Non-admin user blocked from admin route", map[string]interface{}{
				"route":  route,
				"userID": userID,
			})
			return
		}

		c.Next()
	}
}
