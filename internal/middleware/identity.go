package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ride-chat/internal/models"
)

// Identity reads the user identity the API gateway injects after session
// validation. Session handling itself lives outside this service.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-Id")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		userID, err := strconv.Atoi(header)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
			return
		}

		role := models.Role(c.GetHeader("X-User-Role"))
		if role != "" && !role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user role"})
			return
		}

		c.Set("userID", userID)
		if role != "" {
			c.Set("userRole", role)
		}
		c.Next()
	}
}
