package router

import (
	"crypto/subtle"
	"net/http"

	"venditto/controllers"

	"github.com/gin-gonic/gin"
)

// Adminizer blocks access when the X-Admin-Token header does not match the
// static token from config.
func Adminizer(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(adminToken)) != 1 {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
