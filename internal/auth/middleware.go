package auth

import "github.com/gin-gonic/gin"

// Middleware lifts the caller-supplied identity headers into an Actor.
// Authentication itself happens upstream; this core only records who acted.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor{
			UserID: c.GetHeader("X-User-ID"),
			Role:   c.GetHeader("X-User-Role"),
		}
		if actor.UserID == "" {
			actor.UserID = "system"
		}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
