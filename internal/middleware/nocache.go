package middleware

import "github.com/gin-gonic/gin"

// NoCache marks responses as uncacheable so the back button cannot show an
// authenticated page after logout.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
