package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. denied handles
// requests without a valid session; the chain stops after it runs.
func GinRequireAuth(auth *AuthMiddleware, denied gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})

		var reject http.Handler
		if denied != nil {
			reject = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				denied(c)
				c.Abort()
			})
		}

		auth.RequireAuth(next, reject).ServeHTTP(c.Writer, c.Request)

		// If auth middleware already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
		}
	}
}
