package middleware

import (
	"time"

	"acdispatch/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个请求的方法, 路径, 状态码和耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		switch {
		case status >= 500:
			logger.Error("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		case status >= 400:
			logger.Warn("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		default:
			logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, elapsed)
		}
	}
}
