package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderKey = "X-Request-Id"

// Middleware はリクエストIDを採番してレスポンスヘッダに付ける。
// クライアントが持ち込んだIDはそのまま使う（ゲートウェイ経由のトレース用）。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderKey, id)
		c.Set("request_id", id)
		c.Next()
	}
}
