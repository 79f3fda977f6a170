package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/api/middleware"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

// MustGetSessionID 从 Gin 上下文中安全提取 session_id。
// 如果 Session 中间件未注入 session_id，返回 false 并写入 400 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.SessionIDKey)
	if !exists {
		response.BadRequest(c, 10003, "缺少会话 ID")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.BadRequest(c, 10003, "缺少会话 ID")
		return "", false
	}
	return s, true
}
