package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	// SessionIDKey 会话 ID 在 gin.Context 中的键
	SessionIDKey = "session_id"

	requestIDHeader = "X-Request-ID"
	// SessionIDHeader 会话 ID 请求/响应头
	SessionIDHeader = "X-Session-ID"
)

// requestIDMaxLen 限制外部传入的 Request-ID 最大长度，防止日志注入
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件
// 从请求头 X-Request-ID 读取，若不存在或过长则自动生成 UUID
// 结果注入到 gin.Context 中并设置响应头 X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}

// Session 会话 ID 中间件
// 选课状态按会话保存；请求头 X-Session-ID 必须是合法 UUID，否则分配新会话。
// 客户端应保存响应头中的 X-Session-ID 并在后续请求中带回
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(SessionIDHeader)
		if parsed, err := uuid.Parse(sid); err == nil {
			sid = parsed.String()
		} else {
			sid = uuid.New().String()
		}

		c.Set(SessionIDKey, sid)
		c.Header(SessionIDHeader, sid)

		c.Next()
	}
}
