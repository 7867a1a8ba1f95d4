package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// 身份由前置网关注入的请求头传入，本服务不签发凭证
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// 角色
const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Identity 身份中间件
// X-User-ID 必须为 UUID；X-User-Role 缺省为 worker
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			response.Unauthorized(c, 10002, "缺少身份信息")
			c.Abort()
			return
		}
		if _, err := uuid.Parse(userID); err != nil {
			response.Unauthorized(c, 10002, "身份信息无效")
			c.Abort()
			return
		}

		role := c.GetHeader(HeaderUserRole)
		if role == "" {
			role = RoleWorker
		}
		if role != RoleAdmin && role != RoleWorker {
			response.Unauthorized(c, 10002, "角色无效")
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextRole)
		if userRole == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
