package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 Identity 中间件未注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString("user_id")
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	s := c.GetString("role")
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindJSON 绑定 JSON 请求体；失败时写入 400（请求体超限为 413）并返回 false
func bindJSON(c *gin.Context, dst interface{}, code int) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", err.Error())
		return false
	}
	return true
}

// bindQuery 绑定查询参数；失败时写入 400 并返回 false
func bindQuery(c *gin.Context, dst interface{}, code int) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", err.Error())
		return false
	}
	return true
}

// validationDetails 结构化的校验错误详情
type validationDetails struct {
	WorkerID string `json:"worker_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// handleCommonError 处理跨模块共享的错误，已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10006, "输入校验失败", validationDetails{
			WorkerID: ve.WorkerID,
			Field:    ve.Field,
			Message:  ve.Message,
		})
	case errors.Is(err, apperrors.ErrOptimisticLock):
		response.Conflict(c, 10007, apperrors.ErrOptimisticLock.Error())
	default:
		return false
	}
	return true
}
