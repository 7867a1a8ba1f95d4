package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Jaaz7/kgag-scheduler/internal/api/middleware"
	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// WorkerHandler 员工档案 HTTP 处理器
type WorkerHandler struct {
	workerSvc service.WorkerService
}

// NewWorkerHandler 创建 WorkerHandler
func NewWorkerHandler(workerSvc service.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerSvc: workerSvc}
}

// ListWorkers 获取店铺员工列表
// GET /api/v1/workers?shop_id=
func (h *WorkerHandler) ListWorkers(c *gin.Context) {
	var req dto.WorkerListRequest
	if !bindQuery(c, &req, 14001) {
		return
	}

	workers, err := h.workerSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OKList(c, workers, len(workers))
}

// GetWorker 获取员工档案
// GET /api/v1/workers/:id
func (h *WorkerHandler) GetWorker(c *gin.Context) {
	if !h.selfOrAdmin(c) {
		return
	}

	worker, err := h.workerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, worker)
}

// CreateWorker 创建员工档案
// POST /api/v1/workers
func (h *WorkerHandler) CreateWorker(c *gin.Context) {
	var req dto.CreateWorkerRequest
	if !bindJSON(c, &req, 14001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	worker, err := h.workerSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.Created(c, worker)
}

// UpdateWorker 更新员工档案（管理员）
// PUT /api/v1/workers/:id
func (h *WorkerHandler) UpdateWorker(c *gin.Context) {
	var req dto.UpdateWorkerRequest
	if !bindJSON(c, &req, 14001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	worker, err := h.workerSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, worker)
}

// UpdatePreferences 更新周配额与班次/星期偏好
// PUT /api/v1/workers/:id/preferences
// 员工只能修改自己的偏好，管理员不受限
func (h *WorkerHandler) UpdatePreferences(c *gin.Context) {
	if !h.selfOrAdmin(c) {
		return
	}

	var req dto.UpdatePreferencesRequest
	if !bindJSON(c, &req, 14001) {
		return
	}

	callerID := c.GetString(middleware.ContextUserID)
	worker, err := h.workerSvc.UpdatePreferences(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, worker)
}

// DeleteWorker 删除员工档案
// DELETE /api/v1/workers/:id
func (h *WorkerHandler) DeleteWorker(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.workerSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportRoster 批量导入名册
// POST /api/v1/shops/:id/roster
func (h *WorkerHandler) ImportRoster(c *gin.Context) {
	var req dto.ImportRosterRequest
	if !bindJSON(c, &req, 14001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.workerSvc.ImportRoster(c.Request.Context(), c.Param("id"), req.Workers, callerID)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, result)
}

// selfOrAdmin 员工只能访问自己的档案；不满足时写入响应并返回 false
func (h *WorkerHandler) selfOrAdmin(c *gin.Context) bool {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role != middleware.RoleAdmin && c.Param("id") != callerID {
		response.Forbidden(c, 14003, "只能访问自己的档案")
		return false
	}
	return true
}

// handleWorkerError 统一处理员工模块业务错误
func (h *WorkerHandler) handleWorkerError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 14101, "员工档案不存在")
	case errors.Is(err, service.ErrWorkerNotInShop):
		response.Forbidden(c, 14102, "员工不属于该店铺")
	case errors.Is(err, service.ErrShopNotFound):
		response.NotFound(c, 14103, "店铺不存在")
	default:
		response.InternalError(c)
	}
}
