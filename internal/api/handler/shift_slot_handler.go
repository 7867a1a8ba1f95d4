package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// ShiftSlotHandler 班次配置 HTTP 处理器
type ShiftSlotHandler struct {
	shiftSlotSvc service.ShiftSlotService
}

// NewShiftSlotHandler 创建 ShiftSlotHandler
func NewShiftSlotHandler(shiftSlotSvc service.ShiftSlotService) *ShiftSlotHandler {
	return &ShiftSlotHandler{shiftSlotSvc: shiftSlotSvc}
}

// ListShiftSlots 获取班次列表
// GET /api/v1/shift-slots?shop_id=
// 带 shop_id 时返回该店铺生效的班次，否则返回全部
func (h *ShiftSlotHandler) ListShiftSlots(c *gin.Context) {
	var req dto.ShiftSlotListRequest
	if !bindQuery(c, &req, 15001) {
		return
	}

	slots, err := h.shiftSlotSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftSlotError(c, err)
		return
	}

	response.OKList(c, slots, len(slots))
}

// CreateShiftSlot 创建班次
// POST /api/v1/shift-slots
func (h *ShiftSlotHandler) CreateShiftSlot(c *gin.Context) {
	var req dto.CreateShiftSlotRequest
	if !bindJSON(c, &req, 15001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.shiftSlotSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleShiftSlotError(c, err)
		return
	}

	response.Created(c, slot)
}

// UpdateShiftSlot 更新班次
// PUT /api/v1/shift-slots/:id
func (h *ShiftSlotHandler) UpdateShiftSlot(c *gin.Context) {
	var req dto.UpdateShiftSlotRequest
	if !bindJSON(c, &req, 15001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.shiftSlotSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleShiftSlotError(c, err)
		return
	}

	response.OK(c, slot)
}

// DeleteShiftSlot 删除班次
// DELETE /api/v1/shift-slots/:id
func (h *ShiftSlotHandler) DeleteShiftSlot(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shiftSlotSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleShiftSlotError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleShiftSlotError 统一处理班次模块业务错误
func (h *ShiftSlotHandler) handleShiftSlotError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrShiftSlotNotFound):
		response.NotFound(c, 15201, "班次不存在")
	case errors.Is(err, service.ErrShiftSlotNameTaken):
		response.Conflict(c, 15202, "班次名称已存在")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 15203, "班次时间无效")
	case errors.Is(err, service.ErrShiftSlotInUse):
		response.Conflict(c, 15204, err.Error())
	case errors.Is(err, service.ErrShopNotFound):
		response.NotFound(c, 15101, "店铺不存在")
	default:
		response.InternalError(c)
	}
}
