package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// ScheduleHandler 排班模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	now         func() time.Time
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, now: time.Now}
}

// GenerateSchedule 生成月度排班
// POST /api/v1/schedules/generate
func (h *ScheduleHandler) GenerateSchedule(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if !bindJSON(c, &req, 13001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.GenerateSchedule(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, result)
}

// GetSchedule 获取排班表
// GET /api/v1/schedules?shop_id=&month=&year=
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	var q dto.SchedulePeriodQuery
	if !bindQuery(c, &q, 13001) {
		return
	}

	schedule, err := h.scheduleSvc.GetSchedule(c.Request.Context(), q.ShopID, q.Month, q.Year)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// GetMyAssignments 获取我的排班
// GET /api/v1/schedules/my?shop_id=&month=&year=
func (h *ScheduleHandler) GetMyAssignments(c *gin.Context) {
	var q dto.SchedulePeriodQuery
	if !bindQuery(c, &q, 13001) {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	items, err := h.scheduleSvc.GetMyAssignments(c.Request.Context(), q.ShopID, q.Month, q.Year, userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OKList(c, items, len(items))
}

// CalendarWeeks 按周展开的月历
// GET /api/v1/schedules/weeks?shop_id=&month=&year=
func (h *ScheduleHandler) CalendarWeeks(c *gin.Context) {
	var q dto.SchedulePeriodQuery
	if !bindQuery(c, &q, 13001) {
		return
	}

	weeks, err := h.scheduleSvc.CalendarWeeks(c.Request.Context(), q.ShopID, q.Month, q.Year)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OKList(c, weeks, len(weeks))
}

// AvailableMonths 可生成排班的月份（当月与下月）
// GET /api/v1/schedules/available-months?shop_id=
func (h *ScheduleHandler) AvailableMonths(c *gin.Context) {
	var q dto.ShopQuery
	if !bindQuery(c, &q, 13001) {
		return
	}

	months, err := h.scheduleSvc.AvailableMonths(c.Request.Context(), q.ShopID, h.now())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OKList(c, months, len(months))
}

// handleScheduleError 统一处理排班模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrScheduleAlreadyExists):
		response.Conflict(c, 13102, "该店铺该月份已存在排班表")
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 13101, "排班表不存在")
	case errors.Is(err, service.ErrShopNotFound):
		response.NotFound(c, 13103, "店铺不存在")
	case errors.Is(err, service.ErrNoShiftSlots):
		response.BadRequest(c, 13104, "店铺未配置可用班次")
	case errors.Is(err, service.ErrInvalidClosureRule):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13105, "闭店规则无效", err.Error())
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 13106, "员工档案不存在")
	case errors.Is(err, service.ErrWorkerNotInShop):
		response.Forbidden(c, 13107, "不属于该店铺")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, 13108, "排班超时，未保存任何结果")
	case errors.Is(err, apperrors.ErrPersistence):
		response.Error(c, http.StatusInternalServerError, 13109, "排班保存失败，已回滚")
	default:
		response.InternalError(c)
	}
}
