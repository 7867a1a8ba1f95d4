package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

// ShopHandler 店铺与闭店规则 HTTP 处理器
type ShopHandler struct {
	shopSvc service.ShopService
}

// NewShopHandler 创建 ShopHandler
func NewShopHandler(shopSvc service.ShopService) *ShopHandler {
	return &ShopHandler{shopSvc: shopSvc}
}

// ListShops 获取店铺列表
// GET /api/v1/shops
func (h *ShopHandler) ListShops(c *gin.Context) {
	shops, err := h.shopSvc.List(c.Request.Context())
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OKList(c, shops, len(shops))
}

// GetShop 获取店铺详情
// GET /api/v1/shops/:id
func (h *ShopHandler) GetShop(c *gin.Context) {
	shop, err := h.shopSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OK(c, shop)
}

// CreateShop 创建店铺
// POST /api/v1/shops
func (h *ShopHandler) CreateShop(c *gin.Context) {
	var req dto.CreateShopRequest
	if !bindJSON(c, &req, 15001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shop, err := h.shopSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.Created(c, shop)
}

// UpdateShop 更新店铺
// PUT /api/v1/shops/:id
func (h *ShopHandler) UpdateShop(c *gin.Context) {
	var req dto.UpdateShopRequest
	if !bindJSON(c, &req, 15001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shop, err := h.shopSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OK(c, shop)
}

// DeleteShop 删除店铺
// DELETE /api/v1/shops/:id
func (h *ShopHandler) DeleteShop(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shopSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 闭店规则 ──

// ListClosures 获取店铺闭店规则
// GET /api/v1/shops/:id/closures
func (h *ShopHandler) ListClosures(c *gin.Context) {
	closures, err := h.shopSvc.ListClosures(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OKList(c, closures, len(closures))
}

// CreateClosure 创建闭店规则
// POST /api/v1/shops/:id/closures
func (h *ShopHandler) CreateClosure(c *gin.Context) {
	var req dto.CreateClosureRequest
	if !bindJSON(c, &req, 15001) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	closure, err := h.shopSvc.CreateClosure(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleShopError(c, err)
		return
	}

	response.Created(c, closure)
}

// DeleteClosure 删除闭店规则
// DELETE /api/v1/shops/:id/closures/:closure_id
func (h *ShopHandler) DeleteClosure(c *gin.Context) {
	if err := h.shopSvc.DeleteClosure(c.Request.Context(), c.Param("id"), c.Param("closure_id")); err != nil {
		h.handleShopError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleShopError 统一处理店铺模块业务错误
func (h *ShopHandler) handleShopError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrShopNotFound):
		response.NotFound(c, 15101, "店铺不存在")
	case errors.Is(err, service.ErrShopNameTaken):
		response.Conflict(c, 15102, "店铺名称已存在")
	case errors.Is(err, service.ErrClosureNotFound):
		response.NotFound(c, 15103, "闭店规则不存在")
	case errors.Is(err, service.ErrInvalidClosureRule):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15104, "闭店规则无效", err.Error())
	default:
		response.InternalError(c)
	}
}
