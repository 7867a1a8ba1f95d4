package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	"github.com/Jaaz7/kgag-scheduler/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSchedule 导出月度排班表
// GET /api/v1/export/schedule?shop_id=&month=&year=
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	var q dto.SchedulePeriodQuery
	if !bindQuery(c, &q, 16001) {
		return
	}

	buf, filename, err := h.exportSvc.ExportSchedule(c.Request.Context(), q.ShopID, q.Month, q.Year)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExportMyCalendar 导出当前员工的月度班次日历
// GET /api/v1/export/my-calendar?shop_id=&month=&year=
func (h *ExportHandler) ExportMyCalendar(c *gin.Context) {
	workerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var q dto.SchedulePeriodQuery
	if !bindQuery(c, &q, 16001) {
		return
	}

	buf, filename, err := h.exportSvc.ExportWorkerCalendar(c.Request.Context(), q.ShopID, q.Month, q.Year, workerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, icsContentType, buf.Bytes())
}

// attachment 文件名含中文，按 RFC 5987 编码
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoSchedule):
		response.NotFound(c, 16101, "该月份暂无排班表")
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 16102, "员工不存在")
	case errors.Is(err, service.ErrWorkerNotInShop):
		response.Forbidden(c, 16103, "员工不属于该店铺")
	default:
		response.InternalError(c)
	}
}
