package handler

import "github.com/Jaaz7/kgag-scheduler/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule  *ScheduleHandler
	Worker    *WorkerHandler
	Shop      *ShopHandler
	ShiftSlot *ShiftSlotHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Schedule:  NewScheduleHandler(svc.Schedule),
		Worker:    NewWorkerHandler(svc.Worker),
		Shop:      NewShopHandler(svc.Shop),
		ShiftSlot: NewShiftSlotHandler(svc.ShiftSlot),
		Export:    NewExportHandler(svc.Export),
	}
}
