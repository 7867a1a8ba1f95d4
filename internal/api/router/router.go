package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/api/handler"
	"github.com/Jaaz7/kgag-scheduler/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流（未配置 Redis）
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(middleware.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		// 排班模块
		schedules := v1.Group("/schedules")
		{
			schedules.POST("/generate", admin,
				middleware.RateLimit(limiter, cfg.Server.RateLimit.Generate, cfg.Server.RateLimit.Window, logger),
				h.Schedule.GenerateSchedule)
			schedules.GET("", admin, h.Schedule.GetSchedule)
			schedules.GET("/my", h.Schedule.GetMyAssignments)
			schedules.GET("/weeks", admin, h.Schedule.CalendarWeeks)
			schedules.GET("/available-months", admin, h.Schedule.AvailableMonths)
		}

		// 员工模块
		workers := v1.Group("/workers")
		{
			workers.GET("", admin, h.Worker.ListWorkers)
			workers.GET("/:id", h.Worker.GetWorker)                        // admin 或本人（Handler 层鉴权）
			workers.POST("", admin, h.Worker.CreateWorker)
			workers.PUT("/:id", admin, h.Worker.UpdateWorker)
			workers.PUT("/:id/preferences", h.Worker.UpdatePreferences) // admin 或本人（Handler 层鉴权）
			workers.DELETE("/:id", admin, h.Worker.DeleteWorker)
		}

		// 店铺模块
		shops := v1.Group("/shops")
		{
			shops.GET("", h.Shop.ListShops)
			shops.GET("/:id", h.Shop.GetShop)
			shops.POST("", admin, h.Shop.CreateShop)
			shops.PUT("/:id", admin, h.Shop.UpdateShop)
			shops.DELETE("/:id", admin, h.Shop.DeleteShop)
			shops.POST("/:id/roster", admin, h.Worker.ImportRoster)
			shops.GET("/:id/closures", admin, h.Shop.ListClosures)
			shops.POST("/:id/closures", admin, h.Shop.CreateClosure)
			shops.DELETE("/:id/closures/:closure_id", admin, h.Shop.DeleteClosure)
		}

		// 班次模块
		shiftSlots := v1.Group("/shift-slots")
		{
			shiftSlots.GET("", h.ShiftSlot.ListShiftSlots)
			shiftSlots.POST("", admin, h.ShiftSlot.CreateShiftSlot)
			shiftSlots.PUT("/:id", admin, h.ShiftSlot.UpdateShiftSlot)
			shiftSlots.DELETE("/:id", admin, h.ShiftSlot.DeleteShiftSlot)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/schedule", admin, h.Export.ExportSchedule)
			export.GET("/my-calendar", h.Export.ExportMyCalendar)
		}
	}

	return r
}
