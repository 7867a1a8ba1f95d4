package dto

// ── 排班模块 DTO ──

// GenerateScheduleRequest 生成月度排班请求
type GenerateScheduleRequest struct {
	ShopID string `json:"shop_id" binding:"required,uuid"`
	Month  int    `json:"month"   binding:"required,min=1,max=12"`
	Year   int    `json:"year"    binding:"required,min=2000,max=2100"`
	// AllowQuotaOverflow 为空时使用服务端配置
	AllowQuotaOverflow *bool `json:"allow_quota_overflow"`
}

// SchedulePeriodQuery 按店铺与月份查询
type SchedulePeriodQuery struct {
	ShopID string `form:"shop_id" binding:"required,uuid"`
	Month  int    `form:"month"   binding:"required,min=1,max=12"`
	Year   int    `form:"year"    binding:"required,min=2000,max=2100"`
}

// ShopQuery 按店铺查询
type ShopQuery struct {
	ShopID string `form:"shop_id" binding:"required,uuid"`
}

// ── 响应 ──

// ScheduleResponse 排班表（含明细）
type ScheduleResponse struct {
	ID            string               `json:"id"`
	ShopID        string               `json:"shop_id"`
	ShopName      string               `json:"shop_name,omitempty"`
	Month         int                  `json:"month"`
	Year          int                  `json:"year"`
	Status        string               `json:"status"`
	TotalCells    int                  `json:"total_cells"`
	FilledCount   int                  `json:"filled_count"`
	UnfilledCount int                  `json:"unfilled_count"`
	ClosedCount   int                  `json:"closed_count"`
	Assignments   []AssignmentResponse `json:"assignments,omitempty"`
	CreatedAt     string               `json:"created_at"`
	CreatedBy     *string              `json:"created_by,omitempty"`
}

// AssignmentResponse 排班明细
type AssignmentResponse struct {
	Date      string       `json:"date"` // YYYY-MM-DD
	Weekday   string       `json:"weekday"`
	ShiftSlot string       `json:"shift_slot"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Status    string       `json:"status"` // filled | unfilled
	OverQuota bool         `json:"over_quota,omitempty"`
	Worker    *WorkerBrief `json:"worker,omitempty"`
}

// WorkerBrief 员工简要信息
type WorkerBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerateScheduleResponse 生成排班结果与汇总
type GenerateScheduleResponse struct {
	Schedule        *ScheduleResponse        `json:"schedule"`
	TotalCells      int                      `json:"total_cells"`
	FilledCount     int                      `json:"filled_count"`
	UnfilledCount   int                      `json:"unfilled_count"`
	ClosedCount     int                      `json:"closed_count"`
	PerWorkerLoad   []WorkerLoadResponse     `json:"per_worker_load"`
	QuotaViolations []QuotaViolationResponse `json:"quota_violations,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
}

// WorkerLoadResponse 员工负载与配额对比
type WorkerLoadResponse struct {
	WorkerID string             `json:"worker_id"`
	Name     string             `json:"name"`
	Quota    int                `json:"weekly_quota"`
	Total    int                `json:"total"`
	Weeks    []WeekLoadResponse `json:"weeks"`
}

// WeekLoadResponse 单周负载
type WeekLoadResponse struct {
	Week  string `json:"week"` // 2025-W03
	Count int    `json:"count"`
	Prior int    `json:"prior,omitempty"` // 相邻月份已排天数
}

// QuotaViolationResponse 超配额记录
type QuotaViolationResponse struct {
	WorkerID string `json:"worker_id"`
	Week     string `json:"week"`
	Date     string `json:"date"`
	Slot     string `json:"shift_slot"`
	Count    int    `json:"count"`
	Quota    int    `json:"weekly_quota"`
}

// AvailableMonthResponse 可生成排班的月份
type AvailableMonthResponse struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Label string `json:"label"` // 2025-01
}

// CalendarWeekResponse 日历中的一周
type CalendarWeekResponse struct {
	Week string                `json:"week"`
	Days []CalendarDayResponse `json:"days"`
}

// CalendarDayResponse 日历中的一天
type CalendarDayResponse struct {
	Date        string               `json:"date"`
	Weekday     string               `json:"weekday"`
	InMonth     bool                 `json:"in_month"`
	Assignments []AssignmentResponse `json:"assignments,omitempty"`
}
