package scheduler

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	reportService "github.com/dumeirei/hotel-pms-backend/internal/service/report"
)

// 任务名称
const (
	TaskReportWarmup = "report_warmup"
	TaskDailySummary = "daily_summary"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	reports         *reportService.ReportService
	reservationRepo *repository.ReservationRepository
	now             func() time.Time
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(reports *reportService.ReportService, reservationRepo *repository.ReservationRepository) *TaskHandler {
	return &TaskHandler{
		reports:         reports,
		reservationRepo: reservationRepo,
		now:             time.Now,
	}
}

// DailySummary 当日概况
type DailySummary struct {
	Date             string
	Arrivals         int
	Departures       int
	OccupiedRooms    int
	Occupancy        string
	OverdueCheckouts []int64
}

// WarmReportCache 清除并预热当日报表缓存
func (h *TaskHandler) WarmReportCache(ctx context.Context) error {
	return h.reports.WarmUp(ctx, utils.DateOnly(h.now()))
}

// BuildDailySummary 汇总当日进离店、入住率与逾期未退房
func (h *TaskHandler) BuildDailySummary(ctx context.Context) (*DailySummary, error) {
	today := utils.DateOnly(h.now())

	movements, err := h.reports.Movements(ctx, today)
	if err != nil {
		return nil, err
	}
	occupancy, err := h.reports.Occupancy(ctx, today)
	if err != nil {
		return nil, err
	}
	overdue, err := h.reservationRepo.ListOverdueCheckouts(ctx, today)
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:          utils.FormatDate(today),
		Arrivals:      len(movements.Arrivals),
		Departures:    len(movements.Departures),
		OccupiedRooms: occupancy.OccupiedRooms,
		Occupancy:     occupancy.Percentage.StringFixed(2),
	}
	for _, r := range overdue {
		summary.OverdueCheckouts = append(summary.OverdueCheckouts, r.ID)
	}
	return summary, nil
}

// LogDailySummary 输出当日概况日志
func (h *TaskHandler) LogDailySummary(ctx context.Context) error {
	summary, err := h.BuildDailySummary(ctx)
	if err != nil {
		return err
	}

	logger.Info("daily summary",
		logger.String("date", summary.Date),
		logger.Int("arrivals", summary.Arrivals),
		logger.Int("departures", summary.Departures),
		logger.Int("occupied_rooms", summary.OccupiedRooms),
		logger.String("occupancy", summary.Occupancy),
	)
	for _, id := range summary.OverdueCheckouts {
		logger.Warn("reservation still checked in after exit date", logger.ReservationID(id))
	}
	return nil
}

// RegisterTasks 按配置注册全部任务
func RegisterTasks(s *Scheduler, h *TaskHandler, cfg *config.SchedulerConfig) error {
	if err := s.AddTask(TaskReportWarmup, cfg.ReportWarmupSpec, h.WarmReportCache); err != nil {
		return err
	}
	return s.AddTask(TaskDailySummary, cfg.DailySummarySpec, h.LogDailySummary)
}
