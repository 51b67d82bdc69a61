package report

import (
	"context"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
)

// InvalidatingPublisher 发布领域事件前清除报表缓存
// 预订与发票的写操作在提交后都会发布事件
type InvalidatingPublisher struct {
	events.Publisher
	reports *ReportService
}

// NewInvalidatingPublisher 包装事件发布器
func NewInvalidatingPublisher(next events.Publisher, reports *ReportService) *InvalidatingPublisher {
	if next == nil {
		next = events.NoopPublisher{}
	}
	return &InvalidatingPublisher{Publisher: next, reports: reports}
}

// Publish 清除报表缓存后转发事件，清除失败只记录日志
func (p *InvalidatingPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	if n, err := p.reports.Invalidate(ctx); err != nil {
		logger.Warn("report cache invalidation failed", logger.String("event", routingKey), logger.Err(err))
	} else if n > 0 {
		logger.Debug("report cache invalidated", logger.String("event", routingKey), logger.Int("keys", n))
	}
	return p.Publisher.Publish(ctx, routingKey, data)
}
