// Package report 提供入住率、营收与进离店报表
package report

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// MaxRangeDays 报表允许的最大天数
const MaxRangeDays = 366

const cacheName = "report"

// ReportService 报表服务，只读
// Redis 未配置时直接查询数据库
type ReportService struct {
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	invoiceRepo     *repository.InvoiceRepository
	cache           *cache.Cache
	ttl             time.Duration
	metrics         *metrics.Metrics
	tracer          *tracing.Tracer
}

// NewReportService 创建报表服务
func NewReportService(
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	invoiceRepo *repository.InvoiceRepository,
	c *cache.Cache,
	ttl time.Duration,
	m *metrics.Metrics,
	tracer *tracing.Tracer,
) *ReportService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportService{
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		invoiceRepo:     invoiceRepo,
		cache:           c,
		ttl:             ttl,
		metrics:         m,
		tracer:          tracer,
	}
}

// OccupancyPoint 某晚的入住率
type OccupancyPoint struct {
	Date          string          `json:"date"`
	OccupiedRooms int             `json:"occupied_rooms"`
	TotalRooms    int64           `json:"total_rooms"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// RevenuePoint 某天的营收
type RevenuePoint struct {
	Date     string          `json:"date"`
	Invoices int             `json:"invoices"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentMethodRevenue 按支付方式汇总的营收
type PaymentMethodRevenue struct {
	Method   string          `json:"method"`
	Invoices int             `json:"invoices"`
	Total    decimal.Decimal `json:"total"`
}

// MovementItem 进离店条目
type MovementItem struct {
	ReservationID int64  `json:"reservation_id"`
	GuestName     string `json:"guest_name"`
	RoomNumber    string `json:"room_number,omitempty"`
	Status        string `json:"status"`
	EntryDate     string `json:"entry_date"`
	ExitDate      string `json:"exit_date"`
}

// Movements 当天进离店
type Movements struct {
	Date       string          `json:"date"`
	Arrivals   []*MovementItem `json:"arrivals"`
	Departures []*MovementItem `json:"departures"`
}

// Occupancy 某晚的入住率
func (s *ReportService) Occupancy(ctx context.Context, date time.Time) (*OccupancyPoint, error) {
	date = utils.DateOnly(date)
	ctx, span := s.tracer.Start(ctx, "report.occupancy", tracing.WithOperation("occupancy"))

	point, err := cached(ctx, s, []string{"occupancy", utils.FormatDate(date)}, func(ctx context.Context) (*OccupancyPoint, error) {
		total, err := s.roomRepo.Count(ctx)
		if err != nil {
			return nil, err
		}
		return s.occupancyFor(ctx, date, total)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, errors.Prefix("Error building occupancy report", err)
	}
	return point, nil
}

// OccupancySeries 区间内每晚的入住率，包含首尾两天
func (s *ReportService) OccupancySeries(ctx context.Context, from, to time.Time) ([]*OccupancyPoint, error) {
	const op = "Error building occupancy series"

	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	ctx, span := s.tracer.Start(ctx, "report.occupancy_series", tracing.WithOperation("occupancy_series"))

	series, err := cached(ctx, s, []string{"occupancy_series", utils.FormatDate(from), utils.FormatDate(to)}, func(ctx context.Context) ([]*OccupancyPoint, error) {
		total, err := s.roomRepo.Count(ctx)
		if err != nil {
			return nil, err
		}
		points := make([]*OccupancyPoint, 0)
		for _, night := range utils.Nights(from, to.AddDate(0, 0, 1)) {
			p, err := s.occupancyFor(ctx, night, total)
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		return points, nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	return series, nil
}

// RevenueByDate 按开票日期汇总的营收，仅统计已付发票
func (s *ReportService) RevenueByDate(ctx context.Context, from, to time.Time) ([]*RevenuePoint, error) {
	const op = "Error building revenue report"

	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	ctx, span := s.tracer.Start(ctx, "report.revenue_daily", tracing.WithOperation("revenue_daily"))

	points, err := cached(ctx, s, []string{"revenue_daily", utils.FormatDate(from), utils.FormatDate(to)}, func(ctx context.Context) ([]*RevenuePoint, error) {
		invoices, err := s.invoiceRepo.ListPaidBetween(ctx, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}

		byDay := make(map[string]*RevenuePoint)
		points := make([]*RevenuePoint, 0)
		for _, d := range utils.Nights(from, to.AddDate(0, 0, 1)) {
			p := &RevenuePoint{Date: utils.FormatDate(d), Total: decimal.Zero}
			byDay[p.Date] = p
			points = append(points, p)
		}
		for _, inv := range invoices {
			p, ok := byDay[utils.FormatDate(inv.IssuedAt.UTC())]
			if !ok {
				continue
			}
			p.Invoices++
			p.Total = utils.RoundMoney(p.Total.Add(inv.Total))
		}
		return points, nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	return points, nil
}

// RevenueByPaymentMethod 按支付方式汇总的营收，仅统计已付发票
func (s *ReportService) RevenueByPaymentMethod(ctx context.Context, from, to time.Time) ([]*PaymentMethodRevenue, error) {
	const op = "Error building payment method report"

	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	ctx, span := s.tracer.Start(ctx, "report.revenue_payment_methods", tracing.WithOperation("revenue_payment_methods"))

	result, err := cached(ctx, s, []string{"revenue_methods", utils.FormatDate(from), utils.FormatDate(to)}, func(ctx context.Context) ([]*PaymentMethodRevenue, error) {
		invoices, err := s.invoiceRepo.ListPaidBetween(ctx, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}

		byMethod := make(map[string]*PaymentMethodRevenue)
		for _, inv := range invoices {
			r, ok := byMethod[inv.PaymentMethod]
			if !ok {
				r = &PaymentMethodRevenue{Method: inv.PaymentMethod, Total: decimal.Zero}
				byMethod[inv.PaymentMethod] = r
			}
			r.Invoices++
			r.Total = utils.RoundMoney(r.Total.Add(inv.Total))
		}

		result := make([]*PaymentMethodRevenue, 0, len(byMethod))
		for _, r := range byMethod {
			result = append(result, r)
		}
		sort.Slice(result, func(i, j int) bool { return result[i].Method < result[j].Method })
		return result, nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	return result, nil
}

// Movements 当天的进店与离店，不含已取消预订
func (s *ReportService) Movements(ctx context.Context, date time.Time) (*Movements, error) {
	date = utils.DateOnly(date)
	ctx, span := s.tracer.Start(ctx, "report.movements", tracing.WithOperation("movements"))

	m, err := cached(ctx, s, []string{"movements", utils.FormatDate(date)}, func(ctx context.Context) (*Movements, error) {
		arrivals, err := s.reservationRepo.ListByEntryDate(ctx, date)
		if err != nil {
			return nil, err
		}
		departures, err := s.reservationRepo.ListByExitDate(ctx, date)
		if err != nil {
			return nil, err
		}

		m := &Movements{
			Date:       utils.FormatDate(date),
			Arrivals:   make([]*MovementItem, 0, len(arrivals)),
			Departures: make([]*MovementItem, 0, len(departures)),
		}
		for _, r := range arrivals {
			if r.Status != models.ReservationStatusCancelled {
				m.Arrivals = append(m.Arrivals, toMovement(r))
			}
		}
		for _, r := range departures {
			m.Departures = append(m.Departures, toMovement(r))
		}
		return m, nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, errors.Prefix("Error building movements report", err)
	}
	return m, nil
}

// Invalidate 清除全部报表缓存
func (s *ReportService) Invalidate(ctx context.Context) (int, error) {
	return s.cache.DeletePrefix(ctx, s.cache.Key(""))
}

// WarmUp 清除缓存并预先计算指定日期的常用报表
func (s *ReportService) WarmUp(ctx context.Context, date time.Time) error {
	if n, err := s.Invalidate(ctx); err != nil {
		logger.Warn("report cache invalidation failed", logger.Err(err))
	} else if n > 0 {
		logger.Debug("report cache invalidated", logger.Int("keys", n))
	}

	if _, err := s.Occupancy(ctx, date); err != nil {
		return err
	}
	if _, err := s.Movements(ctx, date); err != nil {
		return err
	}
	_, err := s.OccupancySeries(ctx, date, date.AddDate(0, 0, 6))
	return err
}

func (s *ReportService) occupancyFor(ctx context.Context, night time.Time, totalRooms int64) (*OccupancyPoint, error) {
	covering, err := s.reservationRepo.ListCovering(ctx, night)
	if err != nil {
		return nil, err
	}

	rooms := make([]string, 0, len(covering))
	for _, r := range covering {
		if r.RoomNumber != nil {
			rooms = append(rooms, *r.RoomNumber)
		}
	}
	occupied := len(utils.Unique(rooms))

	pct := decimal.Zero
	if totalRooms > 0 {
		pct = decimal.NewFromInt(int64(occupied)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(totalRooms)).
			Round(2)
	}
	return &OccupancyPoint{
		Date:          utils.FormatDate(night),
		OccupiedRooms: occupied,
		TotalRooms:    totalRooms,
		Percentage:    pct,
	}, nil
}

// cached 先读缓存，未命中时计算并回写
// 缓存读写失败只记录日志
func cached[T any](ctx context.Context, s *ReportService, parts []string, compute func(context.Context) (T, error)) (T, error) {
	key := s.cache.Key(parts...)

	var value T
	err := s.cache.GetJSON(ctx, key, &value)
	switch {
	case err == nil:
		s.metrics.RecordCacheHit(cacheName)
		return value, nil
	case stderrors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCacheMiss(cacheName)
	default:
		s.metrics.RecordCacheMiss(cacheName)
		logger.Warn("report cache read failed", logger.String("key", key), logger.Err(err))
	}

	value, err = compute(ctx)
	if err != nil {
		return value, errors.ErrDatabaseError.WithError(err)
	}

	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		logger.Warn("report cache write failed", logger.String("key", key), logger.Err(err))
	}
	return value, nil
}

func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = utils.DateOnly(from), utils.DateOnly(to)
	if to.Before(from) {
		return from, to, errors.ErrInvalidParams.WithMessage("to date must not be before from date")
	}
	if len(utils.Nights(from, to)) >= MaxRangeDays {
		return from, to, errors.ErrInvalidParams.WithMessagef("date range cannot exceed %d days", MaxRangeDays)
	}
	return from, to, nil
}

func toMovement(r *models.Reservation) *MovementItem {
	return &MovementItem{
		ReservationID: r.ID,
		GuestName:     r.GuestName(),
		RoomNumber:    utils.SafeString(r.RoomNumber),
		Status:        r.Status,
		EntryDate:     utils.FormatDate(r.EntryDate),
		ExitDate:      utils.FormatDate(r.ExitDate),
	}
}
