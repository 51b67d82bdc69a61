package reservation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// LineService 预订明细服务
// 新增明细时累加预订总价，修改明细时按有效明细重新计算
// 明细修改或删除后，与之不再一致的待结算住宿费用随之作废
type LineService struct {
	db              *gorm.DB
	reservationRepo *repository.ReservationRepository
	lineRepo        *repository.LineRepository
	detailRepo      *repository.InvoiceDetailRepository
	history         *HistoryService
}

// NewLineService 创建预订明细服务
func NewLineService(
	db *gorm.DB,
	reservationRepo *repository.ReservationRepository,
	lineRepo *repository.LineRepository,
	detailRepo *repository.InvoiceDetailRepository,
	history *HistoryService,
) *LineService {
	return &LineService{
		db:              db,
		reservationRepo: reservationRepo,
		lineRepo:        lineRepo,
		detailRepo:      detailRepo,
		history:         history,
	}
}

// LineInput 明细内容
type LineInput struct {
	Date      string          `json:"date" binding:"required"`
	RoomType  string          `json:"room_type" binding:"required"`
	Regimen   string          `json:"regimen" binding:"required"`
	RoomCount int             `json:"room_count"`
	Adults    int             `json:"adults"`
	Children  int             `json:"children"`
	Price     decimal.Decimal `json:"price"`
}

// CreateLineRequest 新增明细请求
type CreateLineRequest struct {
	ReservationID int64 `json:"-"`
	LineInput
}

// ModifyLineRequest 修改明细请求，仅处理提供的字段
type ModifyLineRequest struct {
	Date      *string          `json:"date"`
	RoomType  *string          `json:"room_type"`
	Regimen   *string          `json:"regimen"`
	RoomCount *int             `json:"room_count"`
	Adults    *int             `json:"adults"`
	Children  *int             `json:"children"`
	Price     *decimal.Decimal `json:"price"`
	Active    *bool            `json:"active"`
}

var lineFields = []string{"date", "room_type", "regimen", "room_count", "adults", "children", "price", "active"}

// Create 新增明细
func (s *LineService) Create(ctx context.Context, req *CreateLineRequest, actor string) (*models.ReservationLine, error) {
	var line *models.ReservationLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, req.ReservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}
		line, err = s.createInTx(ctx, tx, reservation, &req.LineInput, actor)
		return err
	})
	if err != nil {
		return nil, errors.Prefix("Error creating reservation line", err)
	}

	logger.Info("reservation line created",
		logger.ReservationID(req.ReservationID),
		logger.Int64("line_id", line.ID),
		logger.Actor(actor),
	)
	return line, nil
}

// createInTx 在事务内新增明细并累加预订总价
func (s *LineService) createInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, in *LineInput, actor string) (*models.ReservationLine, error) {
	date, err := parseDate(errors.ErrLineInvalid, "line date", in.Date)
	if err != nil {
		return nil, err
	}

	line := &models.ReservationLine{
		ReservationID: reservation.ID,
		Date:          date,
		RoomType:      in.RoomType,
		Regimen:       in.Regimen,
		RoomCount:     in.RoomCount,
		Adults:        in.Adults,
		Children:      in.Children,
		Price:         utils.RoundMoney(in.Price),
		Active:        true,
	}
	if line.RoomCount == 0 {
		line.RoomCount = 1
	}
	if err := validateLine(line, reservation); err != nil {
		return nil, err
	}

	if err := s.lineRepo.WithTx(tx).Create(ctx, line); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	reservation.TotalPrice = utils.RoundMoney(reservation.TotalPrice.Add(line.Amount()))
	if err := s.reservationRepo.WithTx(tx).UpdateTotal(ctx, reservation.ID, reservation.TotalPrice); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := s.history.Record(ctx, tx, reservation.ID, actor, models.HistoryActionModified,
		"Line added: "+describeLine(line), nil); err != nil {
		return nil, err
	}
	return line, nil
}

// Modify 修改明细，重新计算预订总价
func (s *LineService) Modify(ctx context.Context, id int64, req *ModifyLineRequest, actor string) (*models.ReservationLine, error) {
	var line *models.ReservationLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		line, err = s.lineRepo.WithTx(tx).GetByID(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrLineNotFound)
		}
		reservation, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, line.ReservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}

		before := lineSnapshot(line)
		if err := applyLineChanges(line, req); err != nil {
			return err
		}
		if err := validateLine(line, reservation); err != nil {
			return err
		}
		if err := s.lineRepo.WithTx(tx).Update(ctx, line); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		voided, err := s.voidStaleLodging(ctx, tx, line, false)
		if err != nil {
			return err
		}

		if err := s.recomputeTotal(ctx, tx, reservation); err != nil {
			return err
		}

		changes := diffFields(suppliedLineFields(req), before, lineSnapshot(line))
		details := "Modification performed with no detectable changes"
		if len(changes) > 0 {
			details = fmt.Sprintf("Line %d modified:\n%s", line.ID, joinLines(describeChanges(changes)))
		}
		if voided > 0 {
			details += voidedNote(voided)
		}
		return s.history.Record(ctx, tx, reservation.ID, actor, models.HistoryActionModified, details, changes)
	})
	if err != nil {
		return nil, errors.Prefix("Error modifying reservation line", err)
	}
	return line, nil
}

// Delete 删除明细，预订总价扣减且不低于零
func (s *LineService) Delete(ctx context.Context, id int64, actor string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.lineRepo.WithTx(tx).GetByID(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrLineNotFound)
		}
		reservation, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, line.ReservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}
		return s.deleteInTx(ctx, tx, reservation, line, actor, "Line removed: "+describeLine(line))
	})
	if err != nil {
		return errors.Prefix("Error deleting reservation line", err)
	}

	logger.Info("reservation line deleted", logger.Int64("line_id", id), logger.Actor(actor))
	return nil
}

// deleteInTx 物理删除明细并扣减总价
// 已失效的明细不在总价内，不再扣减
func (s *LineService) deleteInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, line *models.ReservationLine, actor, details string) error {
	if line.Active {
		total := reservation.TotalPrice.Sub(line.Amount())
		if total.IsNegative() {
			total = decimal.Zero
		}
		reservation.TotalPrice = utils.RoundMoney(total)
		if err := s.reservationRepo.WithTx(tx).UpdateTotal(ctx, reservation.ID, reservation.TotalPrice); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
	}

	voided, err := s.voidStaleLodging(ctx, tx, line, true)
	if err != nil {
		return err
	}
	if voided > 0 {
		details += voidedNote(voided)
	}

	if err := s.lineRepo.WithTx(tx).Delete(ctx, line.ID); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return s.history.Record(ctx, tx, reservation.ID, actor, models.HistoryActionModified, details, nil)
}

// voidStaleLodging 作废明细对应且不再一致的待结算住宿费用
// 已开票的费用不受影响
func (s *LineService) voidStaleLodging(ctx context.Context, tx *gorm.DB, line *models.ReservationLine, removed bool) (int, error) {
	if s.detailRepo == nil {
		return 0, nil
	}
	repo := s.detailRepo.WithTx(tx)
	details, err := repo.ListPendingLodgingByLine(ctx, line.ID)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	voided := 0
	for _, d := range details {
		if !removed && line.Active && d.MatchesLine(line) {
			continue
		}
		d.Void()
		if err := repo.Update(ctx, d); err != nil {
			return 0, errors.ErrDatabaseError.WithError(err)
		}
		voided++
	}
	if voided > 0 {
		logger.Info("stale lodging charges voided",
			logger.ReservationID(line.ReservationID),
			logger.Int64("line_id", line.ID),
			logger.Int("count", voided),
		)
	}
	return voided, nil
}

func voidedNote(n int) string {
	return fmt.Sprintf("\n%d pending lodging charge(s) voided.", n)
}

// ListByReservation 获取预订明细，没有明细时返回错误
func (s *LineService) ListByReservation(ctx context.Context, reservationID int64) ([]*models.ReservationLine, error) {
	lines, err := s.lineRepo.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, errors.Prefix("Error fetching reservation lines", errors.ErrDatabaseError.WithError(err))
	}
	if len(lines) == 0 {
		return nil, errors.Prefix("Error fetching reservation lines",
			errors.ErrNoLinesFound.WithMessagef("no lines found for reservation %d", reservationID))
	}
	return lines, nil
}

// recomputeTotal 按有效明细重新计算总价
func (s *LineService) recomputeTotal(ctx context.Context, tx *gorm.DB, reservation *models.Reservation) error {
	lines, err := s.lineRepo.WithTx(tx).ListActiveByReservation(ctx, reservation.ID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	reservation.TotalPrice = sumActiveLines(lines)
	if err := s.reservationRepo.WithTx(tx).UpdateTotal(ctx, reservation.ID, reservation.TotalPrice); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

func validateLine(line *models.ReservationLine, reservation *models.Reservation) error {
	switch {
	case line.RoomType == "":
		return errors.ErrLineInvalid.WithMessage("room type is required")
	case !models.IsValidRegimen(line.Regimen):
		return errors.ErrLineInvalid.WithMessagef("invalid regimen %q", line.Regimen)
	case line.RoomCount < 1:
		return errors.ErrLineInvalid.WithMessage("room count must be at least 1")
	case line.Adults < 0 || line.Children < 0:
		return errors.ErrLineInvalid.WithMessage("guest counts cannot be negative")
	case line.Price.IsNegative():
		return errors.ErrLineInvalid.WithMessage("price cannot be negative")
	}

	if !utils.InRange(line.Date, reservation.EntryDate, reservation.ExitDate) {
		return errors.ErrLineOutOfRange.WithMessagef("line date %s is outside the stay %s to %s",
			utils.FormatDate(line.Date), utils.FormatDate(reservation.EntryDate), utils.FormatDate(reservation.ExitDate))
	}
	return nil
}

func applyLineChanges(line *models.ReservationLine, req *ModifyLineRequest) error {
	if req.Date != nil {
		date, err := parseDate(errors.ErrLineInvalid, "line date", *req.Date)
		if err != nil {
			return err
		}
		line.Date = date
	}
	if req.RoomType != nil {
		line.RoomType = *req.RoomType
	}
	if req.Regimen != nil {
		line.Regimen = *req.Regimen
	}
	if req.RoomCount != nil {
		line.RoomCount = *req.RoomCount
	}
	if req.Adults != nil {
		line.Adults = *req.Adults
	}
	if req.Children != nil {
		line.Children = *req.Children
	}
	if req.Price != nil {
		line.Price = utils.RoundMoney(*req.Price)
	}
	if req.Active != nil {
		line.Active = *req.Active
	}
	return nil
}

func lineSnapshot(l *models.ReservationLine) map[string]string {
	return map[string]string{
		"date":       utils.FormatDate(l.Date),
		"room_type":  l.RoomType,
		"regimen":    l.Regimen,
		"room_count": strconv.Itoa(l.RoomCount),
		"adults":     strconv.Itoa(l.Adults),
		"children":   strconv.Itoa(l.Children),
		"price":      moneyString(l.Price),
		"active":     strconv.FormatBool(l.Active),
	}
}

func suppliedLineFields(req *ModifyLineRequest) []string {
	supplied := map[string]bool{
		"date":       req.Date != nil,
		"room_type":  req.RoomType != nil,
		"regimen":    req.Regimen != nil,
		"room_count": req.RoomCount != nil,
		"adults":     req.Adults != nil,
		"children":   req.Children != nil,
		"price":      req.Price != nil,
		"active":     req.Active != nil,
	}
	fields := make([]string, 0, len(lineFields))
	for _, f := range lineFields {
		if supplied[f] {
			fields = append(fields, f)
		}
	}
	return fields
}
