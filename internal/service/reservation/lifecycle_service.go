package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
)

// ReservationService 预订生命周期服务
// 所有多步写操作在同一事务内完成，涉及房间时锁定房间行
type ReservationService struct {
	db              *gorm.DB
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	lineRepo        *repository.LineRepository
	detailRepo      *repository.InvoiceDetailRepository
	clientRepo      *repository.ClientRepository
	companyRepo     *repository.CompanyRepository
	lines           *LineService
	history         *HistoryService
	publisher       events.Publisher
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewReservationService 创建预订生命周期服务
func NewReservationService(
	db *gorm.DB,
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	lineRepo *repository.LineRepository,
	detailRepo *repository.InvoiceDetailRepository,
	clientRepo *repository.ClientRepository,
	companyRepo *repository.CompanyRepository,
	lines *LineService,
	history *HistoryService,
	publisher events.Publisher,
	m *metrics.Metrics,
) *ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ReservationService{
		db:              db,
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		lineRepo:        lineRepo,
		detailRepo:      detailRepo,
		clientRepo:      clientRepo,
		companyRepo:     companyRepo,
		lines:           lines,
		history:         history,
		publisher:       publisher,
		metrics:         m,
		now:             time.Now,
	}
}

// CreateReservationRequest 创建预订请求
type CreateReservationRequest struct {
	GuestFirstName string      `json:"guest_first_name" binding:"required"`
	GuestLastName  string      `json:"guest_last_name" binding:"required"`
	ClientID       *int64      `json:"client_id"`
	CompanyID      *int64      `json:"company_id"`
	EntryDate      string      `json:"entry_date" binding:"required"`
	ExitDate       string      `json:"exit_date" binding:"required"`
	RoomNumber     *string     `json:"room_number"`
	Notes          *string     `json:"notes"`
	Lines          []LineInput `json:"lines"`
}

// ModifyReservationRequest 修改预订请求，仅处理提供的字段
// 空字符串的房号表示取消排房
type ModifyReservationRequest struct {
	GuestFirstName *string `json:"guest_first_name"`
	GuestLastName  *string `json:"guest_last_name"`
	ClientID       *int64  `json:"client_id"`
	CompanyID      *int64  `json:"company_id"`
	EntryDate      *string `json:"entry_date"`
	ExitDate       *string `json:"exit_date"`
	RoomNumber     *string `json:"room_number"`
	Notes          *string `json:"notes"`
	Status         *string `json:"status"`
}

// ChangeStatusRequest 变更状态请求
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

var reservationFields = []string{
	"guest_first_name", "guest_last_name", "client_id", "company_id",
	"entry_date", "exit_date", "room_number", "notes",
}

// Create 创建预订
func (s *ReservationService) Create(ctx context.Context, req *CreateReservationRequest, actor string) (*models.Reservation, error) {
	const op = "Error creating reservation"

	if len(req.Lines) == 0 {
		return nil, errors.Prefix(op, errors.ErrReservationInvalid.WithMessage("at least one line is required"))
	}
	entry, exit, err := s.parseStay(req.EntryDate, req.ExitDate)
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	if entry.Before(utils.DateOnly(s.now())) {
		return nil, errors.Prefix(op, errors.ErrReservationInvalid.WithMessagef("entry date %s is in the past", utils.FormatDate(entry)))
	}
	if err := s.checkParties(ctx, req.ClientID, req.CompanyID); err != nil {
		return nil, errors.Prefix(op, err)
	}

	room := normalizeRoom(req.RoomNumber)
	reservation := &models.Reservation{
		GuestFirstName: strings.TrimSpace(req.GuestFirstName),
		GuestLastName:  strings.TrimSpace(req.GuestLastName),
		ClientID:       req.ClientID,
		CompanyID:      req.CompanyID,
		EntryDate:      entry,
		ExitDate:       exit,
		RoomNumber:     room,
		TotalPrice:     decimal.Zero,
		Notes:          req.Notes,
		Status:         models.ReservationStatusConfirmed,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if room != nil {
			if err := s.checkAvailability(ctx, tx, *room, entry, exit, 0); err != nil {
				return err
			}
		}

		if err := s.reservationRepo.WithTx(tx).Create(ctx, reservation); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		if err := s.history.Record(ctx, tx, reservation.ID, actor, models.HistoryActionConfirmed,
			fmt.Sprintf("Reservation created with %d line(s).", len(req.Lines)), nil); err != nil {
			return err
		}

		for i := range req.Lines {
			if _, err := s.lines.createInTx(ctx, tx, reservation, &req.Lines[i], actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Prefix(op, err)
	}

	created, err := s.reservationRepo.GetByIDWithDetails(ctx, reservation.ID)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}

	s.metrics.RecordReservationTransition(models.ReservationStatusConfirmed)
	s.publish(ctx, events.ReservationCreated, created, "", actor)
	logger.Info("reservation created",
		logger.ReservationID(created.ID),
		logger.Actor(actor),
		logger.String("total", moneyString(created.TotalPrice)),
	)
	return created, nil
}

// CheckAvailability 检查房间在 [entry, exit) 内是否可用
func (s *ReservationService) CheckAvailability(ctx context.Context, roomNumber string, entry, exit time.Time, excludeID int64) error {
	entry, exit = utils.DateOnly(entry), utils.DateOnly(exit)
	if !exit.After(entry) {
		return errors.Prefix("Error checking availability",
			errors.ErrReservationInvalid.WithMessage("exit date must be after entry date"))
	}
	return errors.Prefix("Error checking availability", s.checkAvailability(ctx, s.db.WithContext(ctx), roomNumber, entry, exit, excludeID))
}

// checkAvailability 锁定房间行后检查日期重叠
func (s *ReservationService) checkAvailability(ctx context.Context, tx *gorm.DB, roomNumber string, entry, exit time.Time, excludeID int64) error {
	tracing.SetAttributes(ctx, tracing.WithRoomNumber(roomNumber))
	if _, err := s.roomRepo.WithTx(tx).GetForUpdate(ctx, roomNumber); err != nil {
		return dbError(err, errors.ErrRoomNotFound.WithMessagef("room %s not found", roomNumber))
	}

	conflicts, err := s.reservationRepo.WithTx(tx).FindOverlapping(ctx, roomNumber, entry, exit, excludeID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if len(conflicts) > 0 {
		return errors.ErrRoomNotAvailable.WithMessagef("room %s is already booked between %s and %s",
			roomNumber, utils.FormatDate(entry), utils.FormatDate(exit))
	}
	return nil
}

// Modify 修改预订
// 日期收缩时删除超出范围的明细，每条单独记录历史
func (s *ReservationService) Modify(ctx context.Context, id int64, req *ModifyReservationRequest, actor string) (*models.Reservation, error) {
	const op = "Error modifying reservation"
	tracing.SetAttributes(ctx, tracing.WithReservationID(id), tracing.WithOperation("modify"))

	if req.Status != nil {
		return nil, errors.Prefix(op, errors.ErrStatusFieldForbidden.WithMessage("use the status endpoint to change the reservation status"))
	}
	if err := s.checkParties(ctx, req.ClientID, req.CompanyID); err != nil {
		return nil, errors.Prefix(op, err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}
		before := reservationSnapshot(reservation)

		entry, exit := reservation.EntryDate, reservation.ExitDate
		if req.EntryDate != nil {
			if entry, err = parseDate(errors.ErrReservationInvalid, "entry date", *req.EntryDate); err != nil {
				return err
			}
		}
		if req.ExitDate != nil {
			if exit, err = parseDate(errors.ErrReservationInvalid, "exit date", *req.ExitDate); err != nil {
				return err
			}
		}
		if !exit.After(entry) {
			return errors.ErrReservationInvalid.WithMessage("exit date must be after entry date")
		}

		lines, err := s.lineRepo.WithTx(tx).ListActiveByReservation(ctx, id)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		removed := 0
		for _, line := range lines {
			if utils.InRange(line.Date, entry, exit) {
				continue
			}
			details := fmt.Sprintf("Modified — line deactivated (out of range): %s (%s)", line.RoomType, utils.FormatDate(line.Date))
			if err := s.lines.deleteInTx(ctx, tx, reservation, line, actor, details); err != nil {
				return err
			}
			removed++
		}

		room := reservation.RoomNumber
		if req.RoomNumber != nil {
			room = normalizeRoom(req.RoomNumber)
		}
		datesChanged := !entry.Equal(reservation.EntryDate) || !exit.Equal(reservation.ExitDate)
		if room != nil && (req.RoomNumber != nil || datesChanged) && reservation.Status != models.ReservationStatusCancelled {
			if err := s.checkAvailability(ctx, tx, *room, entry, exit, id); err != nil {
				return err
			}
		}

		applyReservationChanges(reservation, req)
		reservation.EntryDate, reservation.ExitDate, reservation.RoomNumber = entry, exit, room
		if err := s.reservationRepo.WithTx(tx).Update(ctx, reservation); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := s.lines.recomputeTotal(ctx, tx, reservation); err != nil {
			return err
		}

		changes := diffFields(suppliedReservationFields(req), before, reservationSnapshot(reservation))
		parts := describeChanges(changes)
		if removed > 0 {
			parts = append(parts, fmt.Sprintf("%d line(s) deactivated for falling outside the new date range.", removed))
		}
		details := "Modification performed with no significant changes"
		if len(parts) > 0 {
			details = joinLines(parts)
		}
		return s.history.Record(ctx, tx, id, actor, models.HistoryActionModified, details, changes)
	})
	if err != nil {
		return nil, errors.Prefix(op, err)
	}

	logger.Info("reservation modified", logger.ReservationID(id), logger.Actor(actor))
	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ReservationModified, updated, "", actor)
	return updated, nil
}

// ChangeStatus 变更预订状态
func (s *ReservationService) ChangeStatus(ctx context.Context, id int64, status, actor string) (*models.Reservation, error) {
	const op = "Error changing reservation status"
	tracing.SetAttributes(ctx, tracing.WithReservationID(id), tracing.WithOperation("change_status"))

	if !models.IsValidReservationStatus(status) {
		return nil, errors.Prefix(op, errors.ErrInvalidStatus.WithMessagef("invalid status %q", status))
	}

	var previous string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}
		previous = reservation.Status

		if !CanTransition(reservation.Status, status) {
			return errors.ErrInvalidTransition.WithMessagef("cannot change status from %s to %s", reservation.Status, status)
		}

		switch status {
		case models.ReservationStatusCheckedIn:
			if reservation.RoomNumber == nil {
				return errors.ErrRoomRequired.WithMessage("a room must be assigned before check-in")
			}
			if err := s.checkAvailability(ctx, tx, *reservation.RoomNumber, reservation.EntryDate, reservation.ExitDate, id); err != nil {
				return err
			}
		case models.ReservationStatusConfirmed:
			if reservation.Status == models.ReservationStatusCancelled && reservation.RoomNumber != nil {
				if err := s.checkAvailability(ctx, tx, *reservation.RoomNumber, reservation.EntryDate, reservation.ExitDate, id); err != nil {
					return err
				}
			}
		case models.ReservationStatusCheckedOut:
			pending, err := s.hasUnbilledLines(ctx, tx, id)
			if err != nil {
				return err
			}
			if pending {
				return errors.ErrUnbilledLines.WithMessage("advance the lodging charges before checking out")
			}
		}

		if err := s.reservationRepo.WithTx(tx).UpdateStatus(ctx, id, status); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return s.history.Record(ctx, tx, id, actor, models.HistoryActionForStatus(status),
			fmt.Sprintf("Reservation changed to status \"%s\".", status), nil)
	})
	if err != nil {
		return nil, errors.Prefix(op, err)
	}

	reservation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReservationTransition(status)
	s.publish(ctx, events.ReservationStatusChanged, reservation, previous, actor)
	logger.Info("reservation status changed",
		logger.ReservationID(id),
		logger.String("from", previous),
		logger.String("to", status),
		logger.Actor(actor),
	)
	return reservation, nil
}

// HasUnbilledLines 是否存在尚未生成住宿费用的有效明细
func (s *ReservationService) HasUnbilledLines(ctx context.Context, id int64) (bool, error) {
	const op = "Error checking unbilled lines"

	if _, err := s.reservationRepo.GetByID(ctx, id); err != nil {
		return false, errors.Prefix(op, dbError(err, errors.ErrReservationNotFound))
	}
	pending, err := s.hasUnbilledLines(ctx, s.db.WithContext(ctx), id)
	if err != nil {
		return false, errors.Prefix(op, err)
	}
	return pending, nil
}

func (s *ReservationService) hasUnbilledLines(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	lines, err := s.lineRepo.WithTx(tx).ListActiveByReservation(ctx, id)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	details, err := s.detailRepo.WithTx(tx).ListActiveLodgingByReservation(ctx, id)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}

	for _, line := range lines {
		matched := false
		for _, d := range details {
			if d.MatchesLine(line) {
				matched = true
				break
			}
		}
		if !matched {
			return true, nil
		}
	}
	return false, nil
}

// GetByID 获取预订（含客户、公司与明细）
func (s *ReservationService) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, errors.Prefix("Error fetching reservation", dbError(err, errors.ErrReservationNotFound))
	}
	return reservation, nil
}

// ListByEntryDate 按入住日期查询
func (s *ReservationService) ListByEntryDate(ctx context.Context, date time.Time) ([]*models.Reservation, error) {
	list, err := s.reservationRepo.ListByEntryDate(ctx, utils.DateOnly(date))
	if err != nil {
		return nil, errors.Prefix("Error fetching reservations by entry date", errors.ErrDatabaseError.WithError(err))
	}
	return list, nil
}

// ListBySurname 按客人姓氏前缀查询
func (s *ReservationService) ListBySurname(ctx context.Context, prefix string) ([]*models.Reservation, error) {
	const op = "Error fetching reservations by surname"

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.Prefix(op, errors.ErrInvalidParams.WithMessage("surname is required"))
	}
	list, err := s.reservationRepo.ListBySurnamePrefix(ctx, prefix)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return list, nil
}

// ListByCompany 按公司名称查询
func (s *ReservationService) ListByCompany(ctx context.Context, name string) ([]*models.Reservation, error) {
	const op = "Error fetching reservations by company"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Prefix(op, errors.ErrInvalidParams.WithMessage("company name is required"))
	}
	list, err := s.reservationRepo.ListByCompanyName(ctx, name)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return list, nil
}

// GetActiveByRoom 获取房间当前在住的预订
func (s *ReservationService) GetActiveByRoom(ctx context.Context, roomNumber string) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetActiveByRoom(ctx, roomNumber)
	if err != nil {
		return nil, errors.Prefix("Error fetching active reservation",
			dbError(err, errors.ErrReservationNotFound.WithMessagef("no checked-in reservation for room %s", roomNumber)))
	}
	return reservation, nil
}

// ListAssignedBetween 查询区间内已排房的有效预订
func (s *ReservationService) ListAssignedBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	const op = "Error fetching assigned reservations"

	from, to = utils.DateOnly(from), utils.DateOnly(to)
	if to.Before(from) {
		return nil, errors.Prefix(op, errors.ErrInvalidParams.WithMessage("to date must not be before from date"))
	}
	if to.Equal(from) {
		to = to.AddDate(0, 0, 1)
	}
	list, err := s.reservationRepo.ListAssignedBetween(ctx, from, to)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return list, nil
}

func (s *ReservationService) parseStay(entryStr, exitStr string) (time.Time, time.Time, error) {
	entry, err := parseDate(errors.ErrReservationInvalid, "entry date", entryStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	exit, err := parseDate(errors.ErrReservationInvalid, "exit date", exitStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !exit.After(entry) {
		return time.Time{}, time.Time{}, errors.ErrReservationInvalid.WithMessage("exit date must be after entry date")
	}
	return entry, exit, nil
}

func (s *ReservationService) checkParties(ctx context.Context, clientID, companyID *int64) error {
	if clientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *clientID); err != nil {
			return dbError(err, errors.ErrClientNotFound.WithMessagef("client %d not found", *clientID))
		}
	}
	if companyID != nil {
		if _, err := s.companyRepo.GetByID(ctx, *companyID); err != nil {
			return dbError(err, errors.ErrCompanyNotFound.WithMessagef("company %d not found", *companyID))
		}
	}
	return nil
}

func (s *ReservationService) publish(ctx context.Context, routingKey string, r *models.Reservation, previous, actor string) {
	evt := &events.ReservationEvent{
		ReservationID: r.ID,
		GuestName:     r.GuestName(),
		RoomNumber:    utils.SafeString(r.RoomNumber),
		EntryDate:     utils.FormatDate(r.EntryDate),
		ExitDate:      utils.FormatDate(r.ExitDate),
		Status:        r.Status,
		PreviousState: previous,
		Total:         r.TotalPrice,
		Actor:         actor,
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		logger.Warn("failed to publish reservation event", logger.ReservationID(r.ID), logger.Err(err))
	}
}

func normalizeRoom(room *string) *string {
	if room == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*room)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func applyReservationChanges(r *models.Reservation, req *ModifyReservationRequest) {
	if req.GuestFirstName != nil {
		r.GuestFirstName = strings.TrimSpace(*req.GuestFirstName)
	}
	if req.GuestLastName != nil {
		r.GuestLastName = strings.TrimSpace(*req.GuestLastName)
	}
	if req.ClientID != nil {
		r.ClientID = req.ClientID
	}
	if req.CompanyID != nil {
		r.CompanyID = req.CompanyID
	}
	if req.Notes != nil {
		r.Notes = req.Notes
	}
}

func reservationSnapshot(r *models.Reservation) map[string]string {
	return map[string]string{
		"guest_first_name": r.GuestFirstName,
		"guest_last_name":  r.GuestLastName,
		"client_id":        int64String(r.ClientID),
		"company_id":       int64String(r.CompanyID),
		"entry_date":       utils.FormatDate(r.EntryDate),
		"exit_date":        utils.FormatDate(r.ExitDate),
		"room_number":      utils.SafeString(r.RoomNumber),
		"notes":            utils.SafeString(r.Notes),
	}
}

func suppliedReservationFields(req *ModifyReservationRequest) []string {
	supplied := map[string]bool{
		"guest_first_name": req.GuestFirstName != nil,
		"guest_last_name":  req.GuestLastName != nil,
		"client_id":        req.ClientID != nil,
		"company_id":       req.CompanyID != nil,
		"entry_date":       req.EntryDate != nil,
		"exit_date":        req.ExitDate != nil,
		"room_number":      req.RoomNumber != nil,
		"notes":            req.Notes != nil,
	}
	fields := make([]string, 0, len(reservationFields))
	for _, f := range reservationFields {
		if supplied[f] {
			fields = append(fields, f)
		}
	}
	return fields
}
