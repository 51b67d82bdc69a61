// Package registry 提供房间、客户与公司的登记维护
package registry

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// RoomService 房间登记服务
type RoomService struct {
	roomRepo *repository.RoomRepository
}

// NewRoomService 创建房间登记服务
func NewRoomService(roomRepo *repository.RoomRepository) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	Number        string          `json:"number" binding:"required"`
	Type          string          `json:"type" binding:"required"`
	MinCapacity   int             `json:"min_capacity"`
	MaxCapacity   int             `json:"max_capacity"`
	OfficialPrice decimal.Decimal `json:"official_price"`
	Notes         *string         `json:"notes"`
}

// UpdateRoomRequest 更新房间请求，房号不可修改
type UpdateRoomRequest struct {
	Type          *string          `json:"type"`
	MinCapacity   *int             `json:"min_capacity"`
	MaxCapacity   *int             `json:"max_capacity"`
	OfficialPrice *decimal.Decimal `json:"official_price"`
	Notes         *string          `json:"notes"`
}

// ListRoomsRequest 房间列表请求
type ListRoomsRequest struct {
	utils.Pagination
	Type string `form:"type" json:"type"`
}

// CreateRoom 创建房间
func (s *RoomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*models.Room, error) {
	const op = "Error creating room"

	room := &models.Room{
		Number:        strings.TrimSpace(req.Number),
		Type:          strings.TrimSpace(req.Type),
		MinCapacity:   req.MinCapacity,
		MaxCapacity:   req.MaxCapacity,
		OfficialPrice: utils.RoundMoney(req.OfficialPrice),
		Notes:         req.Notes,
	}
	if room.MinCapacity == 0 {
		room.MinCapacity = 1
	}
	if room.MaxCapacity == 0 {
		room.MaxCapacity = room.MinCapacity
	}
	if err := validateRoom(room); err != nil {
		return nil, errors.Prefix(op, err)
	}

	_, err := s.roomRepo.GetByNumber(ctx, room.Number)
	switch {
	case err == nil:
		return nil, errors.Prefix(op, errors.ErrRoomExists.WithMessagef("room %s already exists", room.Number))
	case !stderrors.Is(err, gorm.ErrRecordNotFound):
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}

	logger.Info("room created", logger.RoomNumber(room.Number), logger.String("type", room.Type))
	return room, nil
}

// GetRoom 获取房间
func (s *RoomService) GetRoom(ctx context.Context, number string) (*models.Room, error) {
	room, err := s.roomRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Prefix("Error fetching room", dbError(err, errors.ErrRoomNotFound))
	}
	return room, nil
}

// UpdateRoom 更新房间属性
func (s *RoomService) UpdateRoom(ctx context.Context, number string, req *UpdateRoomRequest) (*models.Room, error) {
	const op = "Error updating room"

	room, err := s.roomRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Prefix(op, dbError(err, errors.ErrRoomNotFound))
	}

	if req.Type != nil {
		room.Type = strings.TrimSpace(*req.Type)
	}
	if req.MinCapacity != nil {
		room.MinCapacity = *req.MinCapacity
	}
	if req.MaxCapacity != nil {
		room.MaxCapacity = *req.MaxCapacity
	}
	if req.OfficialPrice != nil {
		room.OfficialPrice = utils.RoundMoney(*req.OfficialPrice)
	}
	if req.Notes != nil {
		room.Notes = req.Notes
	}
	if err := validateRoom(room); err != nil {
		return nil, errors.Prefix(op, err)
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return room, nil
}

// DeleteRoom 删除房间，存在预订引用时拒绝
func (s *RoomService) DeleteRoom(ctx context.Context, number string) error {
	const op = "Error deleting room"

	if _, err := s.roomRepo.GetByNumber(ctx, number); err != nil {
		return errors.Prefix(op, dbError(err, errors.ErrRoomNotFound))
	}

	refs, err := s.roomRepo.CountReservations(ctx, number)
	if err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	if refs > 0 {
		return errors.Prefix(op, errors.ErrRoomInUse.WithMessagef("room %s is referenced by %d reservation(s)", number, refs))
	}

	if err := s.roomRepo.Delete(ctx, number); err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}

	logger.Info("room deleted", logger.RoomNumber(number))
	return nil
}

// ListRooms 房间列表
func (s *RoomService) ListRooms(ctx context.Context, req *ListRoomsRequest) ([]*models.Room, int64, error) {
	req.Normalize()
	rooms, total, err := s.roomRepo.List(ctx, req.GetOffset(), req.GetLimit(), req.Type)
	if err != nil {
		return nil, 0, errors.Prefix("Error listing rooms", errors.ErrDatabaseError.WithError(err))
	}
	return rooms, total, nil
}

func validateRoom(room *models.Room) error {
	switch {
	case room.Number == "":
		return errors.ErrRoomInvalid.WithMessage("room number is required")
	case room.Type == "":
		return errors.ErrRoomInvalid.WithMessage("room type is required")
	case room.MinCapacity < 1:
		return errors.ErrRoomInvalid.WithMessage("minimum capacity must be at least 1")
	case room.MaxCapacity < room.MinCapacity:
		return errors.ErrRoomInvalid.WithMessage("maximum capacity cannot be below minimum capacity")
	case room.OfficialPrice.IsNegative():
		return errors.ErrRoomInvalid.WithMessage("official price cannot be negative")
	}
	return nil
}

func dbError(err error, notFound *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.ErrDatabaseError.WithError(err)
}
