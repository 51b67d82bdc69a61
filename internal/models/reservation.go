package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
)

// Reservation 预订
// 不做物理删除，取消通过状态变更完成
type Reservation struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	GuestFirstName string          `gorm:"type:varchar(100);not null" json:"guest_first_name"`
	GuestLastName  string          `gorm:"type:varchar(100);not null;index" json:"guest_last_name"`
	ClientID       *int64          `gorm:"index" json:"client_id,omitempty"`
	CompanyID      *int64          `gorm:"index" json:"company_id,omitempty"`
	EntryDate      time.Time       `gorm:"type:date;not null;index" json:"entry_date"`
	ExitDate       time.Time       `gorm:"type:date;not null;index" json:"exit_date"`
	RoomNumber     *string         `gorm:"type:varchar(20);index" json:"room_number,omitempty"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_price"`
	Notes          *string         `gorm:"type:text" json:"notes,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'confirmed';index" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Client  *Client           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Company *Company          `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Lines   []ReservationLine `gorm:"foreignKey:ReservationID" json:"lines,omitempty"`
}

// TableName 表名
func (Reservation) TableName() string {
	return "reservations"
}

// GuestName 客人全名
func (r *Reservation) GuestName() string {
	return r.GuestFirstName + " " + r.GuestLastName
}

// ReservationStatus 预订状态
const (
	ReservationStatusConfirmed  = "confirmed"
	ReservationStatusCancelled  = "cancelled"
	ReservationStatusCheckedIn  = "checked_in"
	ReservationStatusCheckedOut = "checked_out"
)

// IsValidReservationStatus 校验预订状态
func IsValidReservationStatus(status string) bool {
	switch status {
	case ReservationStatusConfirmed, ReservationStatusCancelled,
		ReservationStatusCheckedIn, ReservationStatusCheckedOut:
		return true
	}
	return false
}

// ReservationLine 预订明细（每晚每房型一行）
type ReservationLine struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID int64           `gorm:"index;not null" json:"reservation_id"`
	Date          time.Time       `gorm:"type:date;not null;index" json:"date"`
	RoomType      string          `gorm:"type:varchar(50);not null" json:"room_type"`
	Regimen       string          `gorm:"type:varchar(20);not null" json:"regimen"`
	RoomCount     int             `gorm:"not null;default:1" json:"room_count"`
	Adults        int             `gorm:"not null;default:1" json:"adults"`
	Children      int             `gorm:"not null;default:0" json:"children"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Active        bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (ReservationLine) TableName() string {
	return "reservation_lines"
}

// Amount 单价 × 房间数
func (l *ReservationLine) Amount() decimal.Decimal {
	return utils.LineAmount(l.RoomCount, l.Price)
}

// Regimen 膳食方案
const (
	RegimenRoomOnly     = "room_only"
	RegimenBedBreakfast = "bed_breakfast"
	RegimenHalfBoard    = "half_board"
	RegimenFullBoard    = "full_board"
	RegimenAllInclusive = "all_inclusive"
)

// IsValidRegimen 校验膳食方案
func IsValidRegimen(regimen string) bool {
	switch regimen {
	case RegimenRoomOnly, RegimenBedBreakfast, RegimenHalfBoard, RegimenFullBoard, RegimenAllInclusive:
		return true
	}
	return false
}

// HistoryEntry 预订历史，只追加
// Actor 保存用户名快照而非用户外键
type HistoryEntry struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID int64          `gorm:"index;not null" json:"reservation_id"`
	Actor         string         `gorm:"type:varchar(100);not null" json:"actor"`
	Action        string         `gorm:"type:varchar(20);not null" json:"action"`
	Details       string         `gorm:"type:text" json:"details"`
	Changes       datatypes.JSON `json:"changes,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (HistoryEntry) TableName() string {
	return "reservation_history"
}

// HistoryAction 历史动作
const (
	HistoryActionConfirmed  = "Confirmed"
	HistoryActionCancelled  = "Cancelled"
	HistoryActionModified   = "Modified"
	HistoryActionCheckedIn  = "CheckedIn"
	HistoryActionCheckedOut = "CheckedOut"
)

// HistoryActionForStatus 状态对应的历史动作
func HistoryActionForStatus(status string) string {
	switch status {
	case ReservationStatusConfirmed:
		return HistoryActionConfirmed
	case ReservationStatusCancelled:
		return HistoryActionCancelled
	case ReservationStatusCheckedIn:
		return HistoryActionCheckedIn
	case ReservationStatusCheckedOut:
		return HistoryActionCheckedOut
	}
	return HistoryActionModified
}

// FieldChange 字段变更记录
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}
