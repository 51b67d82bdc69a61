package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
)

// InvoiceDetail 账单明细（费用项）
// InvoiceID 为空表示待结算；作废时单价与金额取负并标记为无效
type InvoiceDetail struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID     int64           `gorm:"index;not null" json:"reservation_id"`
	InvoiceID         *int64          `gorm:"index" json:"invoice_id,omitempty"`
	RoomNumber        *string         `gorm:"type:varchar(20)" json:"room_number,omitempty"`
	ClientID          *int64          `json:"client_id,omitempty"`
	Kind              string          `gorm:"type:varchar(20);not null;default:'extra'" json:"kind"`
	ReservationLineID *int64          `gorm:"index" json:"reservation_line_id,omitempty"`
	ServiceDate       *time.Time      `gorm:"type:date" json:"service_date,omitempty"`
	Concept           string          `gorm:"type:varchar(255);not null" json:"concept"`
	Quantity          int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Total             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Active            bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (InvoiceDetail) TableName() string {
	return "invoice_details"
}

// MatchesLine 住宿明细是否对应该预订明细
// 按来源明细、服务日期、数量与单价匹配
func (d *InvoiceDetail) MatchesLine(l *ReservationLine) bool {
	if !d.Active || d.Kind != DetailKindLodging {
		return false
	}
	if d.ReservationLineID == nil || *d.ReservationLineID != l.ID {
		return false
	}
	if d.ServiceDate == nil || !utils.DateOnly(*d.ServiceDate).Equal(utils.DateOnly(l.Date)) {
		return false
	}
	return d.Quantity == l.RoomCount && d.UnitPrice.Equal(l.Price)
}

// Void 作废明细，单价与金额取 -|x|，标记无效并追加作废标记
func (d *InvoiceDetail) Void() {
	d.UnitPrice = utils.NegativeAbs(d.UnitPrice)
	d.Total = utils.NegativeAbs(d.Total)
	d.Active = false
	if !strings.HasSuffix(d.Concept, VoidSuffix) {
		d.Concept += VoidSuffix
	}
}

// LodgingConcept 住宿明细描述
func LodgingConcept(l *ReservationLine) string {
	return "Lodging - " + l.RoomType + " (" + l.Regimen + ")"
}

// InvoiceDetailKind 明细类型
const (
	DetailKindLodging = "lodging"
	DetailKindExtra   = "extra"
)

// VoidSuffix 作废标记
const VoidSuffix = " (VOID)"

// Invoice 发票
// 创建即视为已收款
type Invoice struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	GuestName     string          `gorm:"type:varchar(200);not null" json:"guest_name"`
	ClientID      *int64          `gorm:"index" json:"client_id,omitempty"`
	CompanyID     *int64          `gorm:"index" json:"company_id,omitempty"`
	ReservationID int64           `gorm:"index;not null" json:"reservation_id"`
	IssuedBy      int64           `gorm:"not null" json:"issued_by"`
	IssuedAt      time.Time       `gorm:"not null;index" json:"issued_at"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        string          `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Client  *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Company *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Details []InvoiceDetail `gorm:"foreignKey:InvoiceID" json:"details,omitempty"`
}

// TableName 表名
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceStatus 发票状态
const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// PaymentMethod 支付方式
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodOther    = "other"
)

// IsValidPaymentMethod 校验支付方式
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodOther:
		return true
	}
	return false
}
