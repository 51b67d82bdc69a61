package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationEvent 预订事件载荷
type ReservationEvent struct {
	ReservationID int64           `json:"reservation_id"`
	GuestName     string          `json:"guest_name"`
	RoomNumber    string          `json:"room_number,omitempty"`
	EntryDate     string          `json:"entry_date"`
	ExitDate      string          `json:"exit_date"`
	Status        string          `json:"status"`
	PreviousState string          `json:"previous_status,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Actor         string          `json:"actor"`
}

// InvoiceEvent 发票事件载荷
type InvoiceEvent struct {
	InvoiceID     int64           `json:"invoice_id"`
	ReservationID int64           `json:"reservation_id"`
	GuestName     string          `json:"guest_name"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	DetailIDs     []int64         `json:"detail_ids"`
	IssuedAt      time.Time       `json:"issued_at"`
}
