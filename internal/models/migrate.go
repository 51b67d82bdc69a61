package models

// All 返回需要自动迁移的全部模型，按依赖顺序排列
func All() []interface{} {
	return []interface{}{
		&User{},
		&Room{},
		&Client{},
		&Company{},
		&Reservation{},
		&ReservationLine{},
		&HistoryEntry{},
		&Invoice{},
		&InvoiceDetail{},
	}
}
