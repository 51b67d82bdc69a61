// Package models 定义数据模型
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room 房间
// 房号即主键，创建后不可修改
type Room struct {
	Number        string          `gorm:"primaryKey;type:varchar(20)" json:"number"`
	Type          string          `gorm:"type:varchar(50);not null" json:"type"`
	MinCapacity   int             `gorm:"not null;default:1" json:"min_capacity"`
	MaxCapacity   int             `gorm:"not null;default:2" json:"max_capacity"`
	OfficialPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"official_price"`
	Notes         *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}
