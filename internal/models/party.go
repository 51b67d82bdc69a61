package models

import "time"

// Client 客户
type Client struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName   string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName    string    `gorm:"type:varchar(100);not null;index" json:"last_name"`
	DocumentID  *string   `gorm:"type:varchar(50);uniqueIndex" json:"document_id,omitempty"`
	Email       *string   `gorm:"type:varchar(150)" json:"email,omitempty"`
	Phone       *string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Nationality *string   `gorm:"type:varchar(50)" json:"nationality,omitempty"`
	Notes       *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Client) TableName() string {
	return "clients"
}

// FullName 姓名
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Company 公司
type Company struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null;index" json:"name"`
	TaxID     *string   `gorm:"type:varchar(50);uniqueIndex" json:"tax_id,omitempty"`
	Address   *string   `gorm:"type:varchar(255)" json:"address,omitempty"`
	Email     *string   `gorm:"type:varchar(150)" json:"email,omitempty"`
	Phone     *string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Company) TableName() string {
	return "companies"
}
