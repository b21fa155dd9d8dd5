package models

import "time"

// Contact is an address-book entry owned by exactly one user. Rows are soft
// deleted through IsDeleted and never physically removed.
type Contact struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_contacts_user_live,priority:1"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Address   string    `gorm:"column:address;not null"`
	Timezone  string    `gorm:"column:timezone;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false;index:idx_contacts_user_live,priority:2"`
}

func (Contact) TableName() string { return "contacts" }
