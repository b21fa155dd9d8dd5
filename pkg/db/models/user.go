package models

import "time"

// User represents an account holder. Email is the only external identity key.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	IsVerified   bool       `gorm:"column:is_verified;not null;default:false"`
	OTPCode      *string    `gorm:"column:otp_code"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string { return "users" }

// HasPendingOTP reports whether both OTP columns are populated.
func (u User) HasPendingOTP() bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil
}
