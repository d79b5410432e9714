package models

import "time"

// PermanentBan is the block-list entry. Independent of any temp ban
// for the same user; only an explicit unban removes it.
type PermanentBan struct {
	UserID   int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FullName string    `json:"full_name"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at" gorm:"not null"`
	IssuedBy string    `json:"issued_by"`
}

// TempBan is a time-bounded restriction. At most one row per user; the
// sweeper deletes it once ExpiresAt has passed.
type TempBan struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	IssuedBy  int64     `json:"issued_by" gorm:"not null"`
	IssuedAt  time.Time `json:"issued_at" gorm:"not null"`
}

func (PermanentBan) TableName() string {
	return "permanent_bans"
}

func (TempBan) TableName() string {
	return "temp_bans"
}
