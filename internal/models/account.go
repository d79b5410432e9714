package models

import "time"

// Account holds a user's point balance. Rows appear on first balance
// access and are never deleted. Balance never goes below zero.
type Account struct {
	UserID  int64 `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Balance int64 `json:"balance" gorm:"not null;default:0"`
}

// TransferRecord is an append-only audit fact written once per
// successful transfer. Never updated.
type TransferRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	FromID    int64     `json:"from_id" gorm:"index;not null"`
	ToID      int64     `json:"to_id" gorm:"index;not null"`
	Amount    int64     `json:"amount" gorm:"not null"`
	FromName  string    `json:"from_name"`
	ToName    string    `json:"to_name"`
}

func (Account) TableName() string {
	return "accounts"
}

func (TransferRecord) TableName() string {
	return "transfer_records"
}
