package models

import "time"

// User is a directory entry for anyone the bot has seen. The ID is the
// chat network's numeric identity, not a generated key.
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	FullName  string    `json:"full_name" gorm:"not null"`
	Username  string    `json:"username" gorm:"index"`
	FirstSeen time.Time `json:"first_seen" gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}
