package models

import "time"

type Achievement struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

type UserAchievement struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        int64     `json:"user_id" gorm:"index;not null"`
	AchievementID string    `json:"achievement_id" gorm:"index;not null"`
	GrantedAt     time.Time `json:"granted_at" gorm:"not null"`
	GrantedBy     string    `json:"granted_by"`
}

func (Achievement) TableName() string {
	return "achievements"
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
