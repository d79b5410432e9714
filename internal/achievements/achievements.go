package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
)

// Service manages achievement definitions and per-user grants.
type Service struct {
	db            *gorm.DB
	auditLog      *audit.Log
	notifier      notify.Notifier
	notifyTimeout time.Duration
}

func New(db *gorm.DB, auditLog *audit.Log, notifier notify.Notifier, notifyTimeout time.Duration) *Service {
	return &Service{db: db, auditLog: auditLog, notifier: notifier, notifyTimeout: notifyTimeout}
}

// Granted is one achievement a user holds, joined with its name.
type Granted struct {
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	GrantedAt     time.Time `json:"granted_at"`
	GrantedBy     string    `json:"granted_by"`
}

// Define registers a new achievement. An existing id is ErrConflict.
func (s *Service) Define(id, name string, by types.Identity) error {
	var existing models.Achievement
	err := s.db.First(&existing, "id = ?", id).Error
	if err == nil {
		return types.ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check achievement %q: %w", id, err)
	}
	ach := models.Achievement{ID: id, Name: name, CreatedAt: time.Now()}
	if err := s.db.Create(&ach).Error; err != nil {
		return fmt.Errorf("create achievement %q: %w", id, err)
	}
	s.auditLog.Admin(by, fmt.Sprintf("defined achievement %s (%s)", id, name))
	return nil
}

// Drop removes an achievement definition and every grant of it.
func (s *Service) Drop(id string, by types.Identity) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Achievement{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.ErrNotFound
		}
		return tx.Delete(&models.UserAchievement{}, "achievement_id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("drop achievement %q: %w", id, err)
	}
	s.auditLog.Admin(by, fmt.Sprintf("dropped achievement %s", id))
	return nil
}

// Grant gives the user an achievement and tells them best-effort.
// Granting an undefined achievement is ErrNotFound; granting one the
// user already holds is ErrConflict.
func (s *Service) Grant(ctx context.Context, user types.Identity, achID string, by types.Identity) error {
	var ach models.Achievement
	err := s.db.First(&ach, "id = ?", achID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup achievement %q: %w", achID, err)
	}
	var existing models.UserAchievement
	err = s.db.First(&existing, "user_id = ? AND achievement_id = ?", user.ID, achID).Error
	if err == nil {
		return types.ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check grant of %q to %d: %w", achID, user.ID, err)
	}
	grant := models.UserAchievement{
		UserID:        user.ID,
		AchievementID: achID,
		GrantedAt:     time.Now(),
		GrantedBy:     by.Label(),
	}
	if err := s.db.Create(&grant).Error; err != nil {
		return fmt.Errorf("grant %q to %d: %w", achID, user.ID, err)
	}
	s.auditLog.Admin(by, fmt.Sprintf("granted achievement %s to %s", achID, user.Label()))
	notify.BestEffort(ctx, s.notifier, s.notifyTimeout, user.ID,
		fmt.Sprintf("You earned the achievement: %s", ach.Name))
	return nil
}

func (s *Service) Revoke(userID int64, achID string, by types.Identity) error {
	res := s.db.Delete(&models.UserAchievement{}, "user_id = ? AND achievement_id = ?", userID, achID)
	if res.Error != nil {
		return fmt.Errorf("revoke %q from %d: %w", achID, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	s.auditLog.Admin(by, fmt.Sprintf("revoked achievement %s from id:%d", achID, userID))
	return nil
}

func (s *Service) ListForUser(userID int64) ([]Granted, error) {
	var granted []Granted
	err := s.db.Model(&models.UserAchievement{}).
		Select("user_achievements.achievement_id, achievements.name, user_achievements.granted_at, user_achievements.granted_by").
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Order("user_achievements.granted_at").
		Scan(&granted).Error
	if err != nil {
		return nil, fmt.Errorf("list achievements of %d: %w", userID, err)
	}
	return granted, nil
}

func (s *Service) ListAll() ([]models.Achievement, error) {
	var all []models.Achievement
	if err := s.db.Order("created_at").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return all, nil
}
