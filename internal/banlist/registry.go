package banlist

import (
	"errors"
	"fmt"
	"time"

	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/keylock"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry owns the permanent block list and the one-temp-ban-per-user
// table. Temp-ban mutations for one user are serialized through a
// per-user lock shared with the sweeper, so an expiring ban cannot be
// revived by a concurrent re-insert.
type Registry struct {
	db         *gorm.DB
	locks      *keylock.KeyLock[int64]
	auditLog   *audit.Log
	maxTempBan time.Duration
}

func New(db *gorm.DB, auditLog *audit.Log, maxTempBan time.Duration) *Registry {
	return &Registry{
		db:         db,
		locks:      keylock.New[int64](),
		auditLog:   auditLog,
		maxTempBan: maxTempBan,
	}
}

// IsBanned reports whether the user is blocked right now: a permanent
// ban, or a temp ban that has not yet expired. Permanent bans are
// untouched by temp-ban expiry.
func (r *Registry) IsBanned(userID int64) (bool, error) {
	var permanent models.PermanentBan
	err := r.db.First(&permanent, "user_id = ?", userID).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("check permanent ban of %d: %w", userID, err)
	}
	var temp models.TempBan
	err = r.db.First(&temp, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check temp ban of %d: %w", userID, err)
	}
	return temp.ExpiresAt.After(time.Now()), nil
}

// AddPermanentBan puts the user on the block list. Re-banning an
// already banned user refreshes the record rather than failing.
func (r *Registry) AddPermanentBan(target types.Identity, issuedBy types.Identity) error {
	ban := models.PermanentBan{
		UserID:   target.ID,
		FullName: target.DisplayName,
		Username: target.Username,
		IssuedAt: time.Now(),
		IssuedBy: issuedBy.Label(),
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&ban).Error
	if err != nil {
		return fmt.Errorf("add permanent ban for %d: %w", target.ID, err)
	}
	r.auditLog.Admin(issuedBy, fmt.Sprintf("banned %s", target.Label()))
	return nil
}

func (r *Registry) RemovePermanentBan(userID int64, removedBy types.Identity) error {
	res := r.db.Delete(&models.PermanentBan{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("remove permanent ban for %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	r.auditLog.Admin(removedBy, fmt.Sprintf("unbanned id:%d", userID))
	return nil
}

// AddTempBan creates a time-bounded ban expiring duration from now.
// A user with a live temp ban is rejected with ErrConflict; a stale
// row left behind by an expired ban is replaced.
func (r *Registry) AddTempBan(userID int64, duration time.Duration, reason string, issuedBy types.Identity) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, types.ErrInvalidDuration
	}
	if r.maxTempBan > 0 && duration > r.maxTempBan {
		duration = r.maxTempBan
	}
	r.locks.Lock(userID)
	defer r.locks.Unlock(userID)

	now := time.Now()
	var existing models.TempBan
	err := r.db.First(&existing, "user_id = ?", userID).Error
	if err == nil && existing.ExpiresAt.After(now) {
		return time.Time{}, types.ErrConflict
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, fmt.Errorf("check temp ban of %d: %w", userID, err)
	}
	ban := models.TempBan{
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		Reason:    reason,
		IssuedBy:  issuedBy.ID,
		IssuedAt:  now,
	}
	err = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&ban).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("add temp ban for %d: %w", userID, err)
	}
	r.auditLog.Admin(issuedBy, fmt.Sprintf("temp-banned id:%d until %s (%s)",
		userID, ban.ExpiresAt.Format(time.RFC3339), reason))
	return ban.ExpiresAt, nil
}

func (r *Registry) RemoveTempBan(userID int64, removedBy types.Identity) error {
	r.locks.Lock(userID)
	defer r.locks.Unlock(userID)

	res := r.db.Delete(&models.TempBan{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("remove temp ban for %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	r.auditLog.Admin(removedBy, fmt.Sprintf("lifted temp ban of id:%d", userID))
	return nil
}

func (r *Registry) ListPermanentBans() ([]models.PermanentBan, error) {
	var bans []models.PermanentBan
	if err := r.db.Order("issued_at").Find(&bans).Error; err != nil {
		return nil, fmt.Errorf("list permanent bans: %w", err)
	}
	return bans, nil
}

func (r *Registry) ListTempBans() ([]models.TempBan, error) {
	var bans []models.TempBan
	if err := r.db.Order("expires_at").Find(&bans).Error; err != nil {
		return nil, fmt.Errorf("list temp bans: %w", err)
	}
	return bans, nil
}

// hasPermanentBan is the sweep's post-removal check; a user on the
// block list must stay blocked after the temp ban is lifted.
func (r *Registry) hasPermanentBan(userID int64) (bool, error) {
	var ban models.PermanentBan
	err := r.db.First(&ban, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
