package banlist

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/utils"
)

// SweepExpired lifts every temp ban whose expiry has passed and
// returns the released user ids. Each removal takes the same per-user
// lock as AddTempBan/RemoveTempBan; the guarded delete re-checks the
// expiry under the lock so a ban re-issued mid-sweep survives.
// Notifications happen after all locks are released.
func (r *Registry) SweepExpired(ctx context.Context) ([]int64, error) {
	now := time.Now()
	var candidates []models.TempBan
	err := r.db.Where("expires_at <= ?", now).Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("list expired temp bans: %w", err)
	}
	var released []int64
	for _, ban := range candidates {
		r.locks.Lock(ban.UserID)
		res := r.db.Delete(&models.TempBan{}, "user_id = ? AND expires_at <= ?", ban.UserID, now)
		r.locks.Unlock(ban.UserID)
		if res.Error != nil {
			utils.Logger.WithFields(logrus.Fields{
				"type":    "system",
				"event":   "sweep_delete_failed",
				"user_id": ban.UserID,
				"error":   res.Error.Error(),
			}).Error("Failed to lift expired temp ban")
			continue
		}
		if res.RowsAffected == 0 {
			// Re-banned or removed since the scan; nothing to lift.
			continue
		}
		released = append(released, ban.UserID)
	}
	return released, nil
}

// Sweeper is the background task that runs SweepExpired once at
// startup and then on a fixed interval until its context is cancelled.
type Sweeper struct {
	registry      *Registry
	notifier      notify.Notifier
	interval      time.Duration
	notifyTimeout time.Duration
}

func NewSweeper(registry *Registry, notifier notify.Notifier, interval, notifyTimeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		registry:      registry,
		notifier:      notifier,
		interval:      interval,
		notifyTimeout: notifyTimeout,
	}
}

// Run blocks until ctx is cancelled. The startup pass catches bans
// that expired while the process was down. A failed cycle is logged
// and the loop continues; expired-but-unprocessed bans are simply
// picked up next cycle or next startup.
func (s *Sweeper) Run(ctx context.Context) error {
	s.RunOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep cycle: lift expired bans, then tell
// each released user their access is back, unless the block list still
// holds them.
func (s *Sweeper) RunOnce(ctx context.Context) {
	released, err := s.registry.SweepExpired(ctx)
	if err != nil {
		utils.Logger.WithFields(logrus.Fields{
			"type":  "system",
			"event": "sweep_failed",
			"error": err.Error(),
		}).Error("Temp-ban sweep cycle failed")
		s.registry.auditLog.Error("SWEEP", err.Error())
		return
	}
	for _, userID := range released {
		blocked, err := s.registry.hasPermanentBan(userID)
		if err != nil {
			utils.Logger.WithFields(logrus.Fields{
				"type":    "system",
				"event":   "sweep_permanent_check_failed",
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Failed to check block list after temp-ban expiry")
			continue
		}
		if blocked {
			continue
		}
		notify.BestEffort(ctx, s.notifier, s.notifyTimeout, userID,
			"Your temporary ban has expired. Access restored.")
		s.registry.auditLog.System("SWEEPER", fmt.Sprintf("temp ban of id:%d expired, access restored", userID))
	}
}
