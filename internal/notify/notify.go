package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/utils"
)

// Notifier is the outbound-message collaborator. The transport behind
// it is not the core's concern.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, userID int64, text string) error

func (f Func) Notify(ctx context.Context, userID int64, text string) error {
	return f(ctx, userID, text)
}

// BestEffort attempts one delivery with its own timeout. Failures are
// logged and swallowed; the caller's state change has already
// committed and must not be reversed. Never call this while holding a
// lock.
func BestEffort(ctx context.Context, n Notifier, timeout time.Duration, userID int64, text string) {
	if n == nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := n.Notify(ctx, userID, text); err != nil {
		utils.Logger.WithFields(logrus.Fields{
			"type":    "system",
			"event":   "notify_failed",
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Best-effort notification failed")
	}
}
