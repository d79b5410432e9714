package audit

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/types"
	"github.com/teampoint/botcore/internal/utils"
	"gorm.io/gorm"
)

// Log is the append-only audit writer. Every entry also goes to the
// structured logger. A failed insert is logged and dropped rather than
// failing the operation that produced it.
type Log struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Log {
	return &Log{db: db}
}

func (l *Log) Admin(actor types.Identity, action string) {
	l.append(models.AuditEntry{
		Kind:    models.AuditAdmin,
		ActorID: actor.ID,
		Actor:   actor.Label(),
		Action:  action,
	})
}

func (l *Log) System(initiator, action string) {
	l.append(models.AuditEntry{
		Kind:   models.AuditSystem,
		Actor:  initiator,
		Action: action,
	})
}

func (l *Log) Error(errType, message string) {
	l.append(models.AuditEntry{
		Kind:   models.AuditError,
		Actor:  errType,
		Action: message,
	})
}

func (l *Log) append(entry models.AuditEntry) {
	entry.CreatedAt = time.Now()
	utils.Logger.WithFields(logrus.Fields{
		"type":   "audit",
		"kind":   entry.Kind,
		"actor":  entry.Actor,
		"action": entry.Action,
	}).Info("Audit entry")
	if err := l.db.Create(&entry).Error; err != nil {
		utils.Logger.WithFields(logrus.Fields{
			"type":  "audit",
			"kind":  entry.Kind,
			"error": err.Error(),
		}).Error("Failed to persist audit entry")
	}
}

// Tail returns the most recent n entries of one kind, oldest first.
func (l *Log) Tail(kind string, n int) ([]models.AuditEntry, error) {
	if n <= 0 {
		n = 20
	}
	var entries []models.AuditEntry
	err := l.db.Where("kind = ?", kind).
		Order("id DESC").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
