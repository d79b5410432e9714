package models

import "time"

// Audit entry kinds. One table, discriminated by Kind, replaces the
// per-kind log tables of earlier schema revisions.
const (
	AuditAdmin  = "admin"
	AuditSystem = "system"
	AuditError  = "error"
)

// AuditEntry is append-only. Rows are written once and only ever read
// back in bulk for the ops tail endpoint.
type AuditEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"index;not null"`
	ActorID   int64     `json:"actor_id" gorm:"index"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}
