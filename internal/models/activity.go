package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the services.
const (
	ActionSlotCancelled   = "slot.occurrence_cancelled"
	ActionSlotRestored    = "slot.occurrence_restored"
	ActionExamOpened      = "assignment.opened"
	ActionExamClosed      = "assignment.closed"
	ActionScheduleEdited  = "schedule.edited"
	ActionAssignmentSaved = "assignment.saved"
)

// ActivityLog is the audit trail for schedule and assignment mutations:
// who changed what, and enough metadata to reconstruct the change.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
