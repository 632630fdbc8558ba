package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditEventType string

const (
	AuditEventAuth        AuditEventType = "auth"
	AuditEventAdmin       AuditEventType = "admin"
	AuditEventImport      AuditEventType = "import"
	AuditEventMaintenance AuditEventType = "maintenance"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ActorID     uint           `gorm:"index" json:"actor_id"` // 0 for system jobs
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"` // e.g. "user_suspend", "review_bulk_delete"
	EntityType  string         `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

func (e *AuditEvent) BeforeCreate(*gorm.DB) error {
	if len(e.Metadata) == 0 {
		e.Metadata = datatypes.JSON("{}")
	}
	return nil
}
