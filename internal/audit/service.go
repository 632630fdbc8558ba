// Package audit records who did what to users, reviews and books.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/database/audit"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Error("failed to log audit event", zap.String("action", event.Action), zap.Error(err))
		}
	}()
}

// Wait blocks until every LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAdmin records an administrative action synchronously. Failures are
// logged and do not undo the action that was already committed.
func (s *Service) LogAdmin(ctx context.Context, actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any) {
	event := &entities.AuditEvent{
		ActorID:     actorID,
		EventType:   entities.AuditEventAdmin,
		Action:      action,
		EntityType:  entityType,
		Description: truncate(description, 500),
		Metadata:    encodeMetadata(metadata),
		Status:      entities.AuditStatusSuccess,
	}
	if entityID != 0 {
		event.EntityID = &entityID
	}

	if err := s.Log(ctx, event); err != nil {
		log.Error("failed to log admin action",
			zap.String("action", action),
			zap.Uint("actor_id", actorID),
			zap.Error(err),
		)
	}
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		ActorID:   userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogImport records a catalog import run.
func (s *Service) LogImport(actorID uint, source string, imported, skipped, failed int, err error) {
	event := &entities.AuditEvent{
		ActorID:     actorID,
		EventType:   entities.AuditEventImport,
		Action:      "catalog_import",
		EntityType:  "book",
		Description: truncate(source, 500),
		Metadata: encodeMetadata(map[string]any{
			"imported": imported,
			"skipped":  skipped,
			"failed":   failed,
		}),
		Status: entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogMaintenance records a system job run. The actor is always 0.
func (s *Service) LogMaintenance(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// Events retrieves paginated audit events.
func (s *Service) Events(ctx context.Context, f audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, f)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func encodeMetadata(metadata map[string]any) []byte {
	if len(metadata) == 0 {
		return nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return b
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
