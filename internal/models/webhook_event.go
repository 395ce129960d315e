// internal/models/webhook_event.go
package models

import "time"

// WebhookEvent records one payment-processor delivery. The unique index on
// (provider, event_id) is the claim that makes redelivered events no-ops:
// the first transaction to insert the row processes the event, every other
// insert fails the uniqueness check.
type WebhookEvent struct {
	BaseModel
	Provider    string     `json:"provider" gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventID     string     `json:"event_id" gorm:"size:191;not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventType   string     `json:"event_type" gorm:"size:100;not null;index"`
	Payload     string     `json:"payload" gorm:"type:text"`
	ProcessedAt *time.Time `json:"processed_at"`
}
