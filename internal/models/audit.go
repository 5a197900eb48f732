package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one action against a deal, wallet or referral group.
// Every state transition the escrow service performs writes an entry, so
// disputes can be reconstructed after the fact.
type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"` // user/admin/system
	Action      string     `json:"action"`     // deal_created, deal_funded, dispute_opened, ...
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
