// internal/signals/dto.go
package signals

import "time"

// DTOs for API requests/responses

type RecordSignalDTO struct {
	TargetID   int64                  `json:"target_id" validate:"required"`
	Type       string                 `json:"signal_type" validate:"required"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt *time.Time             `json:"occurred_at,omitempty"`
}
