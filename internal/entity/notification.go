package entity

import (
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// Notification represents the rendered notification document of an infraction.
type Notification struct {
	ID             int64                       `json:"id"`
	InfractionID   int64                       `json:"infraction_id"`
	DocumentPath   string                      `json:"document_path"`
	State          constants.NotificationState `json:"state"`
	RecipientEmail *string                     `json:"recipient_email,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	SentAt         *time.Time                  `json:"sent_at,omitempty"`

	// ActNumber is populated by joined reads only.
	ActNumber string `json:"act_number,omitempty"`
}
