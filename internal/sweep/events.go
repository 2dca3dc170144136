package sweep

import (
	"time"
)

// Topic is the topic sweep requests are published to.
const Topic = "links.sweep.requested"

// Request asks a worker to purge every expired link.
type Request struct {
	RequestID   string    `json:"requestId"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestedBy string    `json:"requestedBy,omitempty"`
}
