package leads

import "time"

// Lead statuses. The intake pipeline only ever creates leads as "new";
// the remaining transitions are driven by dashboard/agent actions.
const (
	StatusNew                 = "new"
	StatusActive              = "active"
	StatusNeedsHumanAttention = "needs_human_attention"
	StatusClosed              = "closed"
)

// Lead represents a contact identified by phone number.
type Lead struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
