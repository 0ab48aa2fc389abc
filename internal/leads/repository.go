package leads

import "context"

// Repository defines the interface for lead storage
type Repository interface {
	// FindOrCreateByPhone resolves the lead for a phone number, creating it
	// with status "new" when absent. Safe under concurrent first contact.
	FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
