package conversation

import "errors"

var (
	// ErrDuplicateDelivery signals a webhook redelivery: the inbound message's
	// provider id was already stored, so the pipeline did not run again.
	ErrDuplicateDelivery = errors.New("duplicate webhook delivery")

	// ErrConversationNotFound is returned when a lead has no conversation yet.
	ErrConversationNotFound = errors.New("conversation not found")
)
