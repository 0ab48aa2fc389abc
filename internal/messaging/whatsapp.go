package messaging

import "encoding/json"

// WhatsApp Cloud API webhook payload shapes.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components

const whatsAppBusinessObject = "whatsapp_business_account"

// WebhookPayload is the envelope Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes for one WhatsApp Business Account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one field update; only field "messages" is processed.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the messages (and statuses, which are ignored).
// Messages stay raw here: the provider bytes are stored verbatim as message
// metadata, so fields the typed envelope does not model (media, location,
// contacts) survive.
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         ChangeMetadata    `json:"metadata"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []json.RawMessage `json:"messages,omitempty"`
	Statuses         []map[string]any  `json:"statuses,omitempty"`
}

// ChangeMetadata identifies the receiving business number.
type ChangeMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender's profile as reported by Meta.
type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

// Profile carries the sender's display name.
type Profile struct {
	Name string `json:"name"`
}
