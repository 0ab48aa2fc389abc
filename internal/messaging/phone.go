package messaging

import (
	"strings"

	"github.com/leadflow-ai/leadflow/internal/conversation"
)

// sanitizePhone strips everything but digits.
func sanitizePhone(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
func NormalizeE164(value string) string {
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// SplitSenderAddress infers the channel from a Twilio From value and returns
// the bare digits. "whatsapp:+31612345678" is the WhatsApp channel; anything
// else is SMS.
func SplitSenderAddress(from string) (conversation.Channel, string) {
	from = strings.TrimSpace(from)
	channel := conversation.ChannelSMS
	if rest, ok := strings.CutPrefix(from, "whatsapp:"); ok {
		channel = conversation.ChannelWhatsApp
		from = rest
	}
	return channel, sanitizePhone(from)
}
