package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadflow-ai/leadflow/internal/conversation"
)

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "31612345678", sanitizePhone("+31 6 1234 5678"))
	assert.Equal(t, "31612345678", sanitizePhone("31612345678"))
	assert.Equal(t, "", sanitizePhone("whatsapp:"))
}

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+31612345678", NormalizeE164("31612345678"))
	assert.Equal(t, "+31612345678", NormalizeE164("+31 612 345 678"))
	assert.Equal(t, "", NormalizeE164("not a number"))
}

func TestSplitSenderAddress(t *testing.T) {
	channel, sender := SplitSenderAddress("whatsapp:+31612345678")
	assert.Equal(t, conversation.ChannelWhatsApp, channel)
	assert.Equal(t, "31612345678", sender)

	channel, sender = SplitSenderAddress("+14155550100")
	assert.Equal(t, conversation.ChannelSMS, channel)
	assert.Equal(t, "14155550100", sender)
}
