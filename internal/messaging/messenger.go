package messaging

import (
	"context"
	"fmt"

	"github.com/leadflow-ai/leadflow/internal/conversation"
)

// ChannelMessenger routes outbound replies to the sender for their transport:
// the WhatsApp Cloud API sender for the whatsapp channel, Twilio for SMS.
// Either sender may be nil when its credentials are not configured.
type ChannelMessenger struct {
	whatsapp conversation.ReplyMessenger
	sms      conversation.ReplyMessenger
}

// NewChannelMessenger builds the per-channel dispatch table.
func NewChannelMessenger(whatsapp, sms conversation.ReplyMessenger) *ChannelMessenger {
	return &ChannelMessenger{whatsapp: whatsapp, sms: sms}
}

var _ conversation.ReplyMessenger = (*ChannelMessenger)(nil)

// SendReply dispatches by the reply's channel tag. Unknown or untagged
// channels fall back to WhatsApp, the primary transport.
func (m *ChannelMessenger) SendReply(ctx context.Context, msg conversation.OutboundReply) error {
	var target conversation.ReplyMessenger
	switch msg.Channel {
	case conversation.ChannelSMS:
		target = m.sms
	default:
		target = m.whatsapp
	}
	if target == nil {
		return fmt.Errorf("messaging: no sender configured for channel %q", msg.Channel)
	}
	return target.SendReply(ctx, msg)
}
