package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContentText(t *testing.T) {
	content := ExtractContent(InboundMessage{
		Type: "text",
		Text: &ReplyContent{Body: "Hello"},
	})
	assert.Equal(t, "Hello", content)
}

func TestExtractContentButtonReply(t *testing.T) {
	content := ExtractContent(InboundMessage{
		Type: "interactive",
		Interactive: &InteractiveContent{
			Type:        "button_reply",
			ButtonReply: &InteractiveReply{ID: "btn-1", Title: "Yes"},
		},
	})
	assert.Equal(t, "Yes", content)
}

func TestExtractContentListReply(t *testing.T) {
	content := ExtractContent(InboundMessage{
		Type: "interactive",
		Interactive: &InteractiveContent{
			Type:      "list_reply",
			ListReply: &InteractiveReply{ID: "opt-2", Title: "Afspraak maken"},
		},
	})
	assert.Equal(t, "Afspraak maken", content)
}

func TestExtractContentPlaceholders(t *testing.T) {
	cases := []InboundMessage{
		{Type: "image"},
		{Type: "audio"},
		{Type: "text"},
		{Type: "interactive"},
		{Type: "interactive", Interactive: &InteractiveContent{Type: "button_reply"}},
		{},
	}
	for _, msg := range cases {
		assert.Equal(t, NonTextPlaceholder, ExtractContent(msg))
	}
}
