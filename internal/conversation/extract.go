package conversation

// NonTextPlaceholder is stored when a message carries no extractable text.
const NonTextPlaceholder = "Bericht ontvangen (niet-tekst bericht)"

// ExtractContent pulls the plain-text content out of an inbound message.
// Text messages yield their body; interactive button/list replies yield the
// selected title. Everything else falls through to the placeholder, so this
// is total and never fails.
func ExtractContent(msg InboundMessage) string {
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			return msg.Text.Body
		}
	case "interactive":
		if msg.Interactive != nil {
			switch msg.Interactive.Type {
			case "button_reply":
				if msg.Interactive.ButtonReply != nil {
					return msg.Interactive.ButtonReply.Title
				}
			case "list_reply":
				if msg.Interactive.ListReply != nil {
					return msg.Interactive.ListReply.Title
				}
			}
		}
	}
	return NonTextPlaceholder
}
