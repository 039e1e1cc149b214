package whatsapp

import "github.com/jothihub/jothi-gateway/internal/channel"

// WebhookPayload is the Cloud API webhook envelope: messages arrive
// under entry -> changes -> value -> messages.
type WebhookPayload struct {
	Entry []Entry `json:"entry"`
}

// Entry is one webhook entry
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change is one change notification
type Change struct {
	Value Value `json:"value"`
}

// Value carries the actual message batch
type Value struct {
	Messages []Message `json:"messages"`
}

// Text is the body of a text message
type Text struct {
	Body string `json:"body"`
}

// Audio references an uploaded voice note
type Audio struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// Message is one inbound message
type Message struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	Type  string `json:"type"`
	Text  *Text  `json:"text,omitempty"`
	Audio *Audio `json:"audio,omitempty"`
}

// Events flattens the webhook envelope into channel events
func (p *WebhookPayload) Events() []channel.Event {
	var events []channel.Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev := channel.Event{
					ID:      msg.ID,
					Channel: "whatsapp",
					From:    msg.From,
					Type:    msg.Type,
				}
				if msg.Text != nil {
					ev.Text = msg.Text.Body
				}
				if msg.Audio != nil {
					ev.MediaID = msg.Audio.ID
				}
				events = append(events, ev)
			}
		}
	}
	return events
}
