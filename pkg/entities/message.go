package entities

import (
	"bytes"
	"encoding/json"
)

// MessageTypeFile is the message type carrying a single file attachment.
const MessageTypeFile = "FILE"

// Message is one chat message from the messaging backend. As with Offer, the
// original JSON is preserved and written back unchanged.
type Message struct {
	User      *MessageUser `json:"user,omitempty"`
	Type      Text         `json:"type,omitempty"`
	Text      Text         `json:"message,omitempty"`
	File      *File        `json:"file,omitempty"`
	Files     []File       `json:"files,omitempty"`
	CreatedAt Millis       `json:"created_at"`
	raw       json.RawMessage
}

type MessageUser struct {
	UserID     UserID `json:"user_id"`
	Nickname   Text   `json:"nickname,omitempty"`
	ProfileURL Text   `json:"profile_url,omitempty"`
}

type File struct {
	URL  Text `json:"url"`
	Name Text `json:"name,omitempty"`
	Type Text `json:"type,omitempty"`
}

// Thread is the stored message history of one offer's channel.
type Thread struct {
	OfferID  int64     `json:"offer_id"`
	Messages []Message `json:"messages"`
	HasNext  bool      `json:"has_next"`
}

// SenderID returns the sender id, empty when the message has no sender.
func (m Message) SenderID() UserID {
	if m.User == nil {
		return ""
	}
	return m.User.UserID
}

// WellFormed reports whether the message has both a sender id and a usable
// creation timestamp.
func (m Message) WellFormed() bool {
	return m.SenderID() != "" && m.CreatedAt.Valid
}

// UnmarshalJSON decodes each field on its own, so only a missing or broken
// sender or timestamp makes a message malformed.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}
	decodeFields(data, map[string]any{
		"user":       &m.User,
		"type":       &m.Type,
		"message":    &m.Text,
		"file":       &m.File,
		"files":      &m.Files,
		"created_at": &m.CreatedAt,
	})
	m.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)

	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}

	type wire Message
	return json.Marshal(wire(m))
}
