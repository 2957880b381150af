package model

import (
	"fmt"
	"time"
)

type MessageType int

const (
	Text MessageType = iota
	File
)

type (
	// Envelope is the unit exchanged between client and server. Content is
	// either empty or nonce || box; PublicKey is the sender's key in clear.
	Envelope struct {
		Timestamp   time.Time   `json:"timestamp"`
		MessageType MessageType `json:"message_type"`
		Sender      string      `json:"sender"`
		Recipient   string      `json:"recipient"`
		Content     []byte      `json:"content"`
		PublicKey   PublicKey   `json:"public_key"`
	}
)

func (t MessageType) String() string {
	switch t {
	case Text:
		return "Text"
	case File:
		return "File"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

func (t MessageType) MarshalText() ([]byte, error) {
	switch t {
	case Text, File:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown message type %d", int(t))
	}
}

func (t *MessageType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Text":
		*t = Text
	case "File":
		*t = File
	default:
		return fmt.Errorf("unknown message type %q", text)
	}
	return nil
}
