package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Message is the dispatch payload handed from the API to the launcher.
type Message struct {
	JobID  int64  `json:"job_id"`
	Prompt string `json:"prompt"`
}

// Handler processes one delivered message. Delivery is at least once, so
// handlers must tolerate duplicates.
type Handler func(ctx context.Context, msg Message) error

// Publisher emits dispatch messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber delivers messages to h until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, h Handler) error
}

// ErrInvalidMessage marks payloads that cannot be decoded into a Message.
var ErrInvalidMessage = errors.New("invalid dispatch message")

// Encode serializes msg as JSON.
func Encode(msg Message) ([]byte, error) {
	if msg.JobID <= 0 {
		return nil, fmt.Errorf("%w: job_id must be positive", ErrInvalidMessage)
	}
	return json.Marshal(msg)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.JobID <= 0 {
		return Message{}, fmt.Errorf("%w: job_id missing", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.Prompt) == "" {
		return Message{}, fmt.Errorf("%w: prompt missing", ErrInvalidMessage)
	}
	return msg, nil
}
