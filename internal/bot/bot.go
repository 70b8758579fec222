package bot

import (
	"context"
	"errors"
	"strings"
)

var ErrQueueFull = errors.New("outgoing message queue full")

// Update is the envelope delivered by the chat platform webhook.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *From  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type From struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Sender delivers outgoing messages to the chat platform.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
	Enqueue(chatID int64, text string) error
}

// Command splits "/cmd arg rest" into its name and argument tail.
// Commands addressed to another bot ("/cmd@otherbot") keep only the name.
func Command(text string) (name, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	name = text
	if idx := strings.IndexAny(text, " \n"); idx >= 0 {
		name = text[:idx]
		args = strings.TrimSpace(text[idx+1:])
	}
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), args
}
