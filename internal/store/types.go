package store

import "time"

// ChatLog is one chat row destined for the chat_logs table.
type ChatLog struct {
	BroadcastID int64
	UserID      string
	UserLabel   string
	Message     string
	MessageType string
	IsAdmin     bool
	Timestamp   time.Time
}

// EventLog is one non-chat interaction row destined for the event_logs
// table. Payload is the JSON-encoded event body.
type EventLog struct {
	BroadcastID int64
	EventType   string
	UserID      string
	Payload     string
	Timestamp   time.Time
}
