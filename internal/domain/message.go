package domain

import "time"

type MessageID string

type Message struct {
	ID         MessageID `json:"id"`
	Room       RoomID    `json:"room"`
	Sender     UserID    `json:"sender"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Deleted    bool      `json:"deleted"`
	Timestamp  time.Time `json:"timestamp"`
}
