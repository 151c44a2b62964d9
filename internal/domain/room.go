package domain

import "time"

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID        RoomID    `json:"id"`
	Name      RoomName  `json:"name"`
	CreatedBy UserID    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
