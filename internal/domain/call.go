package domain

import "time"

// CallKind selects the media requested for a call.
type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

func (k CallKind) Valid() bool { return k == CallAudio || k == CallVideo }

// CallStatus is the terminal outcome recorded in a call log.
type CallStatus string

const (
	CallMissed   CallStatus = "missed"
	CallAnswered CallStatus = "answered"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
)

// CallLog is the history row written by clients after a call finishes.
// Duration is measured on the client from accept to end, in seconds.
type CallLog struct {
	ID         string     `json:"id"`
	Room       RoomID     `json:"room"`
	Caller     UserID     `json:"caller"`
	CallerName string     `json:"callerName"`
	Kind       CallKind   `json:"callKind"`
	Status     CallStatus `json:"status"`
	Duration   int        `json:"duration"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    time.Time  `json:"endedAt"`
}
