package model

import "time"

type EventType string

const (
	// Event types (also used as pubsub topics)
	EventTargetStarted  EventType = "target_started"
	EventTargetFinished EventType = "target_finished"
	EventProgress       EventType = "progress"
)

// Event is the serialized form of a progress callback
type Event struct {
	RunID     string    `json:"runId,omitempty"`
	Type      EventType `json:"type"`
	Target    string    `json:"target,omitempty"`
	Succeeded bool      `json:"succeeded,omitempty"`
	ElapsedMs int64     `json:"elapsedMs,omitempty"`
	Completed int       `json:"completed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Time      UnixTime  `json:"time"`
}

// UnixTime is the type used for event timestamps (milliseconds)
type UnixTime int64

// Now returns the current unix time in milliseconds
func Now() UnixTime {
	return UnixTime(time.Now().UnixNano() / 1e6)
}
