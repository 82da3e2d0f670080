package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

// Role identifies which side of the conversation produced a message.
type Role string

const (
	// RoleClient marks messages originating from the coached person.
	RoleClient Role = "client"
	// RoleCoach marks messages originating from the upstream coaching agent.
	RoleCoach Role = "coach"
)
