package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind is the closed set of things that can happen during a journey.
type EventKind string

const (
	EventDeparture EventKind = "departure"
	EventBreak     EventKind = "break"
	EventLoading   EventKind = "loading"
	EventRefueling EventKind = "refueling"
	EventUnloading EventKind = "unloading"
)

// EventKinds lists every kind in display order.
var EventKinds = []EventKind{
	EventDeparture,
	EventBreak,
	EventLoading,
	EventRefueling,
	EventUnloading,
}

// ParseEventKind converts a wire value into an EventKind.
// Returns ErrValidation for anything outside the closed set.
func ParseEventKind(s string) (EventKind, error) {
	for _, k := range EventKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown event kind %q", ErrValidation, s)
}

// Event is a discrete occurrence recorded while a journey is in progress.
// Note is empty when the driver left no remark.
type Event struct {
	ID       uuid.UUID
	Kind     EventKind
	Time     TimeOfDay
	Location string
	Note     string
}
