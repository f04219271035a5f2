package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category classifies a notification event.
type Category int

const (
	// Presence means a visitor arrived at the door.
	Presence Category = iota
	// AccessGranted means the door opened and closed again.
	AccessGranted
	// AccessDenied means a wrong credential was entered.
	AccessDenied
	// AccessLockout means the wrong-entry threshold was reached.
	AccessLockout
	// HazardRaised means an emergency started.
	HazardRaised
	// HazardCleared means an emergency ended.
	HazardCleared
)

var categoryNames = map[Category]string{
	Presence:      "presence",
	AccessGranted: "access_granted",
	AccessDenied:  "access_denied",
	AccessLockout: "access_lockout",
	HazardRaised:  "hazard_raised",
	HazardCleared: "hazard_cleared",
}

// String returns the snake_case category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the category as its name.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Standard messages, shown to the observer verbatim.
const (
	MsgPresence      = "User detected at the door."
	MsgDoorOpened    = "Door opened successfully!"
	MsgAccessDenied  = "Wrong password entered at the door."
	MsgLockout       = "3 failed attempts at the door!"
	MsgFire          = "Fire detected! Alarm activated!"
	MsgGas           = "Gas detected! Opening door!"
	MsgFireAndGas    = "Fire and gas detected! Opening door!"
	MsgHazardCleared = "Emergency cleared. System back to normal."
)

// Event is an immutable notification.
type Event struct {
	ID       string    `json:"id"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(category Category, message string, at time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Category: category,
		Message:  message,
		At:       at,
	}
}
