package mqtt

import (
	"encoding/json"
	"time"
)

// Status values published on Topics.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Offline reasons.
const (
	// ReasonShutdown is published by Close.
	ReasonShutdown = "graceful_shutdown"
	// ReasonLost is the will the broker publishes when the session dies.
	ReasonLost = "unexpected_disconnect"
)

// Status is the retained presence record of the controller.
//
// The observer reads it to tell a dead controller from a quiet one. The will
// carries the time the session was set up, not the time it was lost.
type Status struct {
	Status    string    `json:"status"`
	Site      string    `json:"site"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newStatus(status, reason, site, clientID string, at time.Time) Status {
	return Status{
		Status:    status,
		Site:      site,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: at.UTC().Truncate(time.Second),
	}
}

// payload encodes the record. Marshalling a struct of strings and a time
// cannot fail, so an error degrades to an empty object.
func (s Status) payload() []byte {
	b, err := json.Marshal(s)
	if err != nil {
		return []byte("{}")
	}
	return b
}
