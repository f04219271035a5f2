package controller

import (
	"sync"

	"github.com/nerrad567/entryguard/internal/sensor"
)

// Display text shown by the controller.
const (
	textGreeting      = "Hello, user!"
	textPrompt        = "Enter Password:"
	textInputPrefix   = "Input: "
	textWrongPassword = "Wrong Password!"
	textDoorOpening   = "Door Opening..."
	textDoorClosed    = "Door Closed."
	textAlert         = "ALERT!"
	textBanner        = "Smart Home System"
	textRemoteHeading = "MQTT Msg:"
	textTemperature   = "Temp: "
	textHumidity      = "Hum: "
)

// Frame is the full content of the two-line display.
type Frame struct {
	Lines [2]string `json:"lines"`
}

// NewFrame builds a frame from two lines.
func NewFrame(top, bottom string) Frame {
	return Frame{Lines: [2]string{top, bottom}}
}

// routineFrame is the idle text: temperature and humidity, "--" when unknown.
func routineFrame(snap sensor.Snapshot) Frame {
	return NewFrame(
		textTemperature+snap.Temperature.Format()+"C",
		textHumidity+snap.Humidity.Format()+"%",
	)
}

// MessageBox holds the most recent remote display text until the control
// loop takes it. A newer message replaces an unread one.
//
// Thread Safety: all methods are safe for concurrent use.
type MessageBox struct {
	mu      sync.Mutex
	text    string
	pending bool
}

// Post stores text for the next cycle.
func (b *MessageBox) Post(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.pending = true
}

// Take returns the pending text, if any, and empties the box.
func (b *MessageBox) Take() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		return "", false
	}
	text := b.text
	b.text, b.pending = "", false
	return text, true
}
