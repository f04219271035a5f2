// Package fielddevice bridges the controller to the peripheral node that
// carries the door's sensors, keypad, lock, buzzer, indicators and display.
//
// # Topics
//
// Inbound, under {prefix}/field:
//
//	sensors   {"presence":47,"fire":false,"gas":0,"temperature":21.5,"humidity":40}
//	keypad    one or more key characters, e.g. "12"
//
// Outbound, retained:
//
//	lock      {"open":true,"angle":90}
//	buzzer    {"on":true}
//	led/{n}   {"on":false}
//	display   {"lines":["Enter Password:","Input: **"]}
//
// The bridge also listens on the observer command topics {prefix}/lights and
// {prefix}/display and hands their payloads to the configured sinks.
//
// # Failure Handling
//
// A reading that was never received, was reported as null, or is older than
// StaleAfter is returned as an error. The sampler then treats it as unknown
// or false, so a silent node drops the unit out of emergency rather than
// holding stale hazard flags forever.
package fielddevice
