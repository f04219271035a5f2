// Package controller is the coordination state machine of the door unit.
//
// A Controller owns the Mode (Idle, Greeting, AwaitingCredential,
// Emergency), the credential FSM, the emergency state and every running
// sequence. It runs one Step per fixed cycle.
//
// # Cycle
//
// Each Step samples the sensors, evaluates hazards first so an emergency is
// entered on the same cycle the hazard appears, then advances the running
// sequences, handles the presence edge and keypad input, applies queued
// indicator commands, drives the actuators and renders the display at most
// once. Events produced during the cycle are queued for delivery.
//
// # Sequences
//
// The greeting flash and tone, the door dwell, the alarm tone and transient
// display messages are deadline sub-states checked every cycle. Nothing
// sleeps inside a cycle, so a hazard during a door dwell is seen on the next
// cycle. A door sequence that has started always runs to lock-closed, even if
// the mode changes meanwhile.
//
// # Delivery
//
// Run starts a goroutine that hands queued events to the Notifier. Events
// have a bounded queue of their own; telemetry waits in a single slot where a
// newer snapshot replaces an undelivered one, so periodic readings can never
// crowd out a hazard event. Delivery outcomes are logged and counted but never
// change controller behaviour.
package controller
