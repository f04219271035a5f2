// Package actuator drives the lock, buzzer and indicator LEDs of the door unit.
//
// Driver wraps a Hardware implementation and suppresses commands that would
// not change the last commanded value. Actual physical state is never read
// back; the driver's State is what was last sent successfully.
//
// The package also parses the auxiliary indicator commands an observer can
// send over the broker ("LED1_ON", "LED3_OFF"). CommandQueue carries them
// from the broker's goroutines to the control loop, which applies them on
// its next cycle.
package actuator
