// Package emergency decides when the door unit is in a hazard emergency.
//
// Evaluate is a pure function of the previous State and the current sensor
// snapshot. Hazard priority is fixed: any active hazard input puts the unit
// into emergency on the same cycle, and gas on the activation edge forces
// the lock open exactly once.
package emergency
