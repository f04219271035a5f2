// Package credential implements keypad credential entry for a single secret.
//
// The FSM buffers keys until the buffer is as long as the secret, then
// validates with a constant-time comparison and clears the buffer. Wrong
// entries increment a counter; the entry that reaches the lockout threshold
// is flagged and resets the counter to zero. There is no cool-down period.
//
// The buffer contents are never exposed. Callers get the length, a masked
// rendering and the outcome.
package credential
