package actuator

import (
	"strconv"
	"strings"
	"sync"
)

// maxPendingCommands bounds the queue between the broker and the control loop.
const maxPendingCommands = 32

// Command is one auxiliary indicator instruction, e.g. "LED2_ON".
type Command struct {
	Indicator int
	On        bool
}

// ParseCommand parses "<ACTUATOR_ID>_<ON|OFF>" where the actuator id is
// LED1 to LED3. Surrounding whitespace is ignored. Anything else is rejected.
func ParseCommand(payload string) (Command, bool) {
	id, state, ok := strings.Cut(strings.TrimSpace(payload), "_")
	if !ok {
		return Command{}, false
	}

	var on bool
	switch state {
	case "ON":
		on = true
	case "OFF":
	default:
		return Command{}, false
	}

	num, found := strings.CutPrefix(id, "LED")
	if !found {
		return Command{}, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > Indicators || strconv.Itoa(n) != num {
		return Command{}, false
	}
	return Command{Indicator: n, On: on}, true
}

// CommandQueue hands auxiliary commands from broker goroutines to the
// control loop. When full, the oldest command is dropped.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
}

// Submit parses payload and queues it. It reports whether the payload was a
// valid command; invalid payloads are dropped.
func (q *CommandQueue) Submit(payload string) bool {
	cmd, ok := ParseCommand(payload)
	if !ok {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= maxPendingCommands {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, cmd)
	return true
}

// Drain returns every queued command in arrival order and empties the queue.
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
