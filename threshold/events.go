package threshold

import (
	"sync"
	"time"
)

// Event is emitted after a successful state transition.
type Event interface {
	// Timestamp returns when the event was created.
	Timestamp() time.Time
}

// AddressGenerated is emitted once the script keys of a new threshold
// address are stored.
type AddressGenerated struct {
	// Addr is the generated threshold address.
	Addr AccountID

	// NumScripts is the number of script keys in the tree.
	NumScripts int

	// Time is when the event was created.
	Time time.Time
}

// Timestamp returns when the event was created.
func (e *AddressGenerated) Timestamp() time.Time {
	return e.Time
}

// ScriptAuthorized is emitted once a threshold signature authorized a script.
type ScriptAuthorized struct {
	// ScriptHash is the authorized script.
	ScriptHash ScriptHash

	// Addr is the threshold address that authorized it.
	Addr AccountID

	// Expiry is the last height the authorizing message was valid at.
	Expiry uint64

	// Time is when the event was created.
	Time time.Time
}

// Timestamp returns when the event was created.
func (e *ScriptAuthorized) Timestamp() time.Time {
	return e.Time
}

// ScriptExecuted is emitted once an authorized script was executed and
// consumed.
type ScriptExecuted struct {
	// Target is the receiving account.
	Target AccountID

	// Addr is the threshold address funds were moved from.
	Addr AccountID

	// Op is the executed opcode.
	Op OpCode

	// Amount is the transferred amount.
	Amount uint64

	// TimeLock is the window the script was valid in.
	TimeLock TimeLock

	// Height is the block height the script executed at.
	Height uint64

	// Time is when the event was created.
	Time time.Time
}

// Timestamp returns when the event was created.
func (e *ScriptExecuted) Timestamp() time.Time {
	return e.Time
}

// AddressRevoked is emitted once the script keys of an address are removed.
type AddressRevoked struct {
	// Addr is the revoked threshold address.
	Addr AccountID

	// Time is when the event was created.
	Time time.Time
}

// Timestamp returns when the event was created.
func (e *AddressRevoked) Timestamp() time.Time {
	return e.Time
}

// EventSink receives engine events. Delivery is fire and forget and must not
// block the engine indefinitely.
type EventSink interface {
	// NotifyEvent delivers an event.
	NotifyEvent(event Event)
}

// noopEventSink drops all events.
type noopEventSink struct{}

// NotifyEvent drops the event.
func (noopEventSink) NotifyEvent(Event) {}

// EventChan is an EventSink delivering events over a channel. Events are
// dropped when the buffer is full and no reader is waiting, and once the sink
// is stopped.
type EventChan struct {
	// Events is the channel events are delivered on.
	Events chan Event

	quit     chan struct{}
	stopOnce sync.Once
}

// NewEventChan creates a new channel backed sink with the given buffer size.
func NewEventChan(buffer int) *EventChan {
	return &EventChan{
		Events: make(chan Event, buffer),
		quit:   make(chan struct{}),
	}
}

// NotifyEvent delivers an event without blocking.
func (e *EventChan) NotifyEvent(event Event) {
	select {
	case <-e.quit:
		log.Debugf("Dropping %T event, sink stopped", event)
		return

	default:
	}

	select {
	case e.Events <- event:

	default:
		log.Warnf("Dropping %T event, no reader ready", event)
	}
}

// Stop drops all future deliveries.
func (e *EventChan) Stop() {
	e.stopOnce.Do(func() {
		close(e.quit)
	})
}
