package engine

import (
	"sync"
	"time"

	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/entity"
)

// EventLog is a bounded, newest-first log of human-readable engine events.
type EventLog struct {
	mu      sync.Mutex
	entries []entity.Event
	cap     int
	now     func() time.Time
}

// NewEventLog creates an event log bounded at the configured capacity.
func NewEventLog() *EventLog {
	return &EventLog{cap: config.EventCap, now: time.Now}
}

// Event records a message at the head of the log, evicting the oldest
// entry beyond capacity. Implements trade.EventSink.
func (l *EventLog) Event(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := entity.Event{
		Time:    l.now().Format("15:04:05"),
		Message: msg,
		Level:   level,
	}
	l.entries = append([]entity.Event{e}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

// Recent returns up to n newest entries.
func (l *EventLog) Recent(n int) []entity.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	return append([]entity.Event(nil), l.entries[:n]...)
}

// Len returns the current number of entries.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
