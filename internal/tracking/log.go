// Package tracking holds the append-only production history of an order.
package tracking

import (
	"iter"

	"github.com/garmentrack/garmentrack/internal/models"
)

// Log is an append-only sequence of tracking events in insertion order.
// The zero value is an empty log.
type Log struct {
	events []models.TrackingEvent
}

// NewLog copies events so later appends never alias the caller's slice.
func NewLog(events []models.TrackingEvent) *Log {
	return &Log{events: append([]models.TrackingEvent(nil), events...)}
}

// Append adds e after all existing events and returns the new length.
func (l *Log) Append(e models.TrackingEvent) int {
	l.events = append(l.events, e)
	return len(l.events)
}

func (l *Log) Len() int {
	return len(l.events)
}

// Current returns the most recently appended event.
func (l *Log) Current() (models.TrackingEvent, bool) {
	if len(l.events) == 0 {
		return models.TrackingEvent{}, false
	}
	return l.events[len(l.events)-1], true
}

// CurrentStatus is the status of the last event, or Pending for an empty log.
func (l *Log) CurrentStatus() models.OrderStatus {
	current, ok := l.Current()
	if !ok {
		return models.StatusPending
	}
	return current.Status
}

// All yields events oldest first. The sequence can be ranged over repeatedly.
func (l *Log) All() iter.Seq[models.TrackingEvent] {
	return func(yield func(models.TrackingEvent) bool) {
		for _, e := range l.events {
			if !yield(e) {
				return
			}
		}
	}
}

// Newest yields events newest first without copying the log.
func (l *Log) Newest() iter.Seq[models.TrackingEvent] {
	return func(yield func(models.TrackingEvent) bool) {
		for i := len(l.events) - 1; i >= 0; i-- {
			if !yield(l.events[i]) {
				return
			}
		}
	}
}

// Events returns a copy of the events in insertion order.
func (l *Log) Events() []models.TrackingEvent {
	return append([]models.TrackingEvent(nil), l.events...)
}

type TimelineEntry struct {
	models.TrackingEvent
	Latest bool `json:"isLatest"`
}

// Timeline renders the log newest first with the newest entry flagged.
func (l *Log) Timeline() []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(l.events))
	for e := range l.Newest() {
		entries = append(entries, TimelineEntry{
			TrackingEvent: e,
			Latest:        len(entries) == 0,
		})
	}
	return entries
}
