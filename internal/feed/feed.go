// Package feed carries row-level change events for a table from the writer
// to every live subscriber.
package feed

import (
	"context"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Row is the subset of a changed record that subscribers look at.
type Row struct {
	ID     int64   `json:"id"`
	Status *string `json:"status,omitempty"`
	Likes  *int64  `json:"likes,omitempty"`
}

type Event struct {
	Type            EventType `json:"eventType"`
	Table           string    `json:"table"`
	Old             *Row      `json:"old,omitempty"`
	New             *Row      `json:"new,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}

// StatusChanged reports an update whose status column moved.
func (e Event) StatusChanged() bool {
	if e.Type != EventUpdate || e.Old == nil || e.New == nil {
		return false
	}
	return deref(e.Old.Status) != deref(e.New.Status)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Stream is a live subscription. Events is closed after Close.
type Stream interface {
	Events() <-chan Event
	Close() error
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
