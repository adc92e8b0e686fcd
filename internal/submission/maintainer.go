package submission

import (
	"context"
	"fmt"

	"github.com/muhtarbag/fenomen-pet/internal/feed"
	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, types ...feed.EventType) (feed.Stream, error)
}

// Notification is a one-shot notice that a submission changed status.
type Notification struct {
	SubmissionID int64                  `json:"submission_id"`
	Status       store.SubmissionStatus `json:"status"`
	Message      string                 `json:"message"`
}

// Maintainer keeps the submission cache in step with the change feed for
// as long as Run's context lives.
type Maintainer struct {
	feed   ChangeFeed
	cache  *Cache
	notify func(Notification)
}

func NewMaintainer(f ChangeFeed, cache *Cache, notify func(Notification)) *Maintainer {
	return &Maintainer{feed: f, cache: cache, notify: notify}
}

// Run blocks until ctx ends or the feed closes. The subscription is
// released on return.
func (m *Maintainer) Run(ctx context.Context) error {
	stream, err := m.feed.Subscribe(ctx, store.SubmissionsTable)
	if err != nil {
		return fmt.Errorf("subscribe submissions: %w", err)
	}
	defer stream.Close()

	logs.LogJSON("INFO", "Submission feed subscribed", nil)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-stream.Events():
			if !ok {
				logs.LogJSON("WARN", "Submission feed closed", nil)
				return nil
			}
			m.Apply(ev)
		}
	}
}

// Apply folds one change event into the cache. Deletes patch the list in
// place, anything else marks it stale.
func (m *Maintainer) Apply(ev feed.Event) {
	switch ev.Type {
	case feed.EventDelete:
		if ev.Old != nil && m.cache != nil {
			m.cache.RemovePredicate(SubmissionsKey, byID(ev.Old.ID))
		}
	case feed.EventInsert, feed.EventUpdate:
		if m.cache != nil {
			m.cache.Invalidate(SubmissionsKey)
		}
	default:
		logs.LogJSON("DEBUG", "Ignoring unknown feed event", map[string]interface{}{
			"type": ev.Type,
		})
		return
	}

	if ev.StatusChanged() && m.notify != nil {
		m.notify(notificationFor(ev))
	}
}

func notificationFor(ev feed.Event) Notification {
	status := store.StatusPending
	if ev.New.Status != nil {
		status = store.SubmissionStatus(*ev.New.Status)
	}
	n := Notification{SubmissionID: ev.New.ID, Status: status}
	switch status {
	case store.StatusApproved:
		n.Message = msgApproved
	case store.StatusRejected:
		n.Message = msgRejected
	default:
		n.Message = msgPending
	}
	return n
}
