package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
)

// RedisFeed fans change events out over Redis pub/sub, one channel per
// table. Reconnection after a dropped connection is left to go-redis.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "realtime"
	}
	return &RedisFeed{client: client, prefix: prefix}
}

func (f *RedisFeed) channel(table string) string {
	return f.prefix + ":" + table
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	if ev.Table == "" {
		return errors.New("feed: event table required")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("feed: encode event: %w", err)
	}
	return f.client.Publish(ctx, f.channel(ev.Table), payload).Err()
}

// Subscribe opens a subscription on table. When types is non-empty only
// those event types are delivered.
func (f *RedisFeed) Subscribe(ctx context.Context, table string, types ...EventType) (Stream, error) {
	ps := f.client.Subscribe(ctx, f.channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("feed: subscribe %s: %w", table, err)
	}

	sub := &subscription{
		pubsub: ps,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		filter: make(map[EventType]bool, len(types)),
	}
	for _, t := range types {
		sub.filter[t] = true
	}
	go sub.pump(ps.Channel())
	return sub, nil
}

type subscription struct {
	pubsub    *redis.PubSub
	events    chan Event
	done      chan struct{}
	filter    map[EventType]bool
	closeOnce sync.Once
	closeErr  error
}

func (s *subscription) Events() <-chan Event {
	return s.events
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

func (s *subscription) pump(messages <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logs.LogJSON("WARN", "Dropping malformed realtime payload", map[string]interface{}{
					"error":   err,
					"channel": msg.Channel,
				})
				continue
			}
			if len(s.filter) > 0 && !s.filter[ev.Type] {
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}
