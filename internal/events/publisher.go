// Package events forwards confirmed like writes to RabbitMQ for downstream
// consumers. Publishing is optional: a nil *Publisher drops every message.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
)

const DefaultQueue = "like.queue"

const TypeLikeToggled = "like.toggled"

type LikeToggled struct {
	Type         string    `json:"type"`
	SubmissionID int64     `json:"submission_id"`
	Viewer       string    `json:"viewer"`
	Anonymous    bool      `json:"anonymous"`
	Liked        bool      `json:"liked"`
	LikeCount    int       `json:"like_count"`
	At           time.Time `json:"at"`
}

// redialBackoff is the minimum gap between failed dials.
const redialBackoff = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one connection and channel pair. closed fires when the broker
// or the library shuts the channel down.
type session struct {
	conn   io.Closer
	ch     amqpChannel
	closed <-chan *amqp.Error
}

func (s *session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *session) close() error {
	err := s.ch.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

type dialFunc func(url, queue string) (*session, error)

// Publisher sends like events on a durable queue. A dropped channel is
// replaced on the next publish.
type Publisher struct {
	mu       sync.Mutex
	url      string
	queue    string
	dial     dialFunc
	sess     *session
	nextDial time.Time
}

// Dial connects and declares a durable queue. An empty url disables
// publishing and returns a nil Publisher.
func Dial(url, queue string) (*Publisher, error) {
	if url == "" {
		logs.LogJSON("INFO", "RabbitMQ url empty, like events disabled", nil)
		return nil, nil
	}
	if queue == "" {
		queue = DefaultQueue
	}

	p := &Publisher{url: url, queue: queue, dial: dialSession}
	sess, err := p.dial(url, queue)
	if err != nil {
		return nil, err
	}
	p.sess = sess

	logs.LogJSON("INFO", "RabbitMQ initialized", map[string]interface{}{"queue": queue})
	return p, nil
}

func dialSession(url, queue string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq declare %s: %w", queue, err)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	return &session{conn: conn, ch: ch, closed: closed}, nil
}

// channel returns a live channel, redialing when the current one is gone.
// Callers hold p.mu.
func (p *Publisher) channel() (amqpChannel, error) {
	if p.sess != nil && !p.sess.isClosed() {
		return p.sess.ch, nil
	}
	if p.sess != nil {
		logs.LogJSON("WARN", "RabbitMQ channel closed, redialing", map[string]interface{}{"queue": p.queue})
		_ = p.sess.close()
		p.sess = nil
	}
	if now := time.Now(); now.Before(p.nextDial) {
		return nil, fmt.Errorf("rabbitmq unavailable, next dial in %s", p.nextDial.Sub(now).Round(time.Millisecond))
	}

	sess, err := p.dial(p.url, p.queue)
	if err != nil {
		p.nextDial = time.Now().Add(redialBackoff)
		return nil, err
	}
	p.sess = sess
	logs.LogJSON("INFO", "RabbitMQ reconnected", map[string]interface{}{"queue": p.queue})
	return sess.ch, nil
}

func encode(ev LikeToggled) ([]byte, error) {
	ev.Type = TypeLikeToggled
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}

func (p *Publisher) PublishLikeToggled(ctx context.Context, ev LikeToggled) error {
	if p == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         TypeLikeToggled,
		Body:         body,
	})
	if err != nil {
		_ = p.sess.close()
		p.sess = nil
	}
	return err
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil
	}
	err := p.sess.close()
	p.sess = nil
	return err
}
