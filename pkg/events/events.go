package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/bistro-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
}

// DurableSubscriber delivers stream-backed messages at least once. A nil
// handler result acks the message; an error schedules redelivery.
type DurableSubscriber interface {
	DurableQueueSubscribe(subject, durable string, handler func(msg *Message) error) error
}

type EventBus interface {
	Publisher
	Subscriber
	DurableSubscriber
	Close() error
}

var ErrStreamNotEnabled = errors.New("jetstream stream not enabled")

const redeliveryDelay = 30 * time.Second

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn

	mu      sync.RWMutex
	js      nats.JetStreamContext
	durable map[string]bool
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("bistro-api"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn, durable: make(map[string]bool)}, nil
}

// EnableStream creates or updates a file-backed work-queue stream over
// subjects. From then on publishes to those subjects return only once the
// server has stored the message.
func (n *NATSEventBus) EnableStream(name string, subjects ...string) error {
	js, err := n.conn.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	}
	_, err = js.StreamInfo(name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = js.AddStream(cfg)
	case err == nil:
		_, err = js.UpdateStream(cfg)
	}
	if err != nil {
		return fmt.Errorf("stream %s: %w", name, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.js = js
	for _, s := range subjects {
		n.durable[s] = true
	}
	return nil
}

func (n *NATSEventBus) stream(subject string) (nats.JetStreamContext, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.js, n.js != nil && n.durable[subject]
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	if js, ok := n.stream(subject); ok {
		if _, err := js.Publish(subject, payload, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		return nil
	}

	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	// Flush so a publish the caller depends on has reached the server.
	return n.conn.FlushTimeout(2 * time.Second)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

// DurableQueueSubscribe binds a durable consumer named durable to a subject
// enabled with EnableStream. Unacked messages survive restarts and are
// redelivered to whichever replica is attached.
func (n *NATSEventBus) DurableQueueSubscribe(subject, durable string, handler func(msg *Message) error) error {
	js, ok := n.stream(subject)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotEnabled, subject)
	}
	_, err := js.QueueSubscribe(subject, durable, func(msg *nats.Msg) {
		settle(msg, handler(toMessage(msg)))
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckWait(time.Minute),
		nats.DeliverAll(),
	)
	return err
}

type acker interface {
	Ack(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
}

func settle(msg acker, handlerErr error) {
	var err error
	if handlerErr != nil {
		err = msg.NakWithDelay(redeliveryDelay)
	} else {
		err = msg.Ack()
	}
	if err != nil {
		logger.Warn("failed to settle message", "error", err)
	}
}

// Drain lets in-flight handlers finish before the connection closes.
func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func toMessage(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

const (
	PaymentIntentCreated = "payment.intent.created"
	PaymentCompleted     = "payment.completed"
	CartCleanupRequested = "cart.cleanup.requested"

	CartCleanupStream = "CART_CLEANUP"
)

type PaymentIntentCreatedEvent struct {
	IntentID string    `json:"intent_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	At       time.Time `json:"at"`
}

type PaymentCompletedEvent struct {
	PaymentID     string    `json:"payment_id"`
	Email         string    `json:"email"`
	Price         float64   `json:"price"`
	TransactionID string    `json:"transaction_id"`
	ItemCount     int       `json:"item_count"`
	PaidAt        time.Time `json:"paid_at"`
}

type CartCleanupRequestedEvent struct {
	PaymentID string    `json:"payment_id"`
	Email     string    `json:"email"`
	CartIDs   []string  `json:"cart_ids"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}
