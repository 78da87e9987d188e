// Package events publishes batch progress to NATS so other processes can
// follow a run.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
)

const (
	EventProgress = "progress"
	EventItem     = "item"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Event is the payload published for every batch event.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RunID     string          `json:"run_id,omitempty"`
	Time      time.Time       `json:"time"`
	Data      json.RawMessage `json:"data"`
}

// Options configures the NATS connection.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int           // default 5
	ReconnectWait time.Duration // default 2s
}

// Connect dials NATS and fails fast when the server is unreachable.
func Connect(opts Options) (*nats.Conn, error) {
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = 5
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "autolink"
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "events: nats connect %s (max_reconnects=%d, wait=%s)",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait)
	}
	return nc, nil
}

// Publisher forwards batch events to <prefix>.progress and <prefix>.item. It
// satisfies the reconcile observer contract. A Publisher with no connection
// only logs.
type Publisher struct {
	conn   Conn
	prefix string
	runID  string
}

// NewPublisher publishes on conn under prefix. conn may be nil.
func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "autolink"
	}
	return &Publisher{conn: conn, prefix: prefix}
}

// ForRun returns a publisher that tags every event with runID.
func (p *Publisher) ForRun(runID string) *Publisher {
	cp := *p
	cp.runID = runID
	return &cp
}

// Subject returns the subject an event type is published on.
func (p *Publisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *Publisher) OnSnapshot(snap model.ProgressSnapshot) {
	p.publish(EventProgress, progressPayload(snap))
}

func (p *Publisher) OnItem(item model.BatchItemState) {
	p.publish(EventItem, item)
}

func (p *Publisher) publish(eventType string, data any) {
	subject := p.Subject(eventType)
	if p.conn == nil {
		zap.L().Debug("events: no connection, skipping publish", zap.String("subject", subject))
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		zap.L().Warn("events: marshal payload", zap.String("subject", subject), zap.Error(err))
		return
	}
	evt := Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RunID:     p.runID,
		Time:      time.Now().UTC(),
		Data:      raw,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		zap.L().Warn("events: marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, body); err != nil {
		zap.L().Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Progress is the wire form of a snapshot, with derived fields filled in.
type Progress struct {
	model.ProgressSnapshot
	Percent float64 `json:"percent"`
	ETA     string  `json:"eta"`
}

func progressPayload(snap model.ProgressSnapshot) Progress {
	return Progress{ProgressSnapshot: snap, Percent: snap.Percent(), ETA: snap.ETA().String()}
}
