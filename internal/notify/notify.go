// Package notify delivers best-effort notifications on terminal work
// unit outcomes. Delivery is fire-and-forget: a failed or slow webhook
// never affects unit state or blocks the processor.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
)

const defaultTimeout = 5 * time.Second

// Message is the webhook payload.
type Message struct {
	UnitID    string    `json:"unit_id"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts outcome messages to a webhook URL.
type Notifier struct {
	url     string
	client  *http.Client
	logger  *logging.Logger
	timeout time.Duration
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client. For tests.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithTimeout bounds one delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.timeout = d }
}

// New creates a Notifier posting to the given webhook URL. An empty
// URL disables delivery.
func New(url string, logger *logging.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		url:     url,
		client:  &http.Client{},
		logger:  logger.WithComponent("notify"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SubscribeTo wires the notifier to the bus's terminal outcome events.
func (n *Notifier) SubscribeTo(bus *event.Bus) {
	bus.Subscribe("unit.resolved", func(e event.Event) {
		ev := e.(event.UnitResolvedEvent)
		n.deliver(Message{UnitID: ev.UnitID, Outcome: "resolved", Detail: ev.ChangeRequestURL, Timestamp: e.Timestamp()})
	})
	bus.Subscribe("unit.failed", func(e event.Event) {
		ev := e.(event.UnitFailedEvent)
		n.deliver(Message{UnitID: ev.UnitID, Outcome: "failed", Detail: ev.Reason, Timestamp: e.Timestamp()})
	})
	bus.Subscribe("unit.skipped", func(e event.Event) {
		ev := e.(event.UnitSkippedEvent)
		n.deliver(Message{UnitID: ev.UnitID, Outcome: "skipped", Detail: ev.Reason, Timestamp: e.Timestamp()})
	})
}

// deliver posts the message in the background. Errors are logged and
// dropped.
func (n *Notifier) deliver(msg Message) {
	if n.url == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		body, err := json.Marshal(msg)
		if err != nil {
			n.logger.Warn("encoding notification", "unit_id", msg.UnitID, "error", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("building notification request", "unit_id", msg.UnitID, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			n.logger.Warn("notification delivery failed", "unit_id", msg.UnitID, "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			n.logger.Warn("notification rejected",
				"unit_id", msg.UnitID, "status", resp.StatusCode)
		}
	}()
}
