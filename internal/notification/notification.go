// Package notification hands outcome messages to an asynchronous transport.
//
// Emitters are best-effort. Callers invoke Notify after their transaction has
// committed; a failed publish is logged and counted but never reported back.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/metrics"
)

// Emitter enqueues one envelope on a transport.
type Emitter interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// Notifier is what the services depend on.
type Notifier interface {
	Notify(ctx context.Context, email string, typ domain.NotificationType, message string)
}

type Dispatcher struct {
	emitter Emitter
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDispatcher(emitter Emitter, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		emitter: emitter,
		timeout: timeout,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Notify builds an envelope and enqueues it. The publish is detached from ctx
// cancellation so a client hanging up after commit does not drop the message,
// and is bounded by the dispatcher timeout.
func (d *Dispatcher) Notify(ctx context.Context, email string, typ domain.NotificationType, message string) {
	n := domain.Notification{
		ID:         uuid.NewString(),
		Email:      email,
		Type:       typ,
		Message:    message,
		OccurredAt: d.now(),
	}

	pubCtx := context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(pubCtx, d.timeout)
		defer cancel()
	}

	if err := d.emitter.Enqueue(pubCtx, n); err != nil {
		log.Printf("notification: failed to enqueue %s for %s: %v", typ, email, err)
		d.metrics.Notification(string(typ), "failed")
		return
	}
	d.metrics.Notification(string(typ), "sent")
}

// Decode parses an envelope read from a transport.
func Decode(data []byte) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.Email == "" || n.Type == "" {
		return n, fmt.Errorf("decode notification: %w", domain.NewValidationError("envelope", "email and type are required"))
	}
	return n, nil
}

// LogEmitter writes envelopes to the process log. Used when no broker is configured.
type LogEmitter struct{}

func (LogEmitter) Enqueue(_ context.Context, n domain.Notification) error {
	log.Printf("notification: %s to %s: %s", n.Type, n.Email, n.Message)
	return nil
}
