package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// EventDocument is the persisted shape of one outbox record while it moves
// through delivery states.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// Store claims pending records for exclusive delivery and tracks outcomes.
type Store interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Sink receives claimed records. Sinks must tolerate redelivery: the record id
// is a stable per-event key, so repeated delivery of the same id is the same
// fact, not a new one.
type Sink interface {
	Deliver(ctx context.Context, doc *EventDocument) error
}

// Worker drains the outbox into the configured sinks. A record is marked sent
// only after every sink accepted it; otherwise it is rescheduled with backoff
// and the failure is logged for operators.
type Worker struct {
	Store    Store
	Sinks    []Sink
	Interval time.Duration
	ID       string
	Backoff  []time.Duration
	Logger   *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || len(w.Sinks) == 0 {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes the pending backlog, one claimed record at a time.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		doc, err := w.Store.Claim(ctx, w.workerID())
		if err != nil {
			w.warn("outbox claim failed", "error", err)
			return
		}
		if doc == nil {
			return
		}
		w.deliver(ctx, doc)
	}
}

func (w *Worker) deliver(ctx context.Context, doc *EventDocument) {
	for _, sink := range w.Sinks {
		if err := sink.Deliver(ctx, doc); err != nil {
			next := w.nextRetry(doc.Attempts)
			w.warn("outbox delivery failed",
				"event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1,
				"next_attempt", next, "error", err)
			if mErr := w.Store.MarkFailed(ctx, doc.ID, next, err.Error()); mErr != nil {
				w.warn("outbox mark failed", "event_id", doc.ID, "error", mErr)
			}
			return
		}
	}
	if err := w.Store.MarkSent(ctx, doc.ID); err != nil {
		w.warn("outbox mark sent failed", "event_id", doc.ID, "error", err)
	}
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) warn(msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.Warn(msg, args...)
	}
}
