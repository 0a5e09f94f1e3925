package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "staysync/internal/app/outbox"
	infraoutbox "staysync/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// OutboxStore keeps outbox records in memory, serving both the application
// write side and the delivery worker. Add dedupes on record id, which makes a
// command retry converge on the same stored event.
type OutboxStore struct {
	mu    sync.Mutex
	docs  map[string]*infraoutbox.EventDocument
	order []string
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{docs: make(map[string]*infraoutbox.EventDocument)}
}

func (o *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.docs[record.ID]; exists {
		return nil
	}
	now := time.Now().UTC()
	o.docs[record.ID] = &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
	}
	o.order = append(o.order, record.ID)
	return nil
}

func (o *OutboxStore) Flush(ctx context.Context) error {
	return nil
}

// Claim hands the oldest due record to the worker.
func (o *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range o.order {
		doc := o.docs[id]
		if doc.State != stateNew && doc.State != stateFailed {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = stateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (o *OutboxStore) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if doc, ok := o.docs[id]; ok {
		doc.State = stateSent
		doc.SentAt = time.Now().UTC()
	}
	return nil
}

func (o *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if doc, ok := o.docs[id]; ok {
		doc.State = stateFailed
		doc.NextAttempt = next
		doc.LastError = errMsg
		doc.Attempts++
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
