package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"growermarket/internal/core/id"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/reconcile"
	"growermarket/internal/domain/stockrequest"
)

// OutboxMessage is an event recorded in the same transaction as the state
// change that produced it.
type OutboxMessage struct {
	ID            id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Outbox implements stockrequest.EventPublisher.
type Outbox struct {
	store *Store
}

var _ stockrequest.EventPublisher = (*Outbox)(nil)

// NewOutbox creates an outbox over s.
func NewOutbox(s *Store) *Outbox {
	return &Outbox{store: s}
}

// PublishProcessed implements stockrequest.EventPublisher.
func (o *Outbox) PublishProcessed(ctx context.Context, event stockrequest.ProcessedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return o.store.exec(ctx, func(t *tables) error {
		t.outbox = append(t.outbox, OutboxMessage{
			ID:            id.New(),
			AggregateType: "stock_request",
			AggregateID:   event.RequestID,
			EventType:     stockrequest.EventTypeProcessed,
			Payload:       payload,
			CreatedAt:     time.Now().UTC(),
		})
		return nil
	})
}

// AuditEntry is a reconciliation audit record.
type AuditEntry struct {
	Report  reconcile.Report
	Removed []ledger.GrowerPriceRecord
}

// AuditLog implements reconcile.AuditLog.
type AuditLog struct {
	store *Store
}

var _ reconcile.AuditLog = (*AuditLog)(nil)

// NewAuditLog creates an audit log over s.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{store: s}
}

// RecordReconciliation implements reconcile.AuditLog.
func (a *AuditLog) RecordReconciliation(ctx context.Context, report reconcile.Report, removed []ledger.GrowerPriceRecord) error {
	return a.store.exec(ctx, func(t *tables) error {
		t.audit = append(t.audit, AuditEntry{
			Report:  report,
			Removed: append([]ledger.GrowerPriceRecord(nil), removed...),
		})
		return nil
	})
}
