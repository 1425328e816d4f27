package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/repository"
)

// Auditor writes auth audit events to the outbox table. When called with a
// transaction the event commits or rolls back with the mutation it describes.
type Auditor struct {
	outbox repository.OutboxRepository
	now    func() time.Time
}

// NewAuditor creates an Auditor.
func NewAuditor(outbox repository.OutboxRepository) *Auditor {
	return &Auditor{outbox: outbox, now: time.Now}
}

// Record writes one audit event.
func (a *Auditor) Record(ctx context.Context, db repository.DBTX, agg domain.AggregateType, aggID string, evt domain.EventType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	return a.outbox.Insert(ctx, db, domain.OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   aggID,
		EventType:     evt,
		PartitionKey:  string(agg) + ":" + aggID,
		Payload:       raw,
		OccurredAt:    a.now(),
	})
}
