package storage

import (
	"context"
	"fmt"

	"github.com/asset-tokenizer/internal/models"
)

// EventSink appends investment events to ClickHouse for audit and analytics.
type EventSink struct {
	db *ClickHouseDB
}

// NewEventSink creates a new ClickHouse-backed event sink
func NewEventSink(db *ClickHouseDB) *EventSink {
	return &EventSink{db: db}
}

// Append writes a single investment event. Amounts are stored as strings to
// preserve decimal precision.
func (s *EventSink) Append(ctx context.Context, ev *models.InvestmentEvent) error {
	query := `
		INSERT INTO investment_events (event_type, account, token_id, amount, units, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.db.Exec(ctx, query,
		ev.EventType, ev.Account, ev.TokenID,
		ev.Amount.String(), ev.Units.String(), ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append %s event: %w", ev.EventType, err)
	}

	return nil
}
