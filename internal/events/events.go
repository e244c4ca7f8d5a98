// Package events describes work order changes and hands them to the sinks
// that observe them: connected sessions, the search index and the outbound feed.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/metrics"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

// Kind is the realtime event name of a change
type Kind string

const (
	WorkOrderCreated Kind = "wo_created"
	WorkOrderUpdated Kind = "wo_updated"
	WorkOrderDeleted Kind = "wo_deleted"
	StatusUpdated    Kind = "status_updated"
)

// Valid reports whether k is one of the relayable event kinds
func (k Kind) Valid() bool {
	switch k {
	case WorkOrderCreated, WorkOrderUpdated, WorkOrderDeleted, StatusUpdated:
		return true
	}
	return false
}

// IsDelete reports whether the change removed the row
func (k Kind) IsDelete() bool {
	return k == WorkOrderDeleted
}

// Change is one committed mutation of one row
type Change struct {
	Kind Kind
	ID   uint
	Row  *models.WorkOrder // nil when deleted
	At   time.Time
}

// Created builds the change for a new row
func Created(row *models.WorkOrder) Change {
	return Change{Kind: WorkOrderCreated, ID: row.ID, Row: row, At: row.UpdatedAt}
}

// Updated builds an update change of the given kind
func Updated(kind Kind, row *models.WorkOrder) Change {
	return Change{Kind: kind, ID: row.ID, Row: row, At: row.UpdatedAt}
}

// Deleted builds the change for a removed row
func Deleted(id uint, at time.Time) Change {
	return Change{Kind: WorkOrderDeleted, ID: id, At: at}
}

type deletedPayload struct {
	ID models.RowID `json:"id"`
}

// Payload is the data carried on the wire: the full row, or only its id
func (c Change) Payload() interface{} {
	if c.Kind.IsDelete() || c.Row == nil {
		return deletedPayload{ID: models.RealID(c.ID)}
	}
	return c.Row
}

// Envelope is the realtime message shape in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode renders the change as an envelope
func (c Change) Encode() ([]byte, error) {
	data, err := json.Marshal(c.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: string(c.Kind), Data: data})
}

// Publisher receives committed changes
type Publisher interface {
	Publish(ctx context.Context, changes ...Change)
}

// Sink is one observer of committed changes
type Sink interface {
	Name() string
	Deliver(ctx context.Context, change Change) error
}

// Fanout hands every change to each sink in order. A failing sink is logged
// and counted; it never fails the mutation that produced the change.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a publisher over sinks; nil sinks are skipped
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish delivers changes to every sink
func (f *Fanout) Publish(ctx context.Context, changes ...Change) {
	for _, change := range changes {
		for _, sink := range f.sinks {
			if err := sink.Deliver(ctx, change); err != nil {
				metrics.SinkFailed(sink.Name())
				log.Error().Err(err).
					Str("sink", sink.Name()).
					Str("event", string(change.Kind)).
					Uint("work_order_id", change.ID).
					Msg("failed to deliver change")
			}
		}
	}
}

// Nop discards every change
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, ...Change) {}
