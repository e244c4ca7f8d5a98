package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

// DeliveryNoteInput is the surat jalan request body
type DeliveryNoteInput struct {
	Type        string          `json:"type"`
	InvoiceRef  string          `json:"invoice_ref"`
	Destination string          `json:"destination"`
	Items       json.RawMessage `json:"items"`
	Note        string          `json:"note"`
}

// DeliveryNoteResult is the stored note and the rows it moved into colouring
type DeliveryNoteResult struct {
	Note    *models.DeliveryNote `json:"note"`
	Updated []models.WorkOrder   `json:"updated"`
}

type deliveryItemInput struct {
	ID       interface{}        `json:"id"`
	Quantity *models.NumberLike `json:"qty"`
}

// DeliveryNoteService creates delivery notes
type DeliveryNoteService struct {
	notes     repositories.DeliveryNoteRepository
	publisher events.Publisher
	tracer    tracing.Tracer
	now       func() time.Time
}

// NewDeliveryNoteService creates a new delivery note service
func NewDeliveryNoteService(notes repositories.DeliveryNoteRepository, publisher events.Publisher, tracer tracing.Tracer) *DeliveryNoteService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &DeliveryNoteService{
		notes:     notes,
		publisher: publisher,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Create stores the note and sets in-coloring on every referenced row in one
// transaction. Nothing is published unless the transaction commits.
func (s *DeliveryNoteService) Create(ctx context.Context, in DeliveryNoteInput) (*DeliveryNoteResult, error) {
	defer s.tracer.StartSegment(ctx, "delivery_notes.create").End()

	noteType := models.DeliveryNoteType(strings.ToLower(strings.TrimSpace(in.Type)))
	if noteType == "" {
		return nil, apperrors.InvalidRequest("type is required")
	}
	if !noteType.Valid() {
		return nil, apperrors.InvalidRequest("type must be %q or %q", models.DeliveryToVendor, models.DeliveryToCustomer)
	}

	items, ids, err := parseDeliveryItems(in.Items)
	if err != nil {
		return nil, err
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, apperrors.InvalidRequest("items could not be encoded")
	}

	note := &models.DeliveryNote{
		Type:        noteType,
		Number:      noteType.ReferenceNumber(s.now()),
		InvoiceRef:  strings.TrimSpace(in.InvoiceRef),
		Destination: strings.TrimSpace(in.Destination),
		Items:       datatypes.JSON(itemsJSON),
		Note:        in.Note,
	}

	updated, err := s.notes.CreateWithFlag(ctx, note, ids, models.FlagInColoring)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("number", note.Number).
		Str("type", string(noteType)).
		Int("items", len(items)).
		Int("updated", len(updated)).
		Msg("delivery note created")

	s.publisher.Publish(ctx, updatedChanges(updated)...)
	return &DeliveryNoteResult{Note: note, Updated: updated}, nil
}

// parseDeliveryItems requires a JSON array of item objects. Items whose id
// does not name a persisted row are kept on the note without touching a row.
func parseDeliveryItems(raw json.RawMessage) ([]models.DeliveryItem, []uint, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, apperrors.InvalidRequest("items must be a list")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, nil, apperrors.InvalidRequest("items must be a list")
	}

	items := make([]models.DeliveryItem, 0, len(elems))
	seen := make(map[uint]bool)
	ids := make([]uint, 0, len(elems))

	for i, elem := range elems {
		var in deliveryItemInput
		if err := json.Unmarshal(elem, &in); err != nil {
			return nil, nil, apperrors.InvalidRequest("items[%d] is not a valid item", i)
		}

		item := models.DeliveryItem{Ref: refString(in.ID)}
		if in.Quantity != nil && !in.Quantity.Null {
			q := in.Quantity.Value
			item.Quantity = &q
		}
		if id, ok := parseID(in.ID); ok {
			item.WorkOrderID = &id
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		items = append(items, item)
	}

	return items, ids, nil
}
