package orders

import (
	"strconv"
	"strings"

	"github.com/backoffice-console/backoffice/internal/records"
)

const dateLayout = "2006-01-02"

// Draft is the editable copy of an order. ProductIDs always holds bare ids.
type Draft struct {
	Total      float64  `json:"total" validate:"gte=0"`
	OrderDate  string   `json:"orderDate" validate:"omitempty,datetime=2006-01-02"`
	ProductIDs []string `json:"productIds" validate:"dive,required"`
}

// Payload is the wire body for create and update.
type Payload struct {
	Total     float64  `json:"total"`
	OrderDate string   `json:"orderDate"`
	Products  []string `json:"products"`
}

// Entity implements records.Entity for orders.
type Entity struct{}

// Manager is the record manager for the orders page.
type Manager = records.Manager[Order, Draft]

// State is the serialisable orders page state.
type State = records.State[Order, Draft]

// NewManager builds an orders manager.
func NewManager(api records.API, opts ...records.Option) *Manager {
	return records.NewManager[Order, Draft](api, Entity{}, opts...)
}

// Resource returns the API collection path.
func (Entity) Resource() string { return Resource }

// RecordID returns the server id of an order.
func (Entity) RecordID(o Order) string { return o.ID }

// NewDraft returns the draft for a new order.
func (Entity) NewDraft() Draft {
	return Draft{ProductIDs: []string{}}
}

// DraftFrom copies a stored order into an editable draft.
func (Entity) DraftFrom(o Order) Draft {
	return Draft{
		Total:      o.Total,
		OrderDate:  datePart(o.OrderDate),
		ProductIDs: ProductIDs(o.Products),
	}
}

// SetField writes one form value into the draft. Slices are replaced rather than
// mutated so drafts never share backing arrays.
func (Entity) SetField(d *Draft, name, value string) error {
	switch name {
	case "total":
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			d.Total = 0
			return nil
		}
		total, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return records.FieldError(name, value, err)
		}
		d.Total = total
	case "orderDate":
		d.OrderDate = strings.TrimSpace(value)
	case "productIds":
		d.ProductIDs = SplitIDs(value)
	default:
		return records.UnknownField(name)
	}
	return nil
}

// Payload builds the create or update request body.
func (Entity) Payload(d Draft) any {
	ids := make([]string, len(d.ProductIDs))
	copy(ids, d.ProductIDs)
	return Payload{Total: d.Total, OrderDate: d.OrderDate, Products: ids}
}

// SplitIDs parses a comma separated id list, trimming blanks and keeping order.
func SplitIDs(value string) []string {
	parts := strings.Split(value, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func datePart(value string) string {
	if len(value) >= len(dateLayout) {
		return value[:len(dateLayout)]
	}
	return value
}

// Fields lists the draft fields accepted from the edit form.
var Fields = []string{"total", "orderDate", "productIds"}
