package orders

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/backoffice-console/backoffice/internal/products"
)

// Resource is the REST collection for orders.
const Resource = "/orders"

// Order represents an order as returned by the API.
type Order struct {
	ID        string       `json:"_id"`
	Total     float64      `json:"total"`
	OrderDate string       `json:"orderDate"`
	Products  []ProductRef `json:"products"`
}

// UnmarshalJSON accepts the identifier under either "_id" or "id".
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.plain)
	if o.ID == "" {
		o.ID = raw.AltID
	}
	return nil
}

// ProductRef is one entry of an order's product list: either a bare id or an embedded product.
type ProductRef struct {
	ID       string
	Embedded *products.Product
}

// RefID returns the referenced product id regardless of representation.
func (r ProductRef) RefID() string {
	if r.Embedded != nil && r.Embedded.ID != "" {
		return r.Embedded.ID
	}
	return r.ID
}

// Label is a human readable name for the reference.
func (r ProductRef) Label() string {
	if r.Embedded != nil && r.Embedded.Name != "" {
		return r.Embedded.Name
	}
	return r.RefID()
}

// UnmarshalJSON decodes a JSON string id or a product object.
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ProductRef{ID: id}
		return nil
	case '{':
		var p products.Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*r = ProductRef{ID: p.ID, Embedded: &p}
		return nil
	default:
		return fmt.Errorf("orders: product reference must be a string or object, got %s", data)
	}
}

// MarshalJSON writes the embedded product when present, otherwise the bare id.
func (r ProductRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID)
}

// ProductIDs reduces references to bare ids, preserving order.
func ProductIDs(refs []ProductRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id := ref.RefID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
