package products

import (
	"strconv"
	"strings"

	"github.com/backoffice-console/backoffice/internal/records"
)

// Draft is the editable copy of a product. CategoryID is sent as "category" on the wire.
type Draft struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Price      float64 `json:"price" validate:"gte=0"`
	CategoryID string  `json:"categoryId"`
	ImageURL   string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// Payload is the wire body for create and update.
type Payload struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// Entity implements records.Entity for products.
type Entity struct{}

// Manager is the record manager for the products page.
type Manager = records.Manager[Product, Draft]

// State is the serialisable products page state.
type State = records.State[Product, Draft]

// NewManager builds a products manager.
func NewManager(api records.API, opts ...records.Option) *Manager {
	return records.NewManager[Product, Draft](api, Entity{}, opts...)
}

// Resource returns the API collection path.
func (Entity) Resource() string { return Resource }

// RecordID returns the server id of a product.
func (Entity) RecordID(p Product) string { return p.ID }

// NewDraft returns the draft for a new product.
func (Entity) NewDraft() Draft { return Draft{} }

// DraftFrom copies a stored product into an editable draft.
func (Entity) DraftFrom(p Product) Draft {
	return Draft{
		Name:       p.Name,
		Price:      p.Price,
		CategoryID: p.Category.ID,
		ImageURL:   p.ImageURL,
	}
}

// SetField writes one form value into the draft.
func (Entity) SetField(d *Draft, name, value string) error {
	switch name {
	case "name":
		d.Name = value
	case "price":
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			d.Price = 0
			return nil
		}
		price, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return records.FieldError(name, value, err)
		}
		d.Price = price
	case "categoryId":
		d.CategoryID = strings.TrimSpace(value)
	case "imageUrl":
		d.ImageURL = strings.TrimSpace(value)
	default:
		return records.UnknownField(name)
	}
	return nil
}

// Payload builds the create or update request body.
func (Entity) Payload(d Draft) any {
	return Payload{
		Name:     d.Name,
		Price:    d.Price,
		Category: d.CategoryID,
		ImageURL: d.ImageURL,
	}
}

// Fields lists the draft fields accepted from the edit form.
var Fields = []string{"name", "price", "categoryId", "imageUrl"}
