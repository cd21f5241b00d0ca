package products

import (
	"encoding/json"
	"fmt"

	"github.com/backoffice-console/backoffice/internal/categories"
)

// Resource is the REST collection for products.
const Resource = "/products"

// Product represents a product as returned by the API, with its category embedded.
type Product struct {
	ID       string              `json:"_id"`
	Name     string              `json:"name"`
	Price    float64             `json:"price"`
	Category categories.Category `json:"category"`
	ImageURL string              `json:"imageUrl,omitempty"`
}

// UnmarshalJSON accepts "_id" or "id", and a category given either embedded or as a bare id.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"_id"`
		AltID    string          `json:"id"`
		Name     string          `json:"name"`
		Price    float64         `json:"price"`
		Category json.RawMessage `json:"category"`
		ImageURL string          `json:"imageUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product{ID: raw.ID, Name: raw.Name, Price: raw.Price, ImageURL: raw.ImageURL}
	if p.ID == "" {
		p.ID = raw.AltID
	}
	if len(raw.Category) == 0 || string(raw.Category) == "null" {
		return nil
	}
	if raw.Category[0] == '"' {
		var id string
		if err := json.Unmarshal(raw.Category, &id); err != nil {
			return fmt.Errorf("products: category id: %w", err)
		}
		p.Category = categories.Category{ID: id}
		return nil
	}
	if err := json.Unmarshal(raw.Category, &p.Category); err != nil {
		return fmt.Errorf("products: category: %w", err)
	}
	return nil
}
