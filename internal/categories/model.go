package categories

import "encoding/json"

// Resource is the REST collection for categories.
const Resource = "/categories"

// Category represents a product category as returned by the API.
type Category struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts the identifier under either "_id" or "id".
func (c *Category) UnmarshalJSON(data []byte) error {
	type plain Category
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category(raw.plain)
	if c.ID == "" {
		c.ID = raw.AltID
	}
	return nil
}
