package categories

import "github.com/backoffice-console/backoffice/internal/records"

// Draft is the editable copy of a category.
type Draft struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Payload is the wire body for create and update.
type Payload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Entity implements records.Entity for categories.
type Entity struct{}

// Manager is the record manager for the categories page.
type Manager = records.Manager[Category, Draft]

// State is the serialisable categories page state.
type State = records.State[Category, Draft]

// NewManager builds a categories manager.
func NewManager(api records.API, opts ...records.Option) *Manager {
	return records.NewManager[Category, Draft](api, Entity{}, opts...)
}

// Resource returns the API collection path.
func (Entity) Resource() string { return Resource }

// RecordID returns the server id of a category.
func (Entity) RecordID(c Category) string { return c.ID }

// NewDraft returns the draft for a new category.
func (Entity) NewDraft() Draft { return Draft{} }

// DraftFrom copies a stored category into an editable draft.
func (Entity) DraftFrom(c Category) Draft {
	return Draft{Name: c.Name, Description: c.Description}
}

// SetField writes one form value into the draft.
func (Entity) SetField(d *Draft, name, value string) error {
	switch name {
	case "name":
		d.Name = value
	case "description":
		d.Description = value
	default:
		return records.UnknownField(name)
	}
	return nil
}

// Payload builds the create or update request body.
func (Entity) Payload(d Draft) any {
	return Payload{Name: d.Name, Description: d.Description}
}

// Fields lists the draft fields accepted from the edit form.
var Fields = []string{"name", "description"}
