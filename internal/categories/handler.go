package categories

import (
	"github.com/backoffice-console/backoffice/internal/console"
	"github.com/backoffice-console/backoffice/internal/records"
)

// NewPage builds the categories page.
func NewPage(api records.API, deps console.Deps, opts ...records.Option) *console.Page[Category, Draft] {
	return console.NewPage(console.Config[Category, Draft]{
		Name:     "categories",
		Title:    "Categories",
		Singular: "Category",
		Template: "pages/categories.html",
		Fields:   Fields,
		NewManager: func() *Manager {
			return NewManager(api, opts...)
		},
	}, deps)
}
