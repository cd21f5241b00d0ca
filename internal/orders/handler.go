package orders

import (
	"context"
	"log/slog"

	"github.com/backoffice-console/backoffice/internal/console"
	"github.com/backoffice-console/backoffice/internal/products"
	"github.com/backoffice-console/backoffice/internal/records"
)

// NewPage builds the orders page. The product catalogue labels bare product ids.
func NewPage(api records.API, deps console.Deps, opts ...records.Option) *console.Page[Order, Draft] {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return console.NewPage(console.Config[Order, Draft]{
		Name:     "orders",
		Title:    "Orders",
		Singular: "Order",
		Template: "pages/orders.html",
		Fields:   Fields,
		NewManager: func() *Manager {
			return NewManager(api, opts...)
		},
		Extras: func(ctx context.Context) map[string]any {
			catalogue := []products.Product{}
			if err := api.Get(ctx, products.Resource, &catalogue); err != nil {
				logger.WarnContext(ctx, "load product catalogue", slog.Any("error", err))
				catalogue = []products.Product{}
			}
			names := make(map[string]string, len(catalogue))
			for _, p := range catalogue {
				names[p.ID] = p.Name
			}
			return map[string]any{"Products": catalogue, "ProductNames": names}
		},
	}, deps)
}
