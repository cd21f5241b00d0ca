package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backoffice-console/backoffice/internal/categories"
	"github.com/backoffice-console/backoffice/internal/orders"
	"github.com/backoffice-console/backoffice/internal/products"
	"github.com/backoffice-console/backoffice/internal/records"
)

var entityNames = []string{"products", "categories", "orders"}

func resolveEntity(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "product", "products":
		return "products", nil
	case "category", "categories":
		return "categories", nil
	case "order", "orders":
		return "orders", nil
	}
	return "", fmt.Errorf("unknown entity %q (want %s)", raw, strings.Join(entityNames, ", "))
}

type productView struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Price    float64 `json:"price" yaml:"price"`
	Category string  `json:"category,omitempty" yaml:"category,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

type categoryView struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type orderView struct {
	ID        string   `json:"id" yaml:"id"`
	Total     float64  `json:"total" yaml:"total"`
	OrderDate string   `json:"orderDate" yaml:"orderDate"`
	Products  []string `json:"products" yaml:"products"`
}

type mutationResult struct {
	Entity string `json:"entity" yaml:"entity"`
	Action string `json:"action" yaml:"action"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "list <entity>",
		Short:     "List products, categories or orders",
		Args:      cobra.ExactArgs(1),
		ValidArgs: entityNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := resolveEntity(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			api := a.api()
			opts := []records.Option{records.WithReporter(records.LogReporter{Logger: a.logger})}
			out := cmd.OutOrStdout()

			switch entity {
			case "products":
				list, err := load(ctx, products.NewManager(api, opts...))
				if err != nil {
					return err
				}
				views := make([]productView, 0, len(list))
				t := table{header: []string{"ID", "NAME", "PRICE", "CATEGORY", "IMAGE"}}
				for _, p := range list {
					category := p.Category.Name
					if category == "" {
						category = p.Category.ID
					}
					views = append(views, productView{ID: p.ID, Name: p.Name, Price: p.Price, Category: category, ImageURL: p.ImageURL})
					t.rows = append(t.rows, []string{p.ID, p.Name, formatAmount(p.Price), category, p.ImageURL})
				}
				return render(out, a.format(), t, views)
			case "categories":
				list, err := load(ctx, categories.NewManager(api, opts...))
				if err != nil {
					return err
				}
				views := make([]categoryView, 0, len(list))
				t := table{header: []string{"ID", "NAME", "DESCRIPTION"}}
				for _, c := range list {
					views = append(views, categoryView(c))
					t.rows = append(t.rows, []string{c.ID, c.Name, c.Description})
				}
				return render(out, a.format(), t, views)
			default:
				list, err := load(ctx, orders.NewManager(api, opts...))
				if err != nil {
					return err
				}
				views := make([]orderView, 0, len(list))
				t := table{header: []string{"ID", "TOTAL", "DATE", "PRODUCTS"}}
				for _, o := range list {
					ids := orders.ProductIDs(o.Products)
					views = append(views, orderView{ID: o.ID, Total: o.Total, OrderDate: o.OrderDate, Products: ids})
					t.rows = append(t.rows, []string{o.ID, formatAmount(o.Total), o.OrderDate, strings.Join(ids, ",")})
				}
				return render(out, a.format(), t, views)
			}
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete one record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := resolveEntity(args[0])
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[1])
			ctx := cmd.Context()
			opts, err := a.managerOptions(ctx)
			if err != nil {
				return err
			}
			api := a.api()
			switch entity {
			case "products":
				err = remove(ctx, products.NewManager(api, opts...), id)
			case "categories":
				err = remove(ctx, categories.NewManager(api, opts...), id)
			default:
				err = remove(ctx, orders.NewManager(api, opts...), id)
			}
			if err != nil {
				return err
			}
			result := mutationResult{Entity: entity, Action: "deleted", ID: id}
			return render(cmd.OutOrStdout(), a.format(), table{
				header: []string{"ENTITY", "ACTION", "ID"},
				rows:   [][]string{{entity, result.Action, id}},
			}, result)
		},
	}
}

func (a *app) createCommand() *cobra.Command {
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
	}

	var name, description string
	category := &cobra.Command{
		Use:   "category",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts, err := a.managerOptions(ctx)
			if err != nil {
				return err
			}
			m := categories.NewManager(a.api(), opts...)
			if err := m.StartAdd(); err != nil {
				return err
			}
			fields := map[string]string{"name": name, "description": description}
			for _, field := range categories.Fields {
				if err := m.UpdateDraftField(field, fields[field]); err != nil {
					return err
				}
			}
			if err := m.Save(ctx); err != nil {
				return err
			}
			result := mutationResult{Entity: "categories", Action: "created", Name: name}
			for _, c := range m.List() {
				if c.Name == name {
					result.ID = c.ID
				}
			}
			return render(cmd.OutOrStdout(), a.format(), table{
				header: []string{"ENTITY", "ACTION", "ID", "NAME"},
				rows:   [][]string{{result.Entity, result.Action, result.ID, name}},
			}, result)
		},
	}
	category.Flags().StringVar(&name, "name", "", "category name")
	category.Flags().StringVar(&description, "description", "", "category description")
	_ = category.MarkFlagRequired("name")

	create.AddCommand(category)
	return create
}

func load[R any, D any](ctx context.Context, m *records.Manager[R, D]) ([]R, error) {
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m.List(), nil
}

func remove[R any, D any](ctx context.Context, m *records.Manager[R, D], id string) error {
	if err := m.RequestDelete(id); err != nil {
		return err
	}
	return m.ConfirmDelete(ctx)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
