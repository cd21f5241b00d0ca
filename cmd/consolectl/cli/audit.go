package cli

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/backoffice-console/backoffice/internal/audit"
	"github.com/backoffice-console/backoffice/internal/platform/db"
)

func (a *app) auditCommand() *cobra.Command {
	var (
		dsn      string
		resource string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent mutation attempts from the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return errors.New("audit needs --dsn or AUDIT_PG_DSN")
			}
			if resource != "" {
				entity, err := resolveEntity(resource)
				if err != nil {
					return err
				}
				resource = "/" + entity
			}
			ctx := cmd.Context()
			pool, err := db.New(ctx, dsn, "consolectl")
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := audit.NewService(audit.NewPGRepository(pool), a.logger).Recent(ctx, resource, limit)
			if err != nil {
				return err
			}
			t := table{header: []string{"AT", "OPERATOR", "RESOURCE", "ACTION", "ID", "OUTCOME", "ERROR"}}
			for _, e := range entries {
				t.rows = append(t.rows, []string{
					e.At.Format(time.RFC3339), e.Operator, e.Resource, e.Action, e.RecordID, e.Outcome, e.Error,
				})
			}
			return render(cmd.OutOrStdout(), a.format(), t, entries)
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", os.Getenv("AUDIT_PG_DSN"), "Postgres DSN of the audit trail")
	cmd.Flags().StringVar(&resource, "entity", "", "only show one entity")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	return cmd
}
