package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/backoffice-console/backoffice/internal/dashboard"
	"github.com/backoffice-console/backoffice/jobs"
)

type dashboardView struct {
	TotalOrders       int64                   `json:"totalOrders" yaml:"totalOrders"`
	TotalRevenue      float64                 `json:"totalRevenue" yaml:"totalRevenue"`
	AverageOrderValue float64                 `json:"averageOrderValue" yaml:"averageOrderValue"`
	Period            dashboard.Period        `json:"period" yaml:"period"`
	Series            []dashboard.PeriodCount `json:"series" yaml:"series"`
}

func (a *app) dashboardCommand() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline metrics and orders per period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := dashboard.ParsePeriod(period)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc := dashboard.NewService(a.api(), nil, a.logger)
			metrics, err := svc.Metrics(ctx)
			if err != nil {
				return err
			}
			series, err := svc.OrdersByPeriod(ctx, p)
			if err != nil {
				return err
			}

			view := dashboardView{
				TotalOrders:       metrics.TotalOrders,
				TotalRevenue:      metrics.TotalRevenue,
				AverageOrderValue: metrics.AverageOrderValue,
				Period:            p,
				Series:            series,
			}
			t := table{
				header: []string{"METRIC", "VALUE"},
				rows: [][]string{
					{"total orders", strconv.FormatInt(metrics.TotalOrders, 10)},
					{"total revenue", formatAmount(metrics.TotalRevenue)},
					{"average order value", formatAmount(metrics.AverageOrderValue)},
				},
			}
			for _, point := range series {
				t.rows = append(t.rows, []string{string(p) + " " + point.Period, strconv.FormatInt(point.Count, 10)})
			}
			return render(cmd.OutOrStdout(), a.format(), t, view)
		},
	}
	cmd.Flags().StringVar(&period, "period", string(dashboard.DefaultPeriod), "daily, weekly or monthly")
	return cmd
}

type warmupResult struct {
	TaskID string `json:"taskId" yaml:"taskId"`
	Queue  string `json:"queue" yaml:"queue"`
}

func (a *app) warmupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Enqueue a dashboard cache warmup on the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.redisAddr == "" {
				return errors.New("warmup needs --redis-addr or REDIS_ADDR")
			}
			conn, err := jobs.RedisConnOpt(a.redisAddr)
			if err != nil {
				return err
			}
			client := jobs.NewClient(conn)
			defer client.Close()

			info, err := client.EnqueueDashboardWarmup(cmd.Context(), "consolectl")
			if err != nil {
				return err
			}
			result := warmupResult{TaskID: info.ID, Queue: info.Queue}
			return render(cmd.OutOrStdout(), a.format(), table{
				header: []string{"TASK", "QUEUE"},
				rows:   [][]string{{result.TaskID, result.Queue}},
			}, result)
		},
	}
}
