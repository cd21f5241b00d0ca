// Package dashboard reads the precomputed order metrics shown on the console home page.
package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MetricsPath returns the headline totals.
	MetricsPath = "/dashboard"
	// SeriesPath returns order counts bucketed by period.
	SeriesPath = "/dashboard/orders-by-period"
)

// ErrInvalidPeriod is returned for period selectors other than daily, weekly or monthly.
var ErrInvalidPeriod = errors.New("dashboard: invalid period")

// Period selects the bucket width of the order series.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"

	// DefaultPeriod applies when no selector is given.
	DefaultPeriod = PeriodMonthly
)

// Periods lists the selectors in display order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriod validates a selector. An empty value yields DefaultPeriod.
func ParsePeriod(raw string) (Period, error) {
	value := Period(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultPeriod, nil
	}
	for _, p := range Periods {
		if value == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
}

// Metrics holds the headline totals.
type Metrics struct {
	TotalOrders       int64   `json:"totalOrders"`
	TotalRevenue      float64 `json:"totalRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

// PeriodCount is one bucket of the order series.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}
