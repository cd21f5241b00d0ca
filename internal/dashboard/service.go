package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/backoffice-console/backoffice/internal/records"
)

// API is the subset of the REST client the dashboard reads from.
type API interface {
	Get(ctx context.Context, path string, dest any) error
}

// Service fetches dashboard metrics through the cache.
type Service struct {
	api    API
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds a Service. cache may be nil.
func NewService(api API, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: cache, logger: logger}
}

// Metrics returns the headline totals.
func (s *Service) Metrics(ctx context.Context) (Metrics, error) {
	var out Metrics
	err := s.fetch(ctx, []string{"metrics"}, &out, func(ctx context.Context) (any, error) {
		var m Metrics
		if err := s.api.Get(ctx, MetricsPath, &m); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return Metrics{}, fmt.Errorf("dashboard: metrics: %w", err)
	}
	return out, nil
}

// OrdersByPeriod returns the order series in server order.
func (s *Service) OrdersByPeriod(ctx context.Context, period Period) ([]PeriodCount, error) {
	period, err := ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}
	var out []PeriodCount
	err = s.fetch(ctx, []string{"orders", string(period)}, &out, func(ctx context.Context) (any, error) {
		series := []PeriodCount{}
		path := SeriesPath + "?" + url.Values{"period": {string(period)}}.Encode()
		if err := s.api.Get(ctx, path, &series); err != nil {
			return nil, err
		}
		return series, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: orders by %s: %w", period, err)
	}
	if out == nil {
		out = []PeriodCount{}
	}
	return out, nil
}

// Warm loads the metrics and every period series into the cache.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.Metrics(ctx); err != nil {
		return err
	}
	for _, p := range Periods {
		if _, err := s.OrdersByPeriod(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops every cached dashboard entry.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// MutationHook bumps the cache after each successful record mutation.
func (s *Service) MutationHook() records.MutationHook {
	return records.MutationHookFunc(func(ctx context.Context, m records.Mutation) {
		if m.Err != nil {
			return
		}
		if err := s.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "dashboard cache bump failed",
				slog.String("resource", m.Resource),
				slog.Any("error", err),
			)
		}
	})
}

// fetch collapses concurrent misses for the same key into one API call.
func (s *Service) fetch(ctx context.Context, parts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache unavailable", slog.Any("error", err))
		return s.passThrough(ctx, dest, loader)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	// Shared result: each caller decodes its own copy.
	return json.Unmarshal(v.(json.RawMessage), dest)
}

func (s *Service) passThrough(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
