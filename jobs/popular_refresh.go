package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/catalog/products"
	jobmetrics "github.com/atelier-commerce/atelier/internal/jobs"
)

// PopularRefreshJob discards the popular-product namespace and repopulates
// it from order history, so storefront reads never pay the aggregation.
type PopularRefreshJob struct {
	Products *products.Service
	Cache    *cache.Cache
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPopularRefreshJob wires dependencies for the refresh handler.
func NewPopularRefreshJob(productsSvc *products.Service, readCache *cache.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *PopularRefreshJob {
	return &PopularRefreshJob{
		Products: productsSvc,
		Cache:    readCache,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Handle processes popular-product refresh tasks.
func (j *PopularRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("popular refresh: handler not configured")
	}
	var payload PopularRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPopularRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Cache != nil {
		j.Cache.InvalidatePopularProducts(ctx)
	}
	items, err := j.Products.Popular(ctx, payload.Limit)
	if err != nil {
		resultErr = err
		j.logger().Error("refresh popular products", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddWarmed(string(cache.NamespacePopularProducts), 1)
	j.logger().Info("popular products refreshed", slog.Int("count", len(items)))
	return resultErr
}

func (j *PopularRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PopularRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
