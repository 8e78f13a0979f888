package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/catalog/categories"
	"github.com/atelier-commerce/atelier/internal/catalog/products"
	jobmetrics "github.com/atelier-commerce/atelier/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Storefront pages request the navigation tree at these depths.
var defaultWarmupDepths = []int{1, 2, 3}

// CatalogWarmupJob pre-populates the read caches a cold storefront hits
// first: the category tree at common depths and the unfiltered first
// product page.
type CatalogWarmupJob struct {
	Categories *categories.Service
	Products   *products.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewCatalogWarmupJob wires dependencies for the warmup handler.
func NewCatalogWarmupJob(categoriesSvc *categories.Service, productsSvc *products.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{
		Categories: categoriesSvc,
		Products:   productsSvc,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes catalog warmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	depths := payload.TreeDepths
	if len(depths) == 0 {
		depths = defaultWarmupDepths
	}
	pageSize := payload.FirstPageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := j.now()
	logger.Info("starting catalog warmup", slog.Int("depths", len(depths)))

	warmedTrees := 0
	for _, depth := range depths {
		if _, err := j.Categories.Tree(ctx, depth); err != nil {
			resultErr = err
			logger.Error("warm category tree", slog.Int("depth", depth), slog.Any("error", err))
			return resultErr
		}
		warmedTrees++
	}
	j.metrics().AddWarmed(string(cache.NamespaceCategoryTrees), warmedTrees)

	if _, err := j.Products.Search(ctx, products.Filter{Statuses: []products.Status{products.StatusActive}}, 1, pageSize); err != nil {
		resultErr = err
		logger.Error("warm first product page", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddWarmed(string(cache.NamespaceProductLists), 1)

	logger.Info("catalog warmup finished",
		slog.Int("trees", warmedTrees),
		slog.Duration("took", j.now().Sub(started)))
	return resultErr
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CatalogWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
