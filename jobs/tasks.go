package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogWarmup pre-populates the category tree and first-page
	// product list caches.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskPopularRefresh rebuilds the popular-product cache namespace.
	TaskPopularRefresh = "catalog:popular_refresh"
)

// CatalogWarmupPayload selects which cache entries the warmup touches.
type CatalogWarmupPayload struct {
	// TreeDepths lists the category tree depths to warm. Empty means the
	// depths storefront pages actually request.
	TreeDepths []int `json:"treeDepths,omitempty"`
	// FirstPageSize is the page size warmed for the unfiltered product list.
	FirstPageSize int `json:"firstPageSize,omitempty"`
}

// PopularRefreshPayload bounds the popular-product rebuild.
type PopularRefreshPayload struct {
	Limit int `json:"limit,omitempty"`
}

// NewCatalogWarmupTask constructs a warmup task.
func NewCatalogWarmupTask(payload CatalogWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}

// NewPopularRefreshTask constructs a popular-product refresh task.
func NewPopularRefreshTask(payload PopularRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPopularRefresh, data), nil
}
