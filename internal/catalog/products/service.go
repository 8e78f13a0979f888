package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/catalog/categories"
	"github.com/atelier-commerce/atelier/internal/catalog/slugify"
	"github.com/atelier-commerce/atelier/internal/shared"
)

const (
	DefaultTake    = 20
	MaxTake        = 100
	defaultPopular = 12
)

// CategoryResolver resolves a category slug for slug-scoped product searches.
type CategoryResolver interface {
	GetBySlug(ctx context.Context, slug string) (categories.Category, error)
}

// Service is the product search and persistence facade.
type Service struct {
	repo       Repository
	categories CategoryResolver
	slugs      *slugify.Allocator
	cache      *cache.Cache
	logger     *slog.Logger
}

func NewService(repo Repository, resolver CategoryResolver, readCache *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		categories: resolver,
		slugs:      slugify.NewAllocator(repo),
		cache:      readCache,
		logger:     logger,
	}
}

// Search runs an offset-paginated product query, served from the
// product_lists cache namespace. An unknown category slug in the filter is
// not a client error in a listing context: it short-circuits to an empty
// page carrying the echoed pagination metadata.
func (s *Service) Search(ctx context.Context, f Filter, page, pageSize int) (shared.Paginated[Product], error) {
	page, pageSize = clampPage(page, pageSize)

	resolved, ok, err := s.resolveCategorySlug(ctx, f)
	if err != nil {
		return shared.Paginated[Product]{}, err
	}
	if !ok {
		return shared.EmptyPaginated[Product](page, pageSize), nil
	}

	params := struct {
		Filter   Filter `json:"filter"`
		Page     int    `json:"page"`
		PageSize int    `json:"pageSize"`
	}{Filter: resolved, Page: page, PageSize: pageSize}

	var result shared.Paginated[Product]
	err = s.cache.FetchJSON(ctx, cache.NamespaceProductLists, params, &result, func(ctx context.Context) (any, error) {
		items, total, err := s.repo.Search(ctx, resolved, page, pageSize)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []Product{}
		}
		return shared.Paginated[Product]{Items: items, Meta: shared.NewPageMeta(page, pageSize, total)}, nil
	})
	if err != nil {
		return shared.Paginated[Product]{}, err
	}
	return result, nil
}

// SearchByCursor runs a keyset-paginated query. The next cursor is the id of
// the last row within the requested page, never the probe row beyond it.
func (s *Service) SearchByCursor(ctx context.Context, f Filter, cursor *string, take int) (shared.CursorPage[Product], error) {
	if take <= 0 {
		take = DefaultTake
	}
	if take > MaxTake {
		take = MaxTake
	}

	var cursorID *int64
	if cursor != nil && *cursor != "" {
		id, err := strconv.ParseInt(*cursor, 10, 64)
		if err != nil || id <= 0 {
			return shared.CursorPage[Product]{}, fmt.Errorf("malformed cursor %q: %w", *cursor, shared.ErrValidation)
		}
		cursorID = &id
	}

	resolved, ok, err := s.resolveCategorySlug(ctx, f)
	if err != nil {
		return shared.CursorPage[Product]{}, err
	}
	if !ok {
		return shared.CursorPage[Product]{Items: []Product{}}, nil
	}

	params := struct {
		Filter Filter `json:"filter"`
		Cursor *int64 `json:"cursor"`
		Take   int    `json:"take"`
	}{Filter: resolved, Cursor: cursorID, Take: take}

	var result shared.CursorPage[Product]
	err = s.cache.FetchJSON(ctx, cache.NamespaceProductLists, params, &result, func(ctx context.Context) (any, error) {
		rows, err := s.repo.SearchByCursor(ctx, resolved, cursorID, take)
		if err != nil {
			return nil, err
		}
		page := shared.CursorPage[Product]{Items: rows}
		if len(rows) > take {
			page.Items = rows[:take]
			page.HasMore = true
			next := strconv.FormatInt(page.Items[take-1].ID, 10)
			page.NextCursor = &next
		}
		if page.Items == nil {
			page.Items = []Product{}
		}
		return page, nil
	})
	if err != nil {
		return shared.CursorPage[Product]{}, err
	}
	return result, nil
}

// Popular returns the popular-product list from its own cache namespace.
func (s *Service) Popular(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = defaultPopular
	}
	params := struct {
		Limit int `json:"limit"`
	}{Limit: limit}

	var items []Product
	err := s.cache.FetchJSON(ctx, cache.NamespacePopularProducts, params, &items, func(ctx context.Context) (any, error) {
		rows, err := s.repo.ListPopular(ctx, limit)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []Product{}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}
	return items, nil
}

// Get returns a live product by id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("invalid product id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetBySlug returns a live product by slug; a miss is a hard NotFound.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	if strings.TrimSpace(slug) == "" {
		return Product{}, fmt.Errorf("empty product slug: %w", shared.ErrValidation)
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Create persists a product with its variants and associations, then fires
// all three cache invalidations.
func (s *Service) Create(ctx context.Context, input Input) (Product, error) {
	normalized, err := validateInput(input)
	if err != nil {
		return Product{}, err
	}

	slugSource := normalized.Slug
	if slugSource == "" {
		slugSource = normalized.Title
	}
	slug, err := s.slugs.Allocate(ctx, slugSource, 0)
	if err != nil {
		return Product{}, err
	}

	product := normalized.toProduct()
	product.PublicID = uuid.New()
	product.Slug = slug

	created, err := s.repo.Create(ctx, product, normalized.Categories, normalized.Collections)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update rewrites a product; the existing record is exempt from colliding
// with its own slug.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("invalid product id: %w", shared.ErrValidation)
	}
	normalized, err := validateInput(input)
	if err != nil {
		return Product{}, err
	}

	slugSource := normalized.Slug
	if slugSource == "" {
		slugSource = normalized.Title
	}
	slug, err := s.slugs.Allocate(ctx, slugSource, id)
	if err != nil {
		return Product{}, err
	}

	product := normalized.toProduct()
	product.Slug = slug

	updated, err := s.repo.Update(ctx, id, product, normalized.Categories, normalized.Collections)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete soft-deletes a product and fires all three cache invalidations.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid product id: %w", shared.ErrValidation)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// resolveCategorySlug rewrites a slug-scoped filter to an id-scoped one. The
// second return is false when the slug resolves to nothing, in which case
// the search short-circuits to an empty result.
func (s *Service) resolveCategorySlug(ctx context.Context, f Filter) (Filter, bool, error) {
	if f.CategorySlug == "" {
		return f, true, nil
	}
	category, err := s.categories.GetBySlug(ctx, f.CategorySlug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Filter{}, false, nil
		}
		return Filter{}, false, err
	}
	f.CategorySlug = ""
	f.CategoryIDs = append(f.CategoryIDs, category.ID)
	return f, true, nil
}

// invalidate clears all three namespaces: a product write can shift category
// product counts, which appear in category trees.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

func clampPage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = shared.DefaultPage
	}
	if pageSize <= 0 {
		pageSize = shared.DefaultPageSize
	}
	if pageSize > shared.MaxPageSize {
		pageSize = shared.MaxPageSize
	}
	return page, pageSize
}
