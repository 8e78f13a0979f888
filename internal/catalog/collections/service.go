package collections

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/catalog/slugify"
	"github.com/atelier-commerce/atelier/internal/shared"
)

type Service struct {
	repo   Repository
	slugs  *slugify.Allocator
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, readCache *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		slugs:  slugify.NewAllocator(repo),
		cache:  readCache,
		logger: logger,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Collection, error) {
	if id <= 0 {
		return Collection{}, fmt.Errorf("invalid collection id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Collection, error) {
	if strings.TrimSpace(slug) == "" {
		return Collection{}, fmt.Errorf("empty collection slug: %w", shared.ErrValidation)
	}
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context, featuredOnly bool) ([]Collection, error) {
	items, err := s.repo.List(ctx, featuredOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Collection{}
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, input Input) (Collection, error) {
	if err := validateInput(input); err != nil {
		return Collection{}, err
	}
	slug, err := s.slugs.Allocate(ctx, slugSource(input), 0)
	if err != nil {
		return Collection{}, err
	}
	created, err := s.repo.Create(ctx, Collection{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		IsFeatured:  input.IsFeatured,
	})
	if err != nil {
		return Collection{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, input Input) (Collection, error) {
	if id <= 0 {
		return Collection{}, fmt.Errorf("invalid collection id: %w", shared.ErrValidation)
	}
	if err := validateInput(input); err != nil {
		return Collection{}, err
	}
	slug, err := s.slugs.Allocate(ctx, slugSource(input), id)
	if err != nil {
		return Collection{}, err
	}
	updated, err := s.repo.Update(ctx, id, Collection{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		IsFeatured:  input.IsFeatured,
	})
	if err != nil {
		return Collection{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid collection id: %w", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AddProduct links a product into a collection. Membership changes shift
// collection-filtered searches, so product lists are invalidated.
func (s *Service) AddProduct(ctx context.Context, collectionID, productID int64) error {
	if collectionID <= 0 || productID <= 0 {
		return fmt.Errorf("invalid collection membership ids: %w", shared.ErrValidation)
	}
	if _, err := s.repo.Get(ctx, collectionID); err != nil {
		return err
	}
	if err := s.repo.AddProduct(ctx, collectionID, productID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) RemoveProduct(ctx context.Context, collectionID, productID int64) error {
	if collectionID <= 0 || productID <= 0 {
		return fmt.Errorf("invalid collection membership ids: %w", shared.ErrValidation)
	}
	if err := s.repo.RemoveProduct(ctx, collectionID, productID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateProductLists(ctx)
	}
}

func slugSource(input Input) string {
	if input.Slug != "" {
		return input.Slug
	}
	return input.Name
}
