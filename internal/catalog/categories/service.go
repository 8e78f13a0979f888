package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/catalog/slugify"
	"github.com/atelier-commerce/atelier/internal/shared"
)

// Service owns the materialized-path category tree.
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

// CreateInput carries the fields accepted when creating a category.
type CreateInput struct {
	Name         string
	ParentID     *int64
	DisplayOrder *int
}

// Create resolves the parent snapshot, allocates a unique slug and persists
// the node with its computed level and path.
func (s *Service) Create(ctx context.Context, input CreateInput) (Category, error) {
	if err := validateName(input.Name); err != nil {
		return Category{}, err
	}

	var parent *Category
	if input.ParentID != nil {
		p, err := s.repo.Get(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Category{}, fmt.Errorf("parent category %d not found: %w", *input.ParentID, shared.ErrValidation)
			}
			return Category{}, err
		}
		parent = &p
	}

	slug, err := s.slugs.Allocate(ctx, input.Name, 0)
	if err != nil {
		return Category{}, err
	}

	category := Category{
		Name:         input.Name,
		Slug:         slug,
		ParentID:     input.ParentID,
		DisplayOrder: input.DisplayOrder,
	}
	if parent != nil {
		category.Level = parent.Level + 1
		category.Path = parent.Path + "/" + slug
	} else {
		category.Level = 0
		category.Path = "/" + slug
	}

	created, err := s.repo.Create(ctx, category)
	if err != nil {
		return Category{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Get returns a category by id. A miss is a hard NotFound; detail lookups do
// not degrade the way product listings by slug do.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("invalid category id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetBySlug returns a category by slug, NotFound on a miss.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Category, error) {
	if strings.TrimSpace(slug) == "" {
		return Category{}, fmt.Errorf("empty category slug: %w", shared.ErrValidation)
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Move re-parents a category and recompresses the paths and levels of its
// entire subtree inside one transaction. The rewrite walks top-down with a
// breadth-first worklist: each node's new path is committed before its
// children's paths are computed from it, and the queue bounds stack depth on
// deep trees.
func (s *Service) Move(ctx context.Context, id int64, newParentID *int64) (Category, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}

	var parent *Category
	if newParentID != nil {
		if *newParentID == id {
			return Category{}, fmt.Errorf("category cannot be its own parent: %w", shared.ErrValidation)
		}
		p, err := s.repo.Get(ctx, *newParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Category{}, fmt.Errorf("parent category %d not found: %w", *newParentID, shared.ErrValidation)
			}
			return Category{}, err
		}
		// The stored path already encodes ancestry, so a prefix test replaces
		// a live tree walk for cycle detection.
		if p.Path == category.Path || strings.HasPrefix(p.Path, category.Path+"/") {
			return Category{}, fmt.Errorf("cannot move category under its own descendant: %w", shared.ErrValidation)
		}
		parent = &p
	}

	newLevel := 0
	newPath := "/" + category.Slug
	if parent != nil {
		newLevel = parent.Level + 1
		newPath = parent.Path + "/" + category.Slug
	}

	err = s.repo.WithinMove(ctx, func(tx Tx) error {
		if err := tx.UpdateNode(ctx, category.ID, newParentID, newLevel, newPath); err != nil {
			return err
		}

		type workItem struct {
			id    int64
			path  string
			level int
		}
		queue := []workItem{{id: category.ID, path: newPath, level: newLevel}}
		for len(queue) > 0 {
			item := queue[0]
			queue = queue[1:]

			children, err := tx.ListChildren(ctx, item.id)
			if err != nil {
				return err
			}
			for _, child := range children {
				childPath := item.path + "/" + child.Slug
				childLevel := item.level + 1
				if err := tx.UpdateNode(ctx, child.ID, child.ParentID, childLevel, childPath); err != nil {
					return err
				}
				queue = append(queue, workItem{id: child.ID, path: childPath, level: childLevel})
			}
		}
		return nil
	})
	if err != nil {
		return Category{}, err
	}

	// Re-read so the caller sees the committed row, updated_at included.
	moved, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	s.invalidate(ctx)
	return moved, nil
}

// Delete removes a childless category with no live ACTIVE products attached.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("category has %d child categories: %w", children, shared.ErrConflict)
	}
	live, err := s.repo.CountLiveProducts(ctx, id)
	if err != nil {
		return err
	}
	if live > 0 {
		return fmt.Errorf("category has %d active products: %w", live, shared.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Tree returns the nested hierarchy down to maxDepth, served from the
// category_trees cache namespace.
func (s *Service) Tree(ctx context.Context, maxDepth int) ([]*TreeNode, error) {
	if maxDepth <= 0 {
		return []*TreeNode{}, nil
	}

	var nodes []*TreeNode
	params := struct {
		Depth int `json:"depth"`
	}{Depth: maxDepth}
	err := s.cache.FetchJSON(ctx, cache.NamespaceCategoryTrees, params, &nodes, func(ctx context.Context) (any, error) {
		flat, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		counts, err := s.repo.ProductCounts(ctx)
		if err != nil {
			return nil, err
		}
		return linkTree(flat, counts, maxDepth), nil
	})
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []*TreeNode{}
	}
	return nodes, nil
}

// Breadcrumbs resolves the stored path of a category into its ancestor chain,
// root first, with a single lookup for all segments.
func (s *Service) Breadcrumbs(ctx context.Context, id int64) ([]Category, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(strings.TrimPrefix(category.Path, "/"), "/")
	if len(segments) == 0 {
		return []Category{}, nil
	}

	resolved, err := s.repo.ListBySlugs(ctx, segments)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]Category, len(resolved))
	for _, c := range resolved {
		bySlug[c.Slug] = c
	}

	crumbs := make([]Category, 0, len(segments))
	for _, segment := range segments {
		if c, ok := bySlug[segment]; ok {
			crumbs = append(crumbs, c)
		}
	}
	return crumbs, nil
}

// invalidate clears all cache namespaces. Category writes reshape trees and
// can shift which listings and counts a slug-scoped product query sees.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}
