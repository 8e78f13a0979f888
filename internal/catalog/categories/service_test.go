package categories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/catalog/cache"
	"github.com/atelier-commerce/atelier/internal/shared"
)

type fakeRepo struct {
	seq          int64
	cats         map[int64]*Category
	liveProducts map[int64]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cats: map[int64]*Category{}, liveProducts: map[int64]int{}}
}

func (r *fakeRepo) Get(_ context.Context, id int64) (Category, error) {
	if c, ok := r.cats[id]; ok {
		return *c, nil
	}
	return Category{}, shared.ErrNotFound
}

func (r *fakeRepo) GetBySlug(_ context.Context, slug string) (Category, error) {
	for _, c := range r.cats {
		if c.Slug == slug {
			return *c, nil
		}
	}
	return Category{}, shared.ErrNotFound
}

func (r *fakeRepo) ListAll(_ context.Context) ([]Category, error) {
	out := make([]Category, 0, len(r.cats))
	for _, c := range r.cats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) ListBySlugs(_ context.Context, slugs []string) ([]Category, error) {
	want := map[string]bool{}
	for _, s := range slugs {
		want[s] = true
	}
	var out []Category
	for _, c := range r.cats {
		if want[c.Slug] {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeRepo) SlugInUse(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, c := range r.cats {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) Create(_ context.Context, category Category) (Category, error) {
	r.seq++
	category.ID = r.seq
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	r.cats[category.ID] = &category
	return category, nil
}

func (r *fakeRepo) CountChildren(_ context.Context, id int64) (int, error) {
	n := 0
	for _, c := range r.cats {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CountLiveProducts(_ context.Context, id int64) (int, error) {
	return r.liveProducts[id], nil
}

func (r *fakeRepo) ProductCounts(_ context.Context) (map[int64]int, error) {
	out := make(map[int64]int, len(r.liveProducts))
	for k, v := range r.liveProducts {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.cats[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.cats, id)
	return nil
}

func (r *fakeRepo) WithinMove(_ context.Context, fn func(tx Tx) error) error {
	return fn(fakeTx{repo: r})
}

type fakeTx struct {
	repo *fakeRepo
}

func (t fakeTx) UpdateNode(_ context.Context, id int64, parentID *int64, level int, path string) error {
	c, ok := t.repo.cats[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.ParentID = parentID
	c.Level = level
	c.Path = path
	c.UpdatedAt = time.Now()
	return nil
}

func (t fakeTx) ListChildren(_ context.Context, parentID int64) ([]Category, error) {
	var out []Category
	for _, c := range t.repo.cats {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, cache.New(client, time.Minute, nil), nil), repo
}

func mustCreate(t *testing.T, svc *Service, name string, parentID *int64) Category {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateInput{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return c
}

func assertPathInvariant(t *testing.T, repo *fakeRepo) {
	t.Helper()
	for _, c := range repo.cats {
		segments := strings.Split(strings.TrimPrefix(c.Path, "/"), "/")
		if c.Level != len(segments)-1 {
			t.Fatalf("category %q: level %d does not match path %q", c.Slug, c.Level, c.Path)
		}
		if c.ParentID == nil {
			if c.Path != "/"+c.Slug {
				t.Fatalf("root %q has path %q", c.Slug, c.Path)
			}
			continue
		}
		parent := repo.cats[*c.ParentID]
		if c.Path != parent.Path+"/"+c.Slug {
			t.Fatalf("category %q: path %q does not extend parent path %q", c.Slug, c.Path, parent.Path)
		}
	}
}

func TestCreateComputesLevelAndPath(t *testing.T) {
	svc, repo := newTestService(t)

	home := mustCreate(t, svc, "Home", nil)
	require.Equal(t, 0, home.Level)
	require.Equal(t, "/home", home.Path)

	lighting := mustCreate(t, svc, "Lighting", &home.ID)
	require.Equal(t, 1, lighting.Level)
	require.Equal(t, "/home/lighting", lighting.Path)

	assertPathInvariant(t, repo)
}

func TestCreateMissingParentIsValidationError(t *testing.T) {
	svc, _ := newTestService(t)
	missing := int64(42)
	_, err := svc.Create(context.Background(), CreateInput{Name: "Lighting", ParentID: &missing})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateAllocatesSuffixedSlug(t *testing.T) {
	svc, _ := newTestService(t)
	first := mustCreate(t, svc, "Aurora Lamp", nil)
	second := mustCreate(t, svc, "Aurora Lamp", nil)
	require.Equal(t, "aurora-lamp", first.Slug)
	require.Equal(t, "aurora-lamp-1", second.Slug)
}

func TestMoveRejectsSelfAndDescendants(t *testing.T) {
	svc, _ := newTestService(t)
	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)
	lamps := mustCreate(t, svc, "Lamps", &lighting.ID)

	_, err := svc.Move(context.Background(), home.ID, &home.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Move(context.Background(), home.ID, &lamps.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Move(context.Background(), lighting.ID, &lamps.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMoveRecompressesDescendantPaths(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)
	lamps := mustCreate(t, svc, "Lamps", &lighting.ID)
	floor := mustCreate(t, svc, "Floor Lamps", &lamps.ID)
	garden := mustCreate(t, svc, "Garden", nil)

	moved, err := svc.Move(ctx, lighting.ID, &garden.ID)
	require.NoError(t, err)
	require.Equal(t, "/garden/lighting", moved.Path)
	require.Equal(t, 1, moved.Level)

	require.Equal(t, "/garden/lighting/lamps", repo.cats[lamps.ID].Path)
	require.Equal(t, 2, repo.cats[lamps.ID].Level)
	require.Equal(t, "/garden/lighting/lamps/floor-lamps", repo.cats[floor.ID].Path)
	require.Equal(t, 3, repo.cats[floor.ID].Level)

	assertPathInvariant(t, repo)

	// Moving to root resets the whole chain.
	moved, err = svc.Move(ctx, lighting.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "/lighting", moved.Path)
	require.Equal(t, 0, moved.Level)
	require.Equal(t, "/lighting/lamps/floor-lamps", repo.cats[floor.ID].Path)
	assertPathInvariant(t, repo)
}

func TestMoveReturnsFreshTimestamp(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)

	before := lighting.UpdatedAt
	moved, err := svc.Move(ctx, lighting.ID, nil)
	require.NoError(t, err)
	require.Equal(t, repo.cats[lighting.ID].UpdatedAt, moved.UpdatedAt)
	require.False(t, moved.UpdatedAt.Before(before))
}

func TestDeleteGuards(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)

	err := svc.Delete(ctx, home.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	repo.liveProducts[lighting.ID] = 2
	err = svc.Delete(ctx, lighting.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	repo.liveProducts[lighting.ID] = 0
	require.NoError(t, svc.Delete(ctx, lighting.ID))
	require.NoError(t, svc.Delete(ctx, home.ID))

	err = svc.Delete(ctx, home.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTreeDepthLimiting(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)
	mustCreate(t, svc, "Lamps", &lighting.ID)
	repo.liveProducts[lighting.ID] = 4

	empty, err := svc.Tree(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, empty)

	rootsOnly, err := svc.Tree(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rootsOnly, 1)
	require.Empty(t, rootsOnly[0].Children)

	two, err := svc.Tree(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 1)
	require.Len(t, two[0].Children, 1)
	require.Equal(t, "lighting", two[0].Children[0].Slug)
	require.Equal(t, 4, two[0].Children[0].ProductCount)
	require.Empty(t, two[0].Children[0].Children)

	three, err := svc.Tree(ctx, 3)
	require.NoError(t, err)
	require.Len(t, three[0].Children[0].Children, 1)
}

func TestTreeCacheInvalidatedByWrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, "Home", nil)
	first, err := svc.Tree(ctx, 3)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The create below must bump the category_trees namespace so the next
	// render sees the new root instead of the cached one.
	mustCreate(t, svc, "Garden", nil)
	second, err := svc.Tree(ctx, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
}

func TestBreadcrumbsRootFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	home := mustCreate(t, svc, "Home", nil)
	lighting := mustCreate(t, svc, "Lighting", &home.ID)
	lamps := mustCreate(t, svc, "Lamps", &lighting.ID)

	crumbs, err := svc.Breadcrumbs(ctx, lamps.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 3)
	require.Equal(t, []string{"home", "lighting", "lamps"}, []string{crumbs[0].Slug, crumbs[1].Slug, crumbs[2].Slug})

	_, err = svc.Breadcrumbs(ctx, 999)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
