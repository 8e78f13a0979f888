package categories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-commerce/atelier/internal/platform/db"
	"github.com/atelier-commerce/atelier/internal/shared"
)

// Tx exposes the node operations available inside a move transaction.
type Tx interface {
	UpdateNode(ctx context.Context, id int64, parentID *int64, level int, path string) error
	ListChildren(ctx context.Context, parentID int64) ([]Category, error)
}

type Repository interface {
	Get(ctx context.Context, id int64) (Category, error)
	GetBySlug(ctx context.Context, slug string) (Category, error)
	ListAll(ctx context.Context) ([]Category, error)
	ListBySlugs(ctx context.Context, slugs []string) ([]Category, error)
	SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, category Category) (Category, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	CountLiveProducts(ctx context.Context, id int64) (int, error)
	ProductCounts(ctx context.Context) (map[int64]int, error)
	Delete(ctx context.Context, id int64) error
	// WithinMove runs fn inside one transaction so a reader never observes a
	// partially recompressed subtree.
	WithinMove(ctx context.Context, fn func(tx Tx) error) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const categoryColumns = `id, name, slug, parent_id, level, path, display_order, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Level, &c.Path, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	return scanCategory(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`
	return scanCategory(r.pool.QueryRow(ctx, query, slug))
}

func (r *repository) ListAll(ctx context.Context) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY display_order NULLS LAST, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *repository) ListBySlugs(ctx context.Context, slugs []string) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ANY($1)`
	rows, err := r.pool.Query(ctx, query, slugs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *repository) SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, category Category) (Category, error) {
	query := `INSERT INTO categories (name, slug, parent_id, level, path, display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		category.Name, category.Slug, category.ParentID, category.Level, category.Path, category.DisplayOrder, now, now,
	).Scan(&category.ID)
	if err != nil {
		return Category{}, mapUniqueViolation(err)
	}
	category.CreatedAt = now
	category.UpdatedAt = now
	return category, nil
}

func (r *repository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) CountLiveProducts(ctx context.Context, id int64) (int, error) {
	query := `SELECT COUNT(*) FROM product_categories pc
		JOIN products p ON p.id = pc.product_id
		WHERE pc.category_id = $1 AND p.deleted_at IS NULL AND p.status = 'ACTIVE'`
	var n int
	err := r.pool.QueryRow(ctx, query, id).Scan(&n)
	return n, err
}

// ProductCounts returns live-product counts for all categories in one grouped
// query; hierarchy rendering must not issue a query per node.
func (r *repository) ProductCounts(ctx context.Context) (map[int64]int, error) {
	query := `SELECT pc.category_id, COUNT(*) FROM product_categories pc
		JOIN products p ON p.id = pc.product_id
		WHERE p.deleted_at IS NULL AND p.status = 'ACTIVE'
		GROUP BY pc.category_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) WithinMove(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(moveTx{tx: tx})
	})
}

type moveTx struct {
	tx pgx.Tx
}

func (m moveTx) UpdateNode(ctx context.Context, id int64, parentID *int64, level int, path string) error {
	tag, err := m.tx.Exec(ctx,
		`UPDATE categories SET parent_id = $1, level = $2, path = $3, updated_at = $4 WHERE id = $5`,
		parentID, level, path, time.Now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (m moveTx) ListChildren(ctx context.Context, parentID int64) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 ORDER BY id`
	rows, err := m.tx.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCategories(rows)
}

func collectCategories(rows pgx.Rows) ([]Category, error) {
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Level, &c.Path, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("slug already taken: %w", shared.ErrConflict)
	}
	return err
}
