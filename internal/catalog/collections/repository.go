package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-commerce/atelier/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Collection, error)
	GetBySlug(ctx context.Context, slug string) (Collection, error)
	List(ctx context.Context, featuredOnly bool) ([]Collection, error)
	SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, collection Collection) (Collection, error)
	Update(ctx context.Context, id int64, collection Collection) (Collection, error)
	Delete(ctx context.Context, id int64) error
	AddProduct(ctx context.Context, collectionID, productID int64) error
	RemoveProduct(ctx context.Context, collectionID, productID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const collectionColumns = `id, name, slug, description, is_featured, created_at, updated_at`

func scanCollection(row pgx.Row) (Collection, error) {
	var c Collection
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsFeatured, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collection{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	return scanCollection(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE slug = $1`
	return scanCollection(r.pool.QueryRow(ctx, query, slug))
}

func (r *repository) List(ctx context.Context, featuredOnly bool) ([]Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections`
	if featuredOnly {
		query += ` WHERE is_featured`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM collections WHERE slug = $1 AND id <> $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, collection Collection) (Collection, error) {
	query := `
		INSERT INTO collections (name, slug, description, is_featured)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + collectionColumns
	created, err := scanCollection(r.pool.QueryRow(ctx, query,
		collection.Name, collection.Slug, collection.Description, collection.IsFeatured))
	if err != nil {
		return Collection{}, mapUniqueViolation(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, collection Collection) (Collection, error) {
	query := `
		UPDATE collections
		SET name = $2, slug = $3, description = $4, is_featured = $5, updated_at = now()
		WHERE id = $1
		RETURNING ` + collectionColumns
	updated, err := scanCollection(r.pool.QueryRow(ctx, query,
		id, collection.Name, collection.Slug, collection.Description, collection.IsFeatured))
	if err != nil {
		return Collection{}, mapUniqueViolation(err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AddProduct(ctx context.Context, collectionID, productID int64) error {
	query := `
		INSERT INTO product_collections (collection_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (collection_id, product_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, collectionID, productID)
	return err
}

func (r *repository) RemoveProduct(ctx context.Context, collectionID, productID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_collections WHERE collection_id = $1 AND product_id = $2`, collectionID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("collection slug already taken: %w", shared.ErrConflict)
	}
	return err
}
