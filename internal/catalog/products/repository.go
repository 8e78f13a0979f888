package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-commerce/atelier/internal/platform/db"
	"github.com/atelier-commerce/atelier/internal/shared"
)

// CategoryLink associates a product with a category; at most one link per
// product carries IsPrimary.
type CategoryLink struct {
	CategoryID int64 `json:"category_id"`
	IsPrimary  bool  `json:"is_primary"`
}

type Repository interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	Search(ctx context.Context, f Filter, page, pageSize int) ([]Product, int, error)
	SearchByCursor(ctx context.Context, f Filter, cursorID *int64, take int) ([]Product, error)
	ListPopular(ctx context.Context, limit int) ([]Product, error)
	SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, product Product, categories []CategoryLink, collections []int64) (Product, error)
	Update(ctx context.Context, id int64, product Product, categories []CategoryLink, collections []int64) (Product, error)
	SoftDelete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `p.id, p.public_id, p.title, p.slug, p.status, p.price, p.compare_at_price,
	p.currency, p.inventory_policy, p.search_keywords, p.attributes, p.deleted_at, p.created_at, p.updated_at`

// defaultOrder surfaces active items before drafts and archived ones, recent
// first within a status. The keyset variant appends id so the ordering is
// total; ties on the business fields alone would make cursors ambiguous.
const (
	defaultOrder = ` ORDER BY p.status ASC, p.created_at DESC`
	keysetOrder  = defaultOrder + `, p.id DESC`
)

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 AND p.deleted_at IS NULL`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return Product{}, err
	}
	return r.attachVariants(ctx, p)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.slug = $1 AND p.deleted_at IS NULL`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return Product{}, err
	}
	return r.attachVariants(ctx, p)
}

func (r *repository) Search(ctx context.Context, f Filter, page, pageSize int) ([]Product, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argCount := len(args)
	query := `SELECT ` + productColumns + ` FROM products p` + where + defaultOrder

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, pageSize)

	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, shared.Offset(page, pageSize))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	items, err = r.attachVariantsBatch(ctx, items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SearchByCursor fetches up to take+1 rows after the anchor row identified by
// cursorID under the total keyset ordering. The caller derives hasMore and
// the next cursor from the surplus row.
func (r *repository) SearchByCursor(ctx context.Context, f Filter, cursorID *int64, take int) ([]Product, error) {
	where, args := buildWhere(f)
	argCount := len(args)

	if cursorID != nil {
		var anchorStatus string
		var anchorCreated time.Time
		err := r.pool.QueryRow(ctx,
			`SELECT status, created_at FROM products WHERE id = $1`, *cursorID,
		).Scan(&anchorStatus, &anchorCreated)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unknown cursor %d: %w", *cursorID, shared.ErrValidation)
		}
		if err != nil {
			return nil, err
		}

		s := "$" + strconv.Itoa(argCount+1)
		c := "$" + strconv.Itoa(argCount+2)
		i := "$" + strconv.Itoa(argCount+3)
		where += ` AND (p.status > ` + s +
			` OR (p.status = ` + s + ` AND p.created_at < ` + c + `)` +
			` OR (p.status = ` + s + ` AND p.created_at = ` + c + ` AND p.id < ` + i + `))`
		args = append(args, anchorStatus, anchorCreated, *cursorID)
		argCount += 3
	}

	argCount++
	query := `SELECT ` + productColumns + ` FROM products p` + where + keysetOrder +
		` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, take+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	return r.attachVariantsBatch(ctx, items)
}

// ListPopular ranks live products by order volume over the trailing 30 days.
// Orders themselves belong to the surrounding storefront; only the line-item
// association is read here.
func (r *repository) ListPopular(ctx context.Context, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p
		JOIN (
			SELECT product_id, COUNT(*) AS recent_orders
			FROM order_items
			WHERE created_at > now() - interval '30 days'
			GROUP BY product_id
		) pop ON pop.product_id = p.id
		WHERE p.deleted_at IS NULL AND p.status = 'ACTIVE'
		ORDER BY pop.recent_orders DESC, p.created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	return r.attachVariantsBatch(ctx, items)
}

func (r *repository) SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, product Product, categories []CategoryLink, collections []int64) (Product, error) {
	attrs, err := marshalAttributes(product.Attributes)
	if err != nil {
		return Product{}, err
	}
	now := time.Now()

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `INSERT INTO products
			(public_id, title, slug, status, price, compare_at_price, currency, inventory_policy, search_keywords, attributes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
		if err := tx.QueryRow(ctx, query,
			product.PublicID, product.Title, product.Slug, string(product.Status), product.Price,
			product.CompareAtPrice, product.Currency, string(product.InventoryPolicy),
			product.SearchKeywords, attrs, now, now,
		).Scan(&product.ID); err != nil {
			return mapUniqueViolation(err)
		}
		if err := replaceVariants(ctx, tx, product.ID, product.Variants); err != nil {
			return err
		}
		if err := replaceCategoryLinks(ctx, tx, product.ID, categories); err != nil {
			return err
		}
		return replaceCollectionLinks(ctx, tx, product.ID, collections)
	})
	if err != nil {
		return Product{}, err
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	return r.Get(ctx, product.ID)
}

func (r *repository) Update(ctx context.Context, id int64, product Product, categories []CategoryLink, collections []int64) (Product, error) {
	attrs, err := marshalAttributes(product.Attributes)
	if err != nil {
		return Product{}, err
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `UPDATE products SET title = $1, slug = $2, status = $3, price = $4, compare_at_price = $5,
			currency = $6, inventory_policy = $7, search_keywords = $8, attributes = $9, updated_at = $10
			WHERE id = $11 AND deleted_at IS NULL`
		tag, err := tx.Exec(ctx, query,
			product.Title, product.Slug, string(product.Status), product.Price, product.CompareAtPrice,
			product.Currency, string(product.InventoryPolicy), product.SearchKeywords, attrs, time.Now(), id,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if err := replaceVariants(ctx, tx, id, product.Variants); err != nil {
			return err
		}
		if err := replaceCategoryLinks(ctx, tx, id, categories); err != nil {
			return err
		}
		return replaceCollectionLinks(ctx, tx, id, collections)
	})
	if err != nil {
		return Product{}, err
	}
	return r.Get(ctx, id)
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func replaceVariants(ctx context.Context, tx pgx.Tx, productID int64, variants []Variant) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, v := range variants {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_variants (product_id, sku, price, stock, is_primary) VALUES ($1, $2, $3, $4, $5)`,
			productID, v.SKU, v.Price, v.Stock, v.IsPrimary,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
	}
	return nil
}

func replaceCategoryLinks(ctx context.Context, tx pgx.Tx, productID int64, links []CategoryLink) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, link := range links {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_categories (product_id, category_id, is_primary) VALUES ($1, $2, $3)`,
			productID, link.CategoryID, link.IsPrimary,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceCollectionLinks(ctx context.Context, tx pgx.Tx, productID int64, collectionIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_collections WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, collectionID := range collectionIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_collections (product_id, collection_id) VALUES ($1, $2)`,
			productID, collectionID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) attachVariants(ctx context.Context, p Product) (Product, error) {
	items, err := r.attachVariantsBatch(ctx, []Product{p})
	if err != nil {
		return Product{}, err
	}
	return items[0], nil
}

// attachVariantsBatch loads variants for a whole result page in one query.
func (r *repository) attachVariantsBatch(ctx context.Context, items []Product) ([]Product, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, p := range items {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, sku, price, stock, is_primary FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.IsPrimary); err != nil {
			return nil, err
		}
		if i, ok := index[v.ProductID]; ok {
			items[i].Variants = append(items[i].Variants, v)
		}
	}
	return items, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var publicID uuid.UUID
	var attrs []byte
	err := row.Scan(&p.ID, &publicID, &p.Title, &p.Slug, &p.Status, &p.Price, &p.CompareAtPrice,
		&p.Currency, &p.InventoryPolicy, &p.SearchKeywords, &attrs, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.PublicID = publicID
	if err := unmarshalAttributes(attrs, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		var attrs []byte
		if err := rows.Scan(&p.ID, &p.PublicID, &p.Title, &p.Slug, &p.Status, &p.Price, &p.CompareAtPrice,
			&p.Currency, &p.InventoryPolicy, &p.SearchKeywords, &attrs, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalAttributes(attrs, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func marshalAttributes(attrs map[string]AttributeValue) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]AttributeValue{}
	}
	return json.Marshal(attrs)
}

func unmarshalAttributes(raw []byte, p *Product) error {
	if len(raw) == 0 {
		p.Attributes = map[string]AttributeValue{}
		return nil
	}
	return json.Unmarshal(raw, &p.Attributes)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("duplicate value: %w", shared.ErrConflict)
	}
	return err
}
