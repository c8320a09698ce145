package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

const productColumns = `id, name, description, price, quantity_in_stock, category, image_url, created_at, updated_at`

// foreignKeyViolation is the Postgres SQLSTATE raised when a delete would
// orphan order items.
const foreignKeyViolation = "23503"

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE $2 OR description ILIKE $2)
		ORDER BY id
	`, filter.Category, likePattern(filter.Query))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	if err := scanProduct(row, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		return nil, err
	}

	return p, nil
}

func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM products
		WHERE category <> ''
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Create inserts p and fills in its generated id and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, quantity_in_stock, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Description, p.Price, p.QuantityInStock, p.Category, p.ImageURL).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, quantity_in_stock = $5,
		    category = $6, image_url = $7, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.QuantityInStock, p.Category, p.ImageURL)
	if err != nil {
		return err
	}

	return expectOneRow(result, p.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return fmt.Errorf("%w: product %d is referenced by orders", domain.ErrConflict, id)
		}
		return err
	}

	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner, p *domain.Product) error {
	return s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.QuantityInStock,
		&p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
}

// likePattern turns free text into a substring ILIKE pattern, escaping the
// wildcard characters the user typed.
func likePattern(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}
