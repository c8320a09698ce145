package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.total_price, o.status, o.created_at, COUNT(oi.id)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.TotalPrice, &s.Status, &s.CreatedAt, &s.ItemCount); err != nil {
			return nil, err
		}
		orders = append(orders, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) GetForUser(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, status, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, orderID, userID).Scan(&order.ID, &order.UserID, &order.TotalPrice, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_time, p.name, COALESCE(p.category, '')
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtTime, &item.Name, &item.Category); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

type orderTx struct {
	tx *sql.Tx
}

func (t *orderTx) Products(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, category, price
		FROM products
		WHERE id = ANY($1)
		FOR SHARE
	`, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make(map[int64]domain.Product, len(productIDs))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total_price, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, order.UserID, order.TotalPrice, order.Status).Scan(&order.ID, &order.CreatedAt)
}

func (t *orderTx) InsertItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	if len(items) == 0 {
		return errors.New("order has no items")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES ")
	args := make([]any, 0, len(items)*4)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, orderID, item.ProductID, item.Quantity, item.PriceAtTime)
	}

	result, err := t.tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted != int64(len(items)) {
		return fmt.Errorf("inserted %d of %d order items", inserted, len(items))
	}

	return nil
}
