package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

const (
	selectProductsSQL = `SELECT id, name, category, price FROM products WHERE id = ANY($1) FOR SHARE`
	insertOrderSQL    = `INSERT INTO orders (user_id, total_price, status) VALUES ($1, $2, $3) RETURNING id, created_at`
	insertItemsSQL    = `INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES `
)

var productColumns = []string{"id", "name", "category", "price"}

func newMockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine, err := NewEngine(NewOrderRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return engine, mock
}

func TestOrderRepository_CreateOrder_Success(t *testing.T) {
	engine, mock := newMockEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WithArgs(pq.Array([]int64{1, 3})).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(1, "Sachê Gourmet Premium", "Premium", "45.90").
			AddRow(3, "Ração Whiskas Classic", "Padrão", "28.50"))
	mock.ExpectQuery(regexp.QuoteMeta(insertOrderSQL)).
		WithArgs(int64(7), decimal.RequireFromString("120.30"), domain.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(101, now))
	mock.ExpectExec(regexp.QuoteMeta(insertItemsSQL+`($1, $2, $3, $4), ($5, $6, $7, $8)`)).
		WithArgs(
			int64(101), int64(1), 2, decimal.RequireFromString("45.90"),
			int64(101), int64(3), 1, decimal.RequireFromString("28.50"),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := engine.CreateOrder(context.Background(), 7, []domain.Line{
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, int64(101), order.ID)
	require.True(t, order.TotalPrice.Equal(decimal.RequireFromString("120.30")), "total %s", order.TotalPrice)
	require.Len(t, order.Items, 2)
	require.Equal(t, int64(101), order.Items[1].OrderID)
	require.Equal(t, "Ração Whiskas Classic", order.Items[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_UnknownProductRollsBack(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WithArgs(pq.Array([]int64{999})).
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectRollback()

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{{ProductID: 999, Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_TotalOutOfRangeRollsBack(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WithArgs(pq.Array([]int64{2})).
		WillReturnRows(sqlmock.NewRows(productColumns).AddRow(2, "Ração Royal Canine", "Premium", "120.00"))
	mock.ExpectRollback()

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{{ProductID: 2, Quantity: 100_000_000}})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.NotErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_ItemInsertErrorRollsBack(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WithArgs(pq.Array([]int64{2})).
		WillReturnRows(sqlmock.NewRows(productColumns).AddRow(2, "Ração Royal Canine", "Premium", "120.00"))
	mock.ExpectQuery(regexp.QuoteMeta(insertOrderSQL)).
		WithArgs(int64(7), decimal.RequireFromString("120.00"), domain.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertItemsSQL)).
		WillReturnError(errors.New("item insert failed"))
	mock.ExpectRollback()

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{{ProductID: 2, Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_ShortInsertRollsBack(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(1, "Sachê Gourmet Premium", "Premium", "45.90").
			AddRow(2, "Ração Royal Canine", "Premium", "120.00"))
	mock.ExpectQuery(regexp.QuoteMeta(insertOrderSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertItemsSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_CommitError(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectProductsSQL)).
		WillReturnRows(sqlmock.NewRows(productColumns).AddRow(4, "Petiscos Natural Gourmet", "Petiscos", "32.00"))
	mock.ExpectQuery(regexp.QuoteMeta(insertOrderSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertItemsSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{{ProductID: 4, Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateOrder_BeginError(t *testing.T) {
	engine, mock := newMockEngine(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := engine.CreateOrder(context.Background(), 7, []domain.Line{{ProductID: 4, Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, total_price, status, created_at FROM orders WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_price", "status", "created_at"}).
			AddRow(5, 7, "91.80", "pending", now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items oi JOIN products p ON p.id = oi.product_id WHERE oi.order_id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_time", "name", "category"}).
			AddRow(1, 5, 1, 2, "45.90", "Sachê Gourmet Premium", "Premium"))

	order, err := repo.GetForUser(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	require.Equal(t, "Sachê Gourmet Premium", order.Items[0].Name)
	require.True(t, order.Items[0].PriceAtTime.Equal(decimal.RequireFromString("45.90")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetForUser_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(5), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_price", "status", "created_at"}))

	_, err = repo.GetForUser(context.Background(), 8, 5)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.user_id = $1 GROUP BY o.id ORDER BY o.created_at DESC, o.id DESC`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_price", "status", "created_at", "count"}).
			AddRow(9, 7, "120.00", "pending", now, 1).
			AddRow(8, 7, "91.80", "pending", now.Add(-time.Hour), 2))

	orders, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, int64(9), orders[0].ID)
	require.Equal(t, 2, orders[1].ItemCount)
	require.True(t, orders[1].TotalPrice.Equal(decimal.RequireFromString("91.80")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_price", "status", "created_at", "count"}))

	orders, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, orders)
	require.Empty(t, orders)
	require.NoError(t, mock.ExpectationsWereMet())
}
