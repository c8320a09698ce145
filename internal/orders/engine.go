package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

var tracer = otel.Tracer("orders")

const (
	// MaxLines bounds one order. Items are inserted in a single statement with
	// four bind parameters each.
	MaxLines = 500
	// MaxQuantity matches the INTEGER order_items.quantity column.
	MaxQuantity = math.MaxInt32
)

// maxTotal is the largest value orders.total_price NUMERIC(12,2) holds.
var maxTotal = decimal.RequireFromString("9999999999.99")

// Store is the persistence capability the engine needs. Implementations must
// run InTx as one atomic unit: when fn returns an error nothing it wrote may
// remain visible.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error)
	GetForUser(ctx context.Context, userID, orderID int64) (*domain.Order, error)
}

// Tx is the view of the store inside one transaction.
type Tx interface {
	// Products returns id, name, category and current price of every id that
	// exists. Rows read here stay locked against updates until the
	// transaction ends.
	Products(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error)
	// InsertOrder writes the header and sets order.ID and order.CreatedAt.
	InsertOrder(ctx context.Context, order *domain.Order) error
	// InsertItems writes all items of one order in a single statement.
	InsertItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
}

type Engine struct {
	store   Store
	logger  *slog.Logger
	created metric.Int64Counter
	failed  metric.Int64Counter
	value   metric.Float64Histogram
}

func NewEngine(store Store, logger *slog.Logger) (*Engine, error) {
	meter := otel.Meter("orders")

	created, err := meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders committed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.created counter: %w", err)
	}

	failed, err := meter.Int64Counter("storefront.orders.failed",
		metric.WithDescription("Order creations rejected or rolled back"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.failed counter: %w", err)
	}

	value, err := meter.Float64Histogram("storefront.orders.value",
		metric.WithDescription("Total price of committed orders"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.value histogram: %w", err)
	}

	return &Engine{
		store:   store,
		logger:  logger,
		created: created,
		failed:  failed,
		value:   value,
	}, nil
}

// CreateOrder prices every line from the catalog and persists the order and
// its items as one unit. Prices supplied by callers are never consulted.
func (e *Engine) CreateOrder(ctx context.Context, userID int64, lines []domain.Line) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("order.lines", len(lines)),
		),
	)
	defer span.End()

	if err := validateLines(lines); err != nil {
		e.fail(ctx, span, "validation", err)
		return nil, err
	}

	var order *domain.Order
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		products, err := tx.Products(ctx, productIDs(lines))
		if err != nil {
			return fmt.Errorf("resolve products: %w", err)
		}

		priced, err := priceLines(userID, lines, products)
		if err != nil {
			return err
		}

		if err := tx.InsertOrder(ctx, priced); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := tx.InsertItems(ctx, priced.ID, priced.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		order = priced
		return nil
	})
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, domain.ErrNotFound):
			reason = "not_found"
		case errors.Is(err, domain.ErrValidation):
			reason = "validation"
		default:
			reason = "persistence"
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		e.fail(ctx, span, reason, err)
		return nil, err
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	total, _ := order.TotalPrice.Float64()
	e.created.Add(ctx, 1)
	e.value.Record(ctx, total)
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	e.logger.Info("order created", "order_id", order.ID, "user_id", userID, "items", len(order.Items), "total_price", order.TotalPrice.StringFixed(2))
	return order, nil
}

func (e *Engine) ListOrders(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	orders, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns domain.ErrNotFound both for unknown orders and for orders
// owned by someone else.
func (e *Engine) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	order, err := e.store.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return order, nil
}

func (e *Engine) fail(ctx context.Context, span trace.Span, reason string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	if reason == "persistence" {
		e.logger.Error("order creation rolled back", "error", err)
	}
}

func validateLines(lines []domain.Line) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order must contain items", domain.ErrValidation)
	}
	if len(lines) > MaxLines {
		return fmt.Errorf("%w: order has %d items, at most %d allowed", domain.ErrValidation, len(lines), MaxLines)
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: item %d: product_id is required", domain.ErrValidation, i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: item %d: quantity must be at least 1", domain.ErrValidation, i)
		}
		if line.Quantity > MaxQuantity {
			return fmt.Errorf("%w: item %d: quantity must be at most %d", domain.ErrValidation, i, MaxQuantity)
		}
	}
	return nil
}

func productIDs(lines []domain.Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// priceLines builds the pending order from the snapshot of products. Repeated
// products stay separate items.
func priceLines(userID int64, lines []domain.Line, products map[int64]domain.Product) (*domain.Order, error) {
	order := &domain.Order{
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		TotalPrice: decimal.Zero,
		Items:      make([]domain.OrderItem, 0, len(lines)),
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, line.ProductID)
		}

		item := domain.OrderItem{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtTime: product.Price,
			Name:        product.Name,
			Category:    product.Category,
		}
		order.TotalPrice = order.TotalPrice.Add(item.Subtotal())
		order.Items = append(order.Items, item)
	}

	if order.TotalPrice.GreaterThan(maxTotal) {
		return nil, fmt.Errorf("%w: order total exceeds %s", domain.ErrValidation, maxTotal.StringFixed(2))
	}

	return order, nil
}
