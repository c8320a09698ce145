package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

// memStore is an in-memory Store. Writes made inside InTx are staged and only
// applied when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	orders   []domain.Order
	items    []domain.OrderItem
	nextID   int64
	nextItem int64

	// failItemsInsert makes InsertItems fail after the header was staged.
	failItemsInsert error
}

func newMemStore(products ...domain.Product) *memStore {
	s := &memStore{products: make(map[int64]domain.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) setPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = decimal.RequireFromString(price)
	s.products[id] = p
}

type memTx struct {
	store  *memStore
	orders []domain.Order
	items  []domain.OrderItem
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.orders = append(s.orders, tx.orders...)
	s.items = append(s.items, tx.items...)
	return nil
}

func (t *memTx) Products(_ context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	products := make(map[int64]domain.Product)
	for _, id := range productIDs {
		if p, ok := t.store.products[id]; ok {
			products[id] = p
		}
	}
	return products, nil
}

func (t *memTx) InsertOrder(_ context.Context, order *domain.Order) error {
	t.store.nextID++
	order.ID = t.store.nextID
	order.CreatedAt = time.Now().UTC()

	header := *order
	header.Items = nil
	t.orders = append(t.orders, header)
	return nil
}

func (t *memTx) InsertItems(_ context.Context, orderID int64, items []domain.OrderItem) error {
	if t.store.failItemsInsert != nil {
		return t.store.failItemsInsert
	}
	if len(items) == 0 {
		return errors.New("order has no items")
	}
	for _, item := range items {
		t.store.nextItem++
		item.ID = t.store.nextItem
		item.OrderID = orderID
		t.items = append(t.items, item)
	}
	return nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64) ([]domain.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.OrderSummary{}
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		out = append(out, domain.OrderSummary{Order: o, ItemCount: len(s.itemsOf(o.ID))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) GetForUser(_ context.Context, userID, orderID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == orderID && o.UserID == userID {
			order := o
			order.Items = s.itemsOf(o.ID)
			return &order, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) itemsOf(orderID int64) []domain.OrderItem {
	var out []domain.OrderItem
	for _, item := range s.items {
		if item.OrderID == orderID {
			p := s.products[item.ProductID]
			item.Name = p.Name
			item.Category = p.Category
			out = append(out, item)
		}
	}
	return out
}

func (s *memStore) counts() (orders, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.items)
}

func seedProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Sachê Gourmet Premium", Price: decimal.RequireFromString("45.90"), QuantityInStock: 100, Category: "Premium"},
		{ID: 2, Name: "Ração Royal Canine", Price: decimal.RequireFromString("120.00"), QuantityInStock: 50, Category: "Premium"},
		{ID: 3, Name: "Ração Whiskas Classic", Price: decimal.RequireFromString("28.50"), QuantityInStock: 150, Category: "Padrão"},
		{ID: 4, Name: "Petiscos Natural Gourmet", Price: decimal.RequireFromString("32.00"), QuantityInStock: 80, Category: "Petiscos"},
		{ID: 5, Name: "Snack de Frango Desfiado", Price: decimal.RequireFromString("24.90"), QuantityInStock: 120, Category: "Petiscos"},
		{ID: 6, Name: "Ração Special Care", Price: decimal.RequireFromString("95.00"), QuantityInStock: 40, Category: "Medicinal"},
	}
}
