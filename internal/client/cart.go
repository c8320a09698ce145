package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

// CartItem caches the name and price seen when the product was added. The
// cached price is for display only; checkout never sends it.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Cart is the shopper's pending selection, persisted to a local JSON file.
type Cart struct {
	Items []CartItem `json:"items"`
}

// LoadCart reads a cart file. A missing file is an empty cart.
func LoadCart(path string) (*Cart, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

// Save writes the cart atomically.
func (c *Cart) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cart-*")
	if err != nil {
		return fmt.Errorf("create temp cart: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cart: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Add puts quantity units of p in the cart, merging with an existing line.
func (c *Cart) Add(p domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
	})
}

func (c *Cart) Remove(productID int64) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// SetQuantity changes a line's quantity, never below one. Unknown products
// are ignored.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = max(1, quantity)
			return
		}
	}
}

func (c *Cart) Clear() { c.Items = nil }

// Total is the display estimate from cached prices. The server's total on
// checkout is authoritative.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) Lines() []domain.Line {
	lines := make([]domain.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, domain.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// Checkout places the order and empties the cart once the server accepts it.
func (c *Cart) Checkout(ctx context.Context, api *Client) (*OrderCreated, error) {
	if !api.Authenticated() {
		return nil, fmt.Errorf("%w: login required", domain.ErrUnauthorized)
	}
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	order, err := api.CreateOrder(ctx, c.Lines())
	if err != nil {
		return nil, err
	}

	c.Clear()
	return order, nil
}
