package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

// APIError is a non-2xx answer from the storefront API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the domain sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return nil
	}
}

// Client talks to the storefront REST API and keeps the session token of
// the last successful login.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Authenticated() bool { return c.token != "" }

type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	PetName  string `json:"pet_name,omitempty"`
}

type LoginResult struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

type OrderCreated struct {
	ID         int64           `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Message    string          `json:"message"`
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "api/auth/register", reg, nil)
}

// Login stores the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "api/auth/login", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Logout() { c.token = "" }

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Products(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	path := "api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []domain.Product
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodGet, "api/products/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "api/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type productPayload struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	Category        string          `json:"category"`
	ImageURL        string          `json:"image_url,omitempty"`
}

func newProductPayload(p domain.Product) productPayload {
	return productPayload{
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		QuantityInStock: p.QuantityInStock,
		Category:        p.Category,
		ImageURL:        p.ImageURL,
	}
}

// CreateProduct returns the id assigned to p. p.ID is ignored.
func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "api/products", newProductPayload(p), &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateProduct replaces every editable field of product p.ID.
func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) error {
	return c.do(ctx, http.MethodPut, "api/products/"+strconv.FormatInt(p.ID, 10), newProductPayload(p), nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "api/products/"+strconv.FormatInt(id, 10), nil, nil)
}

// CreateOrder sends only product ids and quantities; the server prices the order.
func (c *Client) CreateOrder(ctx context.Context, lines []domain.Line) (*OrderCreated, error) {
	var out OrderCreated
	if err := c.do(ctx, http.MethodPost, "api/orders", map[string]any{"items": lines}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Orders(ctx context.Context) ([]domain.OrderSummary, error) {
	var out []domain.OrderSummary
	if err := c.do(ctx, http.MethodGet, "api/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Order(ctx context.Context, id int64) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "api/orders/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
