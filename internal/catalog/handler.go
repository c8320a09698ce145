package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

// maxPrice is the largest value a NUMERIC(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

type Store interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type productRequest struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Price           decimal.NullDecimal `json:"price"`
	QuantityInStock int                 `json:"quantity_in_stock"`
	Category        string              `json:"category"`
	ImageURL        string              `json:"image_url"`
}

func (req productRequest) product() (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if !req.Price.Valid {
		return nil, fmt.Errorf("%w: price is required", domain.ErrValidation)
	}
	price := req.Price.Decimal.Round(2)
	if price.IsNegative() || price.GreaterThan(maxPrice) {
		return nil, fmt.Errorf("%w: price must be between 0 and %s", domain.ErrValidation, maxPrice)
	}
	if req.QuantityInStock < 0 {
		return nil, fmt.Errorf("%w: quantity_in_stock must not be negative", domain.ErrValidation)
	}

	return &domain.Product{
		Name:            name,
		Description:     req.Description,
		Price:           price,
		QuantityInStock: req.QuantityInStock,
		Category:        strings.TrimSpace(req.Category),
		ImageURL:        req.ImageURL,
	}, nil
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}

	products, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "failed to get product", id)
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	if err := h.store.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err, "name", product.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "price", product.Price.String())
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":      product.ID,
		"message": "product created",
	})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product.ID = id

	if err := h.store.Update(r.Context(), product); err != nil {
		h.handleStoreError(w, err, "failed to update product", id)
		return
	}

	h.logger.Info("product updated", "product_id", id, "price", product.Price.String())
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "product updated"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, err, "failed to delete product", id)
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	product, err := req.product()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return product, true
}

func (h *Handler) handleStoreError(w http.ResponseWriter, err error, msg string, id int64) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrConflict):
		h.writeError(w, http.StatusConflict, "product is referenced by existing orders")
	default:
		h.logger.Error(msg, "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
