package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/patas-storefront/internal/auth"
	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

// maxBodyBytes comfortably fits MaxLines lines.
const maxBodyBytes = 64 << 10

// Publisher announces committed orders. *messaging.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	engine    *Engine
	publisher Publisher
	logger    *slog.Logger
}

// NewHandler wires the HTTP surface of the engine. publisher may be nil.
func NewHandler(engine *Engine, publisher Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

type createOrderRequest struct {
	Items []domain.Line `json:"items"`
}

type createOrderResponse struct {
	ID         int64           `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Message    string          `json:"message"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.engine.CreateOrder(r.Context(), identity.UserID, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			h.writeError(w, http.StatusBadRequest, "product not found")
		default:
			h.logger.Error("failed to create order", "error", err, "user_id", identity.UserID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if h.publisher != nil {
		event := domain.NewOrderCreatedEvent(order, identity.Email, identity.Name)
		if err := h.publisher.Publish(r.Context(), strconv.FormatInt(order.ID, 10), event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		ID:         order.ID,
		TotalPrice: order.TotalPrice,
		Message:    "order created",
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.engine.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", identity.UserID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.engine.GetOrder(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
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
