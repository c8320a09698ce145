package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/patas-storefront/internal/accounts"
	"github.com/joao-fontenele/patas-storefront/internal/auth"
	"github.com/joao-fontenele/patas-storefront/internal/catalog"
	"github.com/joao-fontenele/patas-storefront/internal/orders"
	"github.com/joao-fontenele/patas-storefront/internal/telemetry"
)

type Deps struct {
	Logger *slog.Logger

	Auth     *auth.Middleware
	Accounts *accounts.Handler
	Catalog  *catalog.Handler
	Orders   *orders.Handler

	// Ping backs /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	StaticDir        string
	CORSAllowOrigins []string
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	protected := d.Auth.Require

	route("POST /api/auth/register", d.Accounts.HandleRegister)
	route("POST /api/auth/login", d.Accounts.HandleLogin)
	route("GET /api/auth/me", protected(d.Accounts.HandleMe))

	route("GET /api/products", d.Catalog.HandleList)
	route("GET /api/products/{id}", d.Catalog.HandleGet)
	route("GET /api/categories", d.Catalog.HandleCategories)
	route("POST /api/products", protected(d.Catalog.HandleCreate))
	route("PUT /api/products/{id}", protected(d.Catalog.HandleUpdate))
	route("DELETE /api/products/{id}", protected(d.Catalog.HandleDelete))

	route("POST /api/orders", protected(d.Orders.HandleCreate))
	route("GET /api/orders", protected(d.Orders.HandleList))
	route("GET /api/orders/{id}", protected(d.Orders.HandleGet))

	mux.HandleFunc("GET /healthz", healthHandler(d.Ping, d.Logger))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	if d.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(d.StaticDir)))
	}

	var h http.Handler = mux
	h = Recover(d.Logger)(h)
	h = CORS(d.CORSAllowOrigins)(h)
	h = Logging(d.Logger)(h)
	h = RequestID(h)

	return telemetry.NewHTTPHandler(h, "storefront")
}

func healthHandler(ping func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
