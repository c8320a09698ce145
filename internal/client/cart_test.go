package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

var (
	sache  = domain.Product{ID: 1, Name: "Sachê Gourmet Premium", Price: decimal.RequireFromString("45.90")}
	racao  = domain.Product{ID: 2, Name: "Ração Royal Canine", Price: decimal.RequireFromString("120.00")}
	snacks = domain.Product{ID: 5, Name: "Snack de Frango Desfiado", Price: decimal.RequireFromString("24.90")}
)

func TestCart_AddMergesQuantities(t *testing.T) {
	var c Cart
	c.Add(sache, 1)
	c.Add(racao, 1)
	c.Add(sache, 2)
	c.Add(snacks, 0)

	require.Len(t, c.Items, 3)
	require.Equal(t, 3, c.Items[0].Quantity)
	require.Equal(t, 1, c.Items[2].Quantity, "non positive quantities add one unit")
	require.Equal(t, 5, c.Count())
	require.True(t, c.Total().Equal(decimal.RequireFromString("282.60")), "total %s", c.Total())
}

func TestCart_RemoveAndSetQuantity(t *testing.T) {
	var c Cart
	c.Add(sache, 2)
	c.Add(racao, 1)

	c.SetQuantity(sache.ID, 0)
	require.Equal(t, 1, c.Items[0].Quantity)

	c.SetQuantity(sache.ID, 4)
	require.Equal(t, 4, c.Items[0].Quantity)

	c.SetQuantity(99, 3)
	require.Equal(t, 5, c.Count())

	c.Remove(racao.ID)
	require.Len(t, c.Items, 1)
	require.Equal(t, sache.ID, c.Items[0].ProductID)

	c.Clear()
	require.Zero(t, c.Count())
	require.True(t, c.Total().IsZero())
}

func TestCart_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")

	empty, err := LoadCart(path)
	require.NoError(t, err)
	require.Empty(t, empty.Items)

	var c Cart
	c.Add(sache, 2)
	require.NoError(t, c.Save(path))

	loaded, err := LoadCart(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.True(t, loaded.Items[0].Price.Equal(sache.Price))

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadCart(path)
	require.Error(t, err)
}

func TestCart_Checkout(t *testing.T) {
	t.Run("sends lines and clears on success", func(t *testing.T) {
		var lines []domain.Line
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Items []domain.Line `json:"items"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			lines = body.Items
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1,"total_price":211.8,"message":"order created"}`))
		}))
		defer server.Close()

		api, err := New(server.URL, server.Client())
		require.NoError(t, err)
		api.SetToken("tok")

		var c Cart
		c.Add(sache, 2)
		c.Add(racao, 1)

		order, err := c.Checkout(context.Background(), api)
		require.NoError(t, err)
		require.Equal(t, int64(1), order.ID)
		require.Equal(t, []domain.Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, lines)
		require.Empty(t, c.Items)
	})

	t.Run("keeps cart when the server rejects the order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"product not found"}`))
		}))
		defer server.Close()

		api, err := New(server.URL, server.Client())
		require.NoError(t, err)
		api.SetToken("tok")

		var c Cart
		c.Add(sache, 1)

		_, err = c.Checkout(context.Background(), api)
		require.ErrorIs(t, err, domain.ErrValidation)
		require.Len(t, c.Items, 1)
	})

	t.Run("requires login and items", func(t *testing.T) {
		api, err := New("http://127.0.0.1:0", nil)
		require.NoError(t, err)

		var c Cart
		c.Add(sache, 1)
		_, err = c.Checkout(context.Background(), api)
		require.ErrorIs(t, err, domain.ErrUnauthorized)

		api.SetToken("tok")
		_, err = (&Cart{}).Checkout(context.Background(), api)
		require.ErrorIs(t, err, domain.ErrValidation)
	})
}
