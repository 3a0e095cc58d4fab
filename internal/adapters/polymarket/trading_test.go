package polymarket_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Clave de prueba conocida, sin fondos. Nunca usar en producción.
const testPrivKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// newOrderServer levanta un CLOB falso que resuelve la derivación de
// credenciales y el check de neg-risk, delegando POST /order al handler.
func newOrderServer(t *testing.T, orderHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/derive-api-key", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("POLY_ADDRESS"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.NotEmpty(t, r.Header.Get("POLY_TIMESTAMP"))
		json.NewEncoder(w).Encode(map[string]string{
			"apiKey":     "key-001",
			"secret":     base64.URLEncoding.EncodeToString([]byte("test-hmac-secret")),
			"passphrase": "pass-001",
		})
	})
	mux.HandleFunc("/neg-risk", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"neg_risk": false})
	})
	mux.HandleFunc("/order", orderHandler)

	return httptest.NewServer(mux)
}

func newTestTrader(t *testing.T, srv *httptest.Server) *polymarket.Trader {
	t.Helper()

	auth, err := polymarket.NewAuthClient(srv.URL, srv.URL, testPrivKey)
	require.NoError(t, err)

	// El Dial HTTP es perezoso; no hay conexión hasta la primera llamada RPC.
	tr, err := polymarket.NewTrader(auth, "http://localhost:8545")
	require.NoError(t, err)
	return tr
}

func TestPlaceBuy_FilledFOK(t *testing.T) {
	srv := newOrderServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Headers L2 firmados presentes en el POST
		assert.Equal(t, "key-001", r.Header.Get("POLY_API_KEY"))
		assert.Equal(t, "pass-001", r.Header.Get("POLY_PASSPHRASE"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "FOK", req["orderType"])
		assert.Equal(t, "key-001", req["owner"])

		order := req["order"].(map[string]any)
		assert.Equal(t, "BUY", order["side"])
		assert.Equal(t, "123456789", order["tokenId"])
		// stake 10 USDC a 0.74: floor(10/0.74*100) = 1351 share-cents
		assert.Equal(t, "13510000", order["takerAmount"])
		assert.Equal(t, "9997400", order["makerAmount"])

		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"orderID":      "0xorder001",
			"status":       "matched",
			"takingAmount": "13510000",
			"makingAmount": "9997400",
		})
	})
	defer srv.Close()

	tr := newTestTrader(t, srv)

	res, err := tr.PlaceBuy(context.Background(), domain.OrderRequest{
		Venue:     domain.VenuePolymarket,
		TokenID:   "123456789",
		Direction: domain.DirectionYes,
		Price:     0.74,
		Amount:    10.0,
	})

	require.NoError(t, err)
	assert.True(t, res.Filled)
	assert.Equal(t, "0xorder001", res.OrderID)
	assert.InDelta(t, 13.51, res.Shares, 0.001)
}

func TestPlaceBuy_NoCrossIsNotAnError(t *testing.T) {
	srv := newOrderServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":  false,
			"errorMsg": "order couldn't be fully filled, FOK orders are fully filled or killed",
		})
	})
	defer srv.Close()

	tr := newTestTrader(t, srv)

	res, err := tr.PlaceBuy(context.Background(), domain.OrderRequest{
		TokenID: "123456789",
		Price:   0.74,
		Amount:  10.0,
	})

	require.NoError(t, err, "una FOK sin cruce es un resultado válido, no un error")
	assert.False(t, res.Filled)
	assert.Empty(t, res.OrderID)
}

func TestPlaceBuy_NoCrossVia400(t *testing.T) {
	srv := newOrderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"errorMsg": "order couldn't be fully filled, FOK orders are fully filled or killed",
		})
	})
	defer srv.Close()

	tr := newTestTrader(t, srv)

	res, err := tr.PlaceBuy(context.Background(), domain.OrderRequest{
		TokenID: "123456789",
		Price:   0.74,
		Amount:  10.0,
	})

	require.NoError(t, err)
	assert.False(t, res.Filled)
}

func TestPlaceBuy_RejectedIsAnError(t *testing.T) {
	srv := newOrderServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":  false,
			"errorMsg": "not enough balance / allowance",
		})
	})
	defer srv.Close()

	tr := newTestTrader(t, srv)

	_, err := tr.PlaceBuy(context.Background(), domain.OrderRequest{
		TokenID: "123456789",
		Price:   0.74,
		Amount:  10.0,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough balance")
}

func TestPlaceBuy_NegRiskOverride(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/derive-api-key", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"apiKey":     "key-001",
			"secret":     base64.URLEncoding.EncodeToString([]byte("test-hmac-secret")),
			"passphrase": "pass-001",
		})
	})
	// El CLOB dice neg-risk aunque el request diga lo contrario
	mux.HandleFunc("/neg-risk", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123456789", r.URL.Query().Get("token_id"))
		json.NewEncoder(w).Encode(map[string]bool{"neg_risk": true})
	})
	mux.HandleFunc("/order", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"orderID":      "0xorder002",
			"takingAmount": "13510000",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTrader(t, srv)

	res, err := tr.PlaceBuy(context.Background(), domain.OrderRequest{
		TokenID: "123456789",
		NegRisk: false,
		Price:   0.74,
		Amount:  10.0,
	})

	require.NoError(t, err)
	assert.True(t, res.Filled)
}

func TestIsNegRisk(t *testing.T) {
	srv := newOrderServer(t, func(w http.ResponseWriter, r *http.Request) {})
	defer srv.Close()

	tr := newTestTrader(t, srv)

	nr, err := tr.IsNegRisk(context.Background(), "tok_yes_001")
	require.NoError(t, err)
	assert.False(t, nr)
}
