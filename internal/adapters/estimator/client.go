// Package estimator implementa el cliente HTTP del servicio externo de
// estimación de probabilidad. El servicio recibe la pregunta con su
// contexto (categoría, probabilidad de mercado, cierre y feedback de
// calibración) y devuelve probabilidad, confianza y racional.
package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	estimatePath = "/estimate"

	// El servicio razona por petición; con top-N candidatos por ciclo
	// sobran 2 req/s.
	ratePerSec = 2
)

// retryWaits es el calendario de esperas entre intentos; su longitud
// fija el total de intentos.
var retryWaits = []time.Duration{0, 500 * time.Millisecond, time.Second, 2 * time.Second}

// Client es el HTTP client del servicio de estimación con rate limiting
// y retries. Una estimación es una lectura pura: reintentarla es seguro.
type Client struct {
	http    *http.Client
	base    string
	apiKey  string
	limiter *rate.Limiter
}

// NewClient crea un Client contra el base URL dado. El apiKey viaja como
// bearer token en cada petición.
func NewClient(base, apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    strings.TrimSuffix(base, "/"),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(ratePerSec, 2),
	}
}

type estimateRequest struct {
	Question   string  `json:"question"`
	Category   string  `json:"category"`
	MarketProb float64 `json:"market_probability"`
	CloseTime  string  `json:"close_time,omitempty"`
	Feedback   string  `json:"feedback,omitempty"`
}

type estimateResponse struct {
	Probability float64 `json:"probability"`
	Confidence  string  `json:"confidence"`
	Rationale   string  `json:"rationale"`
}

// Estimate pide una probabilidad para la pregunta. Valores fuera de
// contrato (probabilidad fuera de [0,1], etiqueta desconocida) son error:
// nunca se corrigen en silencio.
func (c *Client) Estimate(ctx context.Context, req domain.EstimateRequest) (domain.Estimate, error) {
	body := estimateRequest{
		Question:   req.Question,
		Category:   string(req.Category),
		MarketProb: req.MarketProb,
		Feedback:   req.Feedback,
	}
	if !req.CloseTime.IsZero() {
		body.CloseTime = req.CloseTime.UTC().Format(time.RFC3339)
	}

	var out estimateResponse
	if err := c.post(ctx, c.base+estimatePath, body, &out); err != nil {
		return domain.Estimate{}, fmt.Errorf("estimator.Estimate: %w", err)
	}

	est := domain.Estimate{
		Probability: out.Probability,
		Rationale:   out.Rationale,
	}
	if !est.Valid() {
		return domain.Estimate{}, fmt.Errorf("estimator.Estimate: probability %.4f out of [0,1]", out.Probability)
	}

	switch label := domain.ConfidenceLabel(strings.ToLower(out.Confidence)); label {
	case domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
		est.Confidence = label
	default:
		return domain.Estimate{}, fmt.Errorf("estimator.Estimate: unknown confidence label %q", out.Confidence)
	}

	return est, nil
}

// post hace un POST JSON con rate limiting. Una estimación es una
// lectura pura, así que 429, 5xx y errores de red se reintentan según
// el calendario retryWaits; el resto de códigos corta en seco.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	var lastErr error
	for _, wait := range retryWaits {
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("transport: %w", err)
			continue
		}

		final, err := readBody(resp, out)
		if final {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("agotado el calendario de reintentos: %w", lastErr)
}

// readBody cierra la respuesta y la clasifica: final=false marca una
// falla transitoria (429 o 5xx) que merece otro intento.
func readBody(resp *http.Response, out any) (final bool, err error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		slog.Warn("estimator transient status", "status", resp.StatusCode)
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return true, fmt.Errorf("client error %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}
