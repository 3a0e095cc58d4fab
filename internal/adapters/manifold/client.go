package manifold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.manifold.markets/v0"

	// Manifold permite 500 requests/min por IP; al 60% → 5/s.
	readRatePerSec = 5
	// Las apuestas van mucho más lento: nunca hace falta más de una
	// por segundo y la cuota de escritura de la cuenta es limitada.
	betRatePerSec = 1

	maxTries  = 4
	retryStep = 500 * time.Millisecond
)

// Client es el HTTP client de la API v0 de Manifold con rate limiting
// y retries. Las llamadas autenticadas llevan "Authorization: Key ...".
type Client struct {
	http       *http.Client
	base       string
	apiKey     string
	limiter    *rate.Limiter
	betLimiter *rate.Limiter
}

// NewClient crea un Client para Manifold. Si base está vacío usa el URL
// de producción. apiKey puede quedar vacío para operar solo en lectura.
func NewClient(base, apiKey string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:       &http.Client{Timeout: 10 * time.Second},
		base:       base,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(readRatePerSec, 10),
		betLimiter: rate.NewLimiter(betRatePerSec, 1),
	}
}

// authorize añade el header de API key si está configurada.
func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		c.authorize(req)
		return c.http.Do(req)
	}, out)
}

// postOnce hace un POST JSON con un único intento. Una apuesta no es
// idempotente: reintentarla a ciegas tras un timeout puede duplicarla.
func (c *Client) postOnce(ctx context.Context, url string, body, out any) error {
	if err := c.betLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doWithRetry ejecuta fn hasta maxTries veces, reintentando 429, 5xx y
// errores de red con backoff exponencial. El resto de códigos resuelve
// en el primer intento.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var last error
	for try := 0; try < maxTries; try++ {
		if try > 0 {
			if err := sleepBackoff(ctx, try-1); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			last = fmt.Errorf("transport: %w", err)
			continue
		}

		done, err := consume(resp, out)
		if done {
			return err
		}
		last = err
	}
	return fmt.Errorf("manifold: agotados %d intentos: %w", maxTries, last)
}

// consume decide el destino de una respuesta: done=false pide otro
// intento (429 o 5xx), done=true la da por terminal.
func consume(resp *http.Response, out any) (done bool, err error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		slog.Warn("manifold transient status", "status", resp.StatusCode)
		return false, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(resp.Body)
		return true, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

// sleepBackoff duerme 2^n·retryStep sin ignorar la cancelación.
func sleepBackoff(ctx context.Context, n int) error {
	select {
	case <-time.After(retryStep << n):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
