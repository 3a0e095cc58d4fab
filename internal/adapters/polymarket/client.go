package polymarket

import (
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
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Cada familia de endpoints publica su propio límite; usamos el 60%
	// para no rozar nunca el 429. Documentados: /book 500 por 10s,
	// /markets 300 por 10s, resto del CLOB 9000 por 10s.
	rpsBooks   = 30
	rpsMarkets = 18
	rpsGeneral = 540

	retryLimit = 3
	retryBase  = 500 * time.Millisecond
)

// Client habla con las APIs públicas de Polymarket (CLOB y Gamma) con un
// límite de tasa por familia de endpoints y reintentos ante fallos
// transitorios.
type Client struct {
	http      *http.Client
	clobBase  string
	gammaBase string

	limGeneral *rate.Limiter
	limMarkets *rate.Limiter
	limBooks   *rate.Limiter
}

// NewClient crea un Client; con bases vacías usa los URLs de producción.
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:       &http.Client{Timeout: 10 * time.Second},
		clobBase:   clobBase,
		gammaBase:  gammaBase,
		limGeneral: rate.NewLimiter(rpsGeneral, 50),
		limMarkets: rate.NewLimiter(rpsMarkets, 10),
		limBooks:   rate.NewLimiter(rpsBooks, 5),
	}
}

// get hace un GET JSON respetando el limiter de la familia. Errores de
// transporte, 429 y 5xx se reintentan con backoff exponencial; cualquier
// otro 4xx corta en seco.
func (c *Client) get(ctx context.Context, lim *rate.Limiter, url string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			if attempt == retryLimit {
				return fmt.Errorf("get %s after %d attempts: %w", url, attempt+1, err)
			}
		case retryableStatus(resp.StatusCode):
			status := resp.StatusCode
			resp.Body.Close()
			if status == http.StatusTooManyRequests {
				slog.Warn("rate limited, backing off", "attempt", attempt+1)
			}
			if attempt == retryLimit {
				return fmt.Errorf("get %s: status %d after %d attempts", url, status, attempt+1)
			}
		default:
			return drainJSON(resp, out)
		}

		c.pause(ctx, attempt)
	}
}

// retryableStatus marca los códigos que merecen otro intento.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// drainJSON consume la respuesta final: un 4xx devuelve el cuerpo como
// error, un 2xx decodifica sobre out.
func drainJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client error %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// pause duerme 2^attempt·retryBase sin ignorar la cancelación.
func (c *Client) pause(ctx context.Context, attempt int) {
	select {
	case <-time.After(retryBase << attempt):
	case <-ctx.Done():
	}
}
