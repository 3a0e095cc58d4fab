package polymarket

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DTOs raw de las APIs de Polymarket (Gamma y CLOB). Solo se usan dentro
// de este paquete. La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarket es un mercado de GET /markets de Gamma.
// Los arrays (outcomes, precios, token ids) llegan como strings JSON que
// a su vez contienen un array JSON, p.ej. "[\"Yes\", \"No\"]".
type gammaMarket struct {
	ID            string         `json:"id"`
	ConditionID   string         `json:"conditionId"`
	Question      string         `json:"question"`
	Slug          string         `json:"slug"`
	EndDate       string         `json:"endDate"`
	Liquidity     float64        `json:"liquidityNum"`
	Volume        float64        `json:"volumeNum"`
	Outcomes      jsonStringList `json:"outcomes"`
	OutcomePrices jsonStringList `json:"outcomePrices"`
	ClobTokenIDs  jsonStringList `json:"clobTokenIds"`
	Active        bool           `json:"active"`
	Closed        bool           `json:"closed"`
	NegRisk       bool           `json:"negRisk"`
}

// jsonStringList acepta tanto un array JSON normal como la forma doblemente
// codificada de Gamma (string que contiene un array JSON).
type jsonStringList []string

func (l *jsonStringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}

	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*l = nil
			return nil
		}
		var vals []string
		if err := json.Unmarshal([]byte(raw), &vals); err != nil {
			return err
		}
		*l = vals
		return nil
	}

	var vals []string
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*l = vals
	return nil
}

// --- CLOB API ---

// orderBookResponse es la respuesta de GET /book.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
