package polymarket

// trading.go — Order submission against the CLOB exchange.
//
// Trader implements ports.OrderExecutor. Every buy goes out fill-or-kill:
// it either crosses the visible book at the requested price or leaves no
// position at all, so a non-fill is a normal outcome rather than an error.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	gomodel "github.com/polymarket/go-order-utils/pkg/model"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// postOrderRequest es el body JSON de POST /order.
type postOrderRequest struct {
	Order     wireOrder `json:"order"`
	Owner     string    `json:"owner"`
	OrderType string    `json:"orderType"`
}

// wireOrder es la orden firmada en el formato que espera el CLOB: todos
// los enteros como strings decimales y la firma en hex con prefijo 0x.
type wireOrder struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type postOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

const usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

var balanceOfABI = mustABI(`[{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("abi parse: " + err.Error())
	}
	return parsed
}

// Trader ejecuta órdenes reales contra el CLOB y consulta el balance
// USDC.e de la wallet por RPC.
type Trader struct {
	auth *AuthClient
	rpc  *ethclient.Client
}

// NewTrader crea un Trader; rpcURL apunta a un nodo Polygon y solo se
// usa para leer el balance.
func NewTrader(auth *AuthClient, rpcURL string) (*Trader, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("trader: dial rpc: %w", err)
	}
	return &Trader{auth: auth, rpc: rpc}, nil
}

// PlaceBuy firma y envía una orden BUY fill-or-kill. Un FOK que no cruza
// el libro devuelve Filled=false con error nil; solo los rechazos del
// venue y los fallos de transporte son errores.
func (tr *Trader) PlaceBuy(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := tr.auth.EnsureCreds(ctx); err != nil {
		return domain.OrderResult{}, fmt.Errorf("place buy: creds: %w", err)
	}

	// Firmar contra el contrato equivocado produce una firma inválida,
	// así que el flag neg-risk se confirma antes de construir la orden.
	negRisk := req.NegRisk
	if nr, err := tr.IsNegRisk(ctx, req.TokenID); err == nil {
		negRisk = nr
	}

	signed, err := tr.auth.buildSignedOrder(req.TokenID, req.Price, req.Amount, negRisk)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("place buy: sign: %w", err)
	}

	body := postOrderRequest{
		Order:     toWireOrder(signed, req.TokenID),
		Owner:     tr.auth.creds.APIKey,
		OrderType: "FOK",
	}

	// Un FOK sin cruce llega como success=false o como 400 con el mismo
	// errorMsg en el cuerpo; ambos caminos acaban aquí.
	var resp postOrderResponse
	if err := tr.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		if isNoMatch(err.Error()) {
			return domain.OrderResult{Filled: false}, nil
		}
		return domain.OrderResult{}, fmt.Errorf("place buy: post: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		if isNoMatch(resp.ErrorMsg) {
			return domain.OrderResult{Filled: false}, nil
		}
		return domain.OrderResult{}, fmt.Errorf("place buy: clob error: %s", resp.ErrorMsg)
	}

	return domain.OrderResult{
		OrderID: resp.OrderID,
		Shares:  fromMicro(resp.TakingAmount),
		Filled:  true,
	}, nil
}

// toWireOrder aplana la orden firmada de go-order-utils al JSON del CLOB.
func toWireOrder(signed *gomodel.SignedOrder, tokenID string) wireOrder {
	return wireOrder{
		Salt:          json.Number(signed.Order.Salt.String()),
		Maker:         signed.Order.Maker.Hex(),
		Signer:        signed.Order.Signer.Hex(),
		Taker:         signed.Order.Taker.Hex(),
		TokenID:       tokenID,
		MakerAmount:   signed.Order.MakerAmount.String(),
		TakerAmount:   signed.Order.TakerAmount.String(),
		Expiration:    signed.Order.Expiration.String(),
		Nonce:         signed.Order.Nonce.String(),
		FeeRateBps:    signed.Order.FeeRateBps.String(),
		Side:          "BUY",
		SignatureType: int(signed.Order.SignatureType.Int64()),
		Signature:     "0x" + hex.EncodeToString(signed.Signature),
	}
}

// isNoMatch distingue el rechazo benigno (el FOK no cruzó) de los
// rechazos reales de balance o firma.
func isNoMatch(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	for _, phrase := range []string{"fully filled", "not filled", "no match"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// GetBalance lee el balance USDC.e on-chain de la wallet, en unidades
// enteras de USDC.
func (tr *Trader) GetBalance(ctx context.Context) (float64, error) {
	input, err := balanceOfABI.Pack("balanceOf", tr.auth.address)
	if err != nil {
		return 0, fmt.Errorf("balance: pack: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	out, err := tr.rpc.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("balance: call: %w", err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", out)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("balance: unpack: %w", err)
	}

	micro := new(big.Float).SetInt(vals[0].(*big.Int))
	bal, _ := micro.Quo(micro, big.NewFloat(1e6)).Float64()
	return bal, nil
}

// IsNegRisk consulta si un token opera a través del adapter NegRisk.
func (tr *Trader) IsNegRisk(ctx context.Context, tokenID string) (bool, error) {
	url := tr.auth.clobBase + "/neg-risk?token_id=" + tokenID

	var resp negRiskResponse
	if err := tr.auth.get(ctx, tr.auth.limGeneral, url, &resp); err != nil {
		return false, fmt.Errorf("query neg-risk: %w", err)
	}
	return resp.NegRisk, nil
}

// fromMicro convierte los montos del CLOB (millonésimas, como string
// decimal) a float64. El CLOB reporta así tanto USDC como shares.
func fromMicro(s string) float64 {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f / 1e6
}
