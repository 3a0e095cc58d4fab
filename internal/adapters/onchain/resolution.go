package onchain

// resolution.go — ConditionalTokens resolution reader and redeemer.
//
// Polymarket resolutions are read straight from the CTF (Conditional
// Token Framework) contract on Polygon: payoutDenominator(conditionId)
// flips non-zero when the oracle reports, and the two payoutNumerators
// slots decide the winner. Redemption goes through the same contract,
// so a resolution detected here is always redeemable.

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	polygonChainID int64 = 137

	// USDC.e, the collateral the CTF pays out in
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// ConditionalTokens contract, holds outcome tokens and payout state
	ctfAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	// Conservative upper bound when gas estimation fails
	redeemGasLimit = uint64(300_000)

	// How long a cached gas price stays fresh
	gasPriceTTL = 5 * time.Minute

	receiptTimeout = 60 * time.Second
)

var ctfABI = mustABI(`[
	{"name":"payoutDenominator","type":"function","stateMutability":"view","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"payoutNumerators","type":"function","stateMutability":"view","inputs":[{"name":"","type":"bytes32"},{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"redeemPositions","type":"function","inputs":[{"name":"collateralToken","type":"address"},{"name":"parentCollectionId","type":"bytes32"},{"name":"conditionId","type":"bytes32"},{"name":"indexSets","type":"uint256[]"}],"outputs":[]}
]`)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("ctf abi parse: " + err.Error())
	}
	return parsed
}

// ResolutionClient implements ports.ResolutionSource.
type ResolutionClient struct {
	client     *ethclient.Client
	privateKey []byte
	address    common.Address
	rpcURL     string

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewResolutionClient connects to the given Polygon RPC. privateKeyHex
// (without 0x prefix) may be empty for read-only use; redemption then
// returns an error.
func NewResolutionClient(rpcURL, privateKeyHex string) (*ResolutionClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}

	rc := &ResolutionClient{
		client: client,
		rpcURL: rpcURL,
	}

	if privateKeyHex != "" {
		pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("onchain: decode private key: %w", err)
		}
		privKey, err := crypto.ToECDSA(pkBytes)
		if err != nil {
			return nil, fmt.Errorf("onchain: invalid private key: %w", err)
		}
		rc.privateKey = pkBytes
		rc.address = crypto.PubkeyToAddress(privKey.PublicKey)
	}

	return rc, nil
}

// GetConditionPayouts reads payoutDenominator and both payoutNumerators
// slots for a condition. A zero denominator means the oracle has not
// reported yet. The two numerator slots are fetched in parallel.
func (rc *ResolutionClient) GetConditionPayouts(ctx context.Context, conditionID string) (domain.ConditionPayouts, error) {
	condBytes, err := hexToBytes32(conditionID)
	if err != nil {
		return domain.ConditionPayouts{}, fmt.Errorf("onchain.GetConditionPayouts: condition id: %w", err)
	}

	denom, err := rc.payoutDenominator(ctx, condBytes)
	if err != nil {
		return domain.ConditionPayouts{}, fmt.Errorf("onchain.GetConditionPayouts: denominator: %w", err)
	}

	payouts := domain.ConditionPayouts{Denominator: denom}
	if denom == 0 {
		return payouts, nil
	}

	var wg sync.WaitGroup
	var errs [2]error
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			payouts.Numerators[i], errs[i] = rc.payoutNumerator(ctx, condBytes, int64(i))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return domain.ConditionPayouts{}, fmt.Errorf("onchain.GetConditionPayouts: numerator: %w", err)
		}
	}

	return payouts, nil
}

// payoutDenominator reads the payout denominator for a condition.
func (rc *ResolutionClient) payoutDenominator(ctx context.Context, conditionID [32]byte) (uint64, error) {
	callData, err := ctfABI.Pack("payoutDenominator", conditionID)
	if err != nil {
		return 0, err
	}

	result, err := rc.callCTF(ctx, callData)
	if err != nil {
		return 0, err
	}

	vals, err := ctfABI.Unpack("payoutDenominator", result)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("unpack payoutDenominator: %w", err)
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// payoutNumerator reads one payout numerator slot for a condition.
func (rc *ResolutionClient) payoutNumerator(ctx context.Context, conditionID [32]byte, slot int64) (uint64, error) {
	callData, err := ctfABI.Pack("payoutNumerators", conditionID, big.NewInt(slot))
	if err != nil {
		return 0, err
	}

	result, err := rc.callCTF(ctx, callData)
	if err != nil {
		return 0, err
	}

	vals, err := ctfABI.Unpack("payoutNumerators", result)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("unpack payoutNumerators[%d]: %w", slot, err)
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// callCTF performs a read-only eth_call against the CTF contract.
func (rc *ResolutionClient) callCTF(ctx context.Context, callData []byte) ([]byte, error) {
	ctfAddr := common.HexToAddress(ctfAddress)
	return rc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &ctfAddr,
		Data: callData,
	}, nil)
}

// RedeemPositions claims the payout of a resolved condition for both
// index sets ([1, 2] = YES and NO slots) and returns the tx hash.
// Redeeming burns the caller's own conditional tokens, so no prior
// approval is required.
func (rc *ResolutionClient) RedeemPositions(ctx context.Context, conditionID string) (string, error) {
	if rc.privateKey == nil {
		return "", fmt.Errorf("onchain.RedeemPositions: private key not configured")
	}

	condBytes, err := hexToBytes32(conditionID)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: condition id: %w", err)
	}

	indexSets := []*big.Int{big.NewInt(1), big.NewInt(2)}
	callData, err := ctfABI.Pack("redeemPositions",
		common.HexToAddress(usdcEAddress),
		[32]byte{},
		condBytes,
		indexSets,
	)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: pack: %w", err)
	}

	privKey, err := crypto.ToECDSA(rc.privateKey)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: private key: %w", err)
	}

	nonce, err := rc.client.PendingNonceAt(ctx, rc.address)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: nonce: %w", err)
	}

	gasPrice, err := rc.getGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: gas price: %w", err)
	}

	ctfAddr := common.HexToAddress(ctfAddress)

	gasEstimate, err := rc.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     rc.address,
		To:       &ctfAddr,
		GasPrice: gasPrice,
		Data:     callData,
	})
	if err != nil {
		gasEstimate = redeemGasLimit
		slog.Warn("redeem: gas estimate failed, using default", "err", err, "limit", redeemGasLimit)
	}
	// 20% headroom over the estimate
	gasEstimate += gasEstimate / 5

	tx := types.NewTransaction(nonce, ctfAddr, big.NewInt(0), gasEstimate, gasPrice, callData)

	chainID := big.NewInt(polygonChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privKey)
	if err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: sign tx: %w", err)
	}

	if err := rc.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("onchain.RedeemPositions: send tx: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	slog.Info("redeem: transaction sent", "condition", shortCondition(conditionID), "tx", txHash)

	receiptCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	receipt, err := rc.waitForReceipt(receiptCtx, signedTx.Hash())
	if err != nil {
		// TX sent but unconfirmed; it may still land
		slog.Warn("redeem: could not confirm receipt", "tx", txHash, "err", err)
		return txHash, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("onchain.RedeemPositions: tx reverted: %s", txHash)
	}

	slog.Info("redeem: confirmed", "condition", shortCondition(conditionID), "tx", txHash, "gas_used", receipt.GasUsed)
	return txHash, nil
}

// getGasPrice serves the cached gas price while it is fresh and asks the
// node otherwise. An RPC failure falls back to the stale cache, or to a
// flat 30 gwei when nothing was ever cached.
func (rc *ResolutionClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	rc.mu.RLock()
	cached := rc.cachedGasWei
	updatedAt := rc.gasUpdatedAt
	rc.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceTTL {
		return cached, nil
	}

	suggested, err := rc.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(30_000_000_000), nil
	}

	// 10% over the suggestion buys faster inclusion. Mul writes into a
	// fresh Int so the suggested value is never mutated.
	price := new(big.Int).Mul(suggested, big.NewInt(11))
	price.Div(price, big.NewInt(10))

	rc.mu.Lock()
	rc.cachedGasWei = price
	rc.gasUpdatedAt = time.Now()
	rc.mu.Unlock()

	return price, nil
}

// waitForReceipt polls every few seconds until the transaction is mined
// or the context expires.
func (rc *ResolutionClient) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	poll := time.NewTicker(3 * time.Second)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-poll.C:
		}

		if receipt, err := rc.client.TransactionReceipt(ctx, txHash); err == nil {
			return receipt, nil
		}
	}
}

// hexToBytes32 decodes a 0x-prefixed 32-byte hex string.
func hexToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return out, fmt.Errorf("want 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// shortCondition abbreviates a condition id for log lines.
func shortCondition(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
