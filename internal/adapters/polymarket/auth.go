package polymarket

// auth.go — Authenticated access to the Polymarket CLOB.
//
// The CLOB uses two credential levels. L1 is an EIP-712 signature made
// with the wallet key; it is only needed once, to derive the L2 API
// credentials. L2 signs every trading request with HMAC-SHA256 over
// timestamp+method+path+body using the derived secret.

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"
)

const (
	polygonChainID = int64(137)

	// Fixed strings of the ClobAuth EIP-712 domain. Changing any of these
	// produces a signature the CLOB rejects.
	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	clobAuthMessage   = "This message attests that I control the given wallet"

	// Orders with the zero address as taker are fillable by anyone.
	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// clobCreds are the L2 API credentials the CLOB derives from a wallet.
type clobCreds struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// AuthClient extends the public Client with both credential levels.
type AuthClient struct {
	*Client
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	orderBuilder builder.ExchangeOrderBuilder
	creds        *clobCreds
}

// NewAuthClient builds a client able to sign orders with the given Polygon
// private key (hex, no 0x prefix). No network call happens here; credentials
// are derived on the first EnsureCreds.
func NewAuthClient(clobBase, gammaBase, privateKeyHex string) (*AuthClient, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("auth: private key: %w", err)
	}

	return &AuthClient{
		Client:       NewClient(clobBase, gammaBase),
		privateKey:   key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		orderBuilder: builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
	}, nil
}

// Address returns the wallet address in hex.
func (ac *AuthClient) Address() string {
	return ac.address.Hex()
}

// EnsureCreds derives the L2 API credentials if not already cached.
// Safe to call before every authenticated operation.
func (ac *AuthClient) EnsureCreds(ctx context.Context) error {
	if ac.creds != nil {
		return nil
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	signature, err := ac.signL1(now, "0")
	if err != nil {
		return fmt.Errorf("auth: l1 signature: %w", err)
	}

	url := ac.clobBase + "/auth/derive-api-key"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("auth: build derive request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", ac.address.Hex())
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", now)
	req.Header.Set("POLY_NONCE", "0")

	resp, err := ac.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth: derive creds: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: derive creds: status %d: %s", resp.StatusCode, body)
	}

	var creds clobCreds
	if err := json.Unmarshal(body, &creds); err != nil {
		return fmt.Errorf("auth: decode creds: %w", err)
	}
	ac.creds = &creds
	return nil
}

// Hashes of the ClobAuth typed data that never change between requests.
var (
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
	clobAuthSeparator = clobDomainSeparator()
)

func clobDomainSeparator() common.Hash {
	domainTypeHash := crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	return keccakConcat(
		domainTypeHash.Bytes(),
		crypto.Keccak256Hash([]byte(clobDomainName)).Bytes(),
		crypto.Keccak256Hash([]byte(clobDomainVersion)).Bytes(),
		common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32),
	)
}

func keccakConcat(parts ...[]byte) common.Hash {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return crypto.Keccak256Hash(buf)
}

// signL1 produces the EIP-712 ClobAuth signature used to derive credentials.
func (ac *AuthClient) signL1(timestamp, nonce string) (string, error) {
	nonceInt, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return "", fmt.Errorf("auth: bad nonce %q", nonce)
	}

	structHash := keccakConcat(
		clobAuthTypeHash.Bytes(),
		common.LeftPadBytes(ac.address.Bytes(), 32),
		crypto.Keccak256Hash([]byte(timestamp)).Bytes(),
		common.LeftPadBytes(nonceInt.Bytes(), 32),
		crypto.Keccak256Hash([]byte(clobAuthMessage)).Bytes(),
	)
	digest := keccakConcat([]byte{0x19, 0x01}, clobAuthSeparator.Bytes(), structHash.Bytes())

	sig, err := crypto.Sign(digest.Bytes(), ac.privateKey)
	if err != nil {
		return "", err
	}
	// Ethereum convention: recovery id shifted to 27/28.
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

// hmacHeaders signs one L2 request. The timestamp is part of the signed
// message, so headers cannot be reused across attempts.
func (ac *AuthClient) hmacHeaders(method, path, body string) (map[string]string, error) {
	if ac.creds == nil {
		return nil, fmt.Errorf("auth: L2 credentials not derived yet")
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	secret, err := base64.URLEncoding.DecodeString(ac.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(now + strings.ToUpper(method) + path + body))

	return map[string]string{
		"POLY_ADDRESS":    ac.address.Hex(),
		"POLY_SIGNATURE":  base64.URLEncoding.EncodeToString(mac.Sum(nil)),
		"POLY_TIMESTAMP":  now,
		"POLY_API_KEY":    ac.creds.APIKey,
		"POLY_PASSPHRASE": ac.creds.Passphrase,
	}, nil
}

// sendL2 performs a single authenticated attempt and returns the status
// code with the raw body. Transport failures come back as errors.
func (ac *AuthClient) sendL2(ctx context.Context, method, path, body string) (int, []byte, error) {
	headers, err := ac.hmacHeaders(method, path, body)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, ac.clobBase+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ac.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

// doL2 runs an authenticated request with rate limiting and retries.
// Each attempt re-signs, keeping the HMAC timestamp fresh.
func (ac *AuthClient) doL2(ctx context.Context, method, path string, reqBody, out any) error {
	var body string
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = string(b)
	}

	for attempt := 0; ; attempt++ {
		if err := ac.limGeneral.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		status, respBody, err := ac.sendL2(ctx, method, path, body)
		switch {
		case err != nil:
			if attempt == retryLimit {
				return fmt.Errorf("%s %s after %d attempts: %w", method, path, attempt+1, err)
			}
		case retryableStatus(status):
			if attempt == retryLimit {
				return fmt.Errorf("%s %s: status %d after %d attempts: %s", method, path, status, attempt+1, respBody)
			}
		case status >= 400:
			return fmt.Errorf("client error %d: %s", status, respBody)
		default:
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}

		ac.pause(ctx, attempt)
	}
}

// buildSignedOrder signs a BUY order spending `stake` USDC at `price`.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, stake float64, negRisk bool) (*gomodel.SignedOrder, error) {
	maker, taker, err := clobAmounts(price, stake)
	if err != nil {
		return nil, err
	}

	contract := gomodel.CTFExchange
	if negRisk {
		contract = gomodel.NegRiskCTFExchange
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, &gomodel.OrderData{
		Maker:         ac.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(maker, 10),
		TakerAmount:   strconv.FormatInt(taker, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: gomodel.EOA,
	}, contract)
	if err != nil {
		return nil, fmt.Errorf("auth: sign order: %w", err)
	}
	return signed, nil
}

// clobAmounts converts price and stake to integer maker/taker amounts in
// micro-units. The CLOB verifies makerAmount == price × takerAmount exactly,
// so every step stays in integers; float rounding here means a rejection.
func clobAmounts(price, stake float64) (maker, taker int64, err error) {
	precision := tickPrecision(price)
	priceTicks := int64(math.Round(price * float64(precision)))
	shareCents := int64(math.Floor(stake / price * 100))

	factor := int64(1_000_000) / (100 * precision)
	maker = shareCents * priceTicks * factor
	taker = shareCents * 10000

	if maker <= 0 || taker <= 0 {
		return 0, 0, fmt.Errorf("amounts out of range: maker=%d taker=%d (price=%.4f stake=%.4f)", maker, taker, price, stake)
	}
	return maker, taker, nil
}

// tickPrecision finds the smallest power-of-ten multiplier that represents
// the price exactly: 0.60 → 100, 0.673 → 1000.
func tickPrecision(price float64) int64 {
	for _, precision := range []int64{100, 1000, 10000} {
		scaled := math.Round(price * float64(precision))
		if math.Abs(scaled/float64(precision)-price) < 1e-10 {
			return precision
		}
	}
	return 100
}
