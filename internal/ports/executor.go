package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// OrderExecutor places real buy orders on a venue.
type OrderExecutor interface {
	// PlaceBuy submits a buy for the requested stake and returns the
	// normalized result. A fill-or-kill that does not cross comes back
	// with Filled=false and a nil error: valid outcome, no position.
	PlaceBuy(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// GetBalance returns the available balance in the venue's unit.
	GetBalance(ctx context.Context) (float64, error)
}

// ResolutionSource reads authoritative on-chain resolution state and
// redeems settled positions. It must observe the same contract state a
// redemption call will honor, never an off-chain mirror.
type ResolutionSource interface {
	// GetConditionPayouts reads payoutDenominator and both payoutNumerators
	// slots for a condition. Denominator zero means unresolved.
	GetConditionPayouts(ctx context.Context, conditionID string) (domain.ConditionPayouts, error)

	// RedeemPositions claims the payout for a resolved condition and
	// returns the transaction hash.
	RedeemPositions(ctx context.Context, conditionID string) (string, error)
}
