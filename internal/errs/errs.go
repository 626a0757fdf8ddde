// Package errs defines the error-kind taxonomy shared by every ledger/AMM/
// MM-registry/order-book/oracle operation. Each kind is a sentinel that
// callers match with errors.Is; operation-specific detail is added with
// fmt.Errorf("...: %w", Sentinel).
package errs

import "errors"

// Authorization: caller is not the record owner or configured authority.
var ErrUnauthorized = errors.New("unauthorized")

// PreconditionState: market paused, trading disabled, MM suspended,
// position not open, quote inactive/expired, withdrawal not requested or
// delay not elapsed, OCO linkage mismatch, circuit breaker active.
var (
	ErrMarketPaused              = errors.New("market is paused")
	ErrTradingDisabled           = errors.New("trading disabled: circuit breaker active")
	ErrMarketMakerNotActive      = errors.New("market maker is not active")
	ErrPositionNotOpen           = errors.New("position is not open")
	ErrQuoteInactive             = errors.New("quote is inactive or expired")
	ErrWithdrawalNotRequested    = errors.New("withdrawal was not requested")
	ErrWithdrawalDelayNotElapsed = errors.New("withdrawal delay has not elapsed")
	ErrOCOLinkageMismatch        = errors.New("oco linkage mismatch")
	ErrAlreadyBound              = errors.New("user already bound to a referral code")
	ErrCodeAlreadyExists         = errors.New("referral code already exists")
)

// InputRange: invalid leverage/margin ratios/spread/size/price/trigger
// parameters; self-referral; code format.
var (
	ErrInvalidLeverage   = errors.New("invalid leverage")
	ErrInvalidMargins    = errors.New("initial margin ratio must exceed maintenance margin ratio")
	ErrInvalidSpread     = errors.New("spread out of bounds")
	ErrInvalidSize       = errors.New("size out of bounds")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidTrigger    = errors.New("invalid trigger parameters")
	ErrSelfReferral      = errors.New("cannot apply own referral code")
	ErrInvalidCodeFormat = errors.New("invalid referral code format")
)

// Capacity: OI cap, exposure cap, utilization cap, max-quotes reached,
// fill exceeds remaining.
var (
	ErrOpenInterestCapped   = errors.New("open interest cap reached")
	ErrExposureCapped       = errors.New("exposure cap reached")
	ErrUtilizationCapped    = errors.New("utilization cap reached")
	ErrMaxQuotesReached     = errors.New("max quotes reached")
	ErrFillExceedsRemaining = errors.New("fill exceeds remaining size")
)

// Economic: insufficient collateral/available/vault balance; not
// liquidatable; no pending rewards.
var (
	ErrInsufficientCollateral   = errors.New("insufficient collateral")
	ErrInsufficientAvailable    = errors.New("insufficient available balance")
	ErrInsufficientVaultBalance = errors.New("insufficient vault balance")
	ErrNotLiquidatable          = errors.New("position is not liquidatable")
	ErrNoPendingRewards         = errors.New("no pending rewards")
)

// Oracle: invalid or stale price; fetch failure; deviation exceeded.
var (
	ErrStalePrice        = errors.New("oracle price is stale")
	ErrPriceUnavailable  = errors.New("oracle price unavailable")
	ErrDeviationExceeded = errors.New("oracle price deviation exceeded")
)

// Arithmetic: checked overflow (re-exported so callers of ledger/AMM code
// don't need to import fixedpoint just to match this case).
var ErrArithmeticOverflow = errors.New("arithmetic overflow")
