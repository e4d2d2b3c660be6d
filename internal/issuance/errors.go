package issuance

import "errors"

// Kind classifies a rejection so callers can render the exact reason.
type Kind int

// Error kinds.
const (
	KindConfiguration Kind = iota + 1
	KindCapacity
	KindWindow
	KindEligibility
	KindState
	KindAuthorization
)

var kindNames = map[Kind]string{
	KindConfiguration: "ConfigurationError",
	KindCapacity:      "CapacityError",
	KindWindow:        "WindowError",
	KindEligibility:   "EligibilityError",
	KindState:         "StateError",
	KindAuthorization: "AuthorizationError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UnknownError"
}

// Error is a typed engine rejection. Sentinels below are compared by identity
// with errors.Is; call sites add detail with fmt.Errorf("%w: ...").
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// CodeOf returns the machine code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Configuration errors.
var (
	ErrAllocationSum             = newError(KindConfiguration, "AllocationSum", "allocation percentages must sum to 10000 bps")
	ErrDuplicateWallet           = newError(KindConfiguration, "DuplicateWallet", "wallet appears more than once")
	ErrZeroAddress               = newError(KindConfiguration, "ZeroAddress", "zero address not allowed")
	ErrReservedAddress           = newError(KindConfiguration, "ReservedAddress", "address is reserved for an engine vault")
	ErrBpsOutOfRange             = newError(KindConfiguration, "BpsOutOfRange", "percentage exceeds 10000 bps")
	ErrInvalidVesting            = newError(KindConfiguration, "InvalidVesting", "vesting duration must be positive and not shorter than the cliff")
	ErrInvalidSupply             = newError(KindConfiguration, "InvalidSupply", "initial supply must be positive and not exceed max supply")
	ErrInvalidMetadata           = newError(KindConfiguration, "InvalidMetadata", "name and symbol are required")
	ErrInvalidPresale            = newError(KindConfiguration, "InvalidPresale", "invalid presale configuration")
	ErrPresaleAllocationTooSmall = newError(KindConfiguration, "PresaleAllocationTooSmall", "presale token pool cannot cover hard cap at the configured rate")
	ErrAmountOverflow            = newError(KindConfiguration, "AmountOverflow", "amount does not fit in uint256")
	ErrInvalidAmount             = newError(KindConfiguration, "InvalidAmount", "amount must be positive")
	ErrTimeOutOfRange            = newError(KindConfiguration, "TimeOutOfRange", "timestamp or duration out of range")
)

// Capacity errors.
var (
	ErrMaxSupplyExceeded   = newError(KindCapacity, "MaxSupplyExceeded", "max supply exceeded")
	ErrHardCapExceeded     = newError(KindCapacity, "HardCapExceeded", "hard cap exceeded")
	ErrInsufficientBalance = newError(KindCapacity, "InsufficientBalance", "insufficient balance")
)

// Window errors.
var (
	ErrPresaleNotActive = newError(KindWindow, "PresaleNotActive", "presale is not active")
	ErrPresaleClosed    = newError(KindWindow, "PresaleClosed", "presale already closed")
)

// Eligibility errors.
var (
	ErrBelowMinimum   = newError(KindEligibility, "BelowMinimum", "contribution below minimum")
	ErrAboveMaximum   = newError(KindEligibility, "AboveMaximum", "contribution above maximum")
	ErrNotWhitelisted = newError(KindEligibility, "NotWhitelisted", "contributor is not whitelisted")
)

// State errors.
var (
	ErrNoPresale         = newError(KindState, "NoPresale", "issuance has no presale")
	ErrNotClosed         = newError(KindState, "NotClosed", "presale is not closed")
	ErrAlreadyFinalized  = newError(KindState, "AlreadyFinalized", "presale already finalized")
	ErrNotFinalized      = newError(KindState, "NotFinalized", "presale has not been finalized successfully")
	ErrNotRefunding      = newError(KindState, "NotRefunding", "presale is not refunding")
	ErrNothingToClaim    = newError(KindState, "NothingToClaim", "nothing to claim")
	ErrNothingToRelease  = newError(KindState, "NothingToRelease", "nothing to release")
	ErrNoVesting         = newError(KindState, "NoVesting", "no vesting schedule for beneficiary")
	ErrNotRevocable      = newError(KindState, "NotRevocable", "vesting schedule is not revocable")
	ErrAlreadyRevoked    = newError(KindState, "AlreadyRevoked", "vesting schedule already revoked")
	ErrNoLiquidityLock   = newError(KindState, "NoLiquidityLock", "no liquidity lock")
	ErrLockAlreadyExists = newError(KindState, "LockAlreadyExists", "liquidity already locked")
	ErrStillLocked       = newError(KindState, "StillLocked", "liquidity is still locked")
	ErrAlreadyWithdrawn  = newError(KindState, "AlreadyWithdrawn", "liquidity already withdrawn")
)

// Authorization errors.
var (
	ErrNotOwner = newError(KindAuthorization, "NotOwner", "caller is not the issuance owner")
)

// capReachedError is returned for contributions after the sale closed by
// reaching its hard cap. It is a capacity rejection that is also a window
// rejection.
type capReachedError struct{}

func (capReachedError) Error() string { return "hard cap exceeded: presale closed at hard cap" }

func (capReachedError) Unwrap() []error {
	return []error{ErrHardCapExceeded, ErrPresaleNotActive}
}
