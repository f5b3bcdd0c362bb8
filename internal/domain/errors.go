package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the numeric code an operation failure is reported with
type ErrorCode int

const (
	CodeNotAuthorized      ErrorCode = 100
	CodeInvalidAllocation  ErrorCode = 102
	CodeInvalidPrice       ErrorCode = 103
	CodeRebalanceNotNeeded ErrorCode = 104
	CodeAssetExists        ErrorCode = 105
	CodePortfolioNotFound  ErrorCode = 106
)

// Error is a typed operation failure.
// Callers distinguish failures by Code; Reason separates failures sharing a code
// (e.g. InvalidThreshold and InvalidAllocation are both 102).
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

var (
	ErrNotAuthorized = &Error{Code: CodeNotAuthorized, Reason: "NOT_AUTHORIZED", Message: "caller is not authorized"}

	ErrInvalidAllocation = &Error{Code: CodeInvalidAllocation, Reason: "INVALID_ALLOCATION", Message: "invalid allocation: basis points exceed 10000"}
	ErrInvalidThreshold  = &Error{Code: CodeInvalidAllocation, Reason: "INVALID_THRESHOLD", Message: "invalid threshold: basis points exceed 10000"}
	ErrInvalidPrice      = &Error{Code: CodeInvalidPrice, Reason: "INVALID_PRICE", Message: "invalid price: must be positive"}

	ErrRebalanceNotNeeded = &Error{Code: CodeRebalanceNotNeeded, Reason: "REBALANCE_NOT_NEEDED", Message: "rebalance not needed: drift below threshold"}
	ErrAssetExists        = &Error{Code: CodeAssetExists, Reason: "ASSET_EXISTS", Message: "asset already exists in portfolio"}

	ErrPortfolioNotFound  = &Error{Code: CodePortfolioNotFound, Reason: "PORTFOLIO_NOT_FOUND", Message: "portfolio not found"}
	ErrDuplicatePortfolio = &Error{Code: CodePortfolioNotFound, Reason: "DUPLICATE_PORTFOLIO", Message: "portfolio already exists for owner"}
)

// Lookup misses on read paths. These never leave the service layer: reads report
// absence as a nil result instead.
var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrPriceNotFound = errors.New("price not found")
)

var knownErrors = []*Error{
	ErrNotAuthorized,
	ErrInvalidAllocation,
	ErrInvalidThreshold,
	ErrInvalidPrice,
	ErrRebalanceNotNeeded,
	ErrAssetExists,
	ErrPortfolioNotFound,
	ErrDuplicatePortfolio,
}

// CodeOf returns the code carried by err, if any
func CodeOf(err error) (ErrorCode, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}

// ErrorByReason returns the sentinel with the given reason
func ErrorByReason(reason string) (*Error, bool) {
	for _, e := range knownErrors {
		if e.Reason == reason {
			return e, true
		}
	}
	return nil, false
}
