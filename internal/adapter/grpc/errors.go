package grpc

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// ErrorDomain identifies ErrorInfo details produced by this service
const ErrorDomain = "rebalancer.v1"

// statusCodes maps operation failure codes to gRPC status codes
var statusCodes = map[domain.ErrorCode]codes.Code{
	domain.CodeNotAuthorized:      codes.PermissionDenied,
	domain.CodeInvalidAllocation:  codes.InvalidArgument,
	domain.CodeInvalidPrice:       codes.InvalidArgument,
	domain.CodeRebalanceNotNeeded: codes.FailedPrecondition,
	domain.CodeAssetExists:        codes.AlreadyExists,
	domain.CodePortfolioNotFound:  codes.NotFound,
}

// mapError converts domain errors to gRPC status errors.
// Domain failures carry an ErrorInfo detail with their reason and numeric code.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		code, ok := statusCodes[de.Code]
		if !ok {
			code = codes.Unknown
		}
		if de == domain.ErrDuplicatePortfolio {
			code = codes.AlreadyExists
		}

		st := status.New(code, de.Message)
		detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   de.Reason,
			Domain:   ErrorDomain,
			Metadata: map[string]string{"code": strconv.Itoa(int(de.Code))},
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}

// remoteError is a status received from the server that also unwraps to the domain sentinel it encodes
type remoteError struct {
	st     *status.Status
	domain *domain.Error
}

func (e *remoteError) Error() string {
	return e.st.Err().Error()
}

func (e *remoteError) Unwrap() error {
	return e.domain
}

func (e *remoteError) GRPCStatus() *status.Status {
	return e.st
}

// FromStatus restores the domain error carried by a status returned from this service,
// so callers can use errors.Is and domain.CodeOf on client errors.
// Errors without such a detail are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if de, ok := domain.ErrorByReason(info.GetReason()); ok {
			return &remoteError{st: st, domain: de}
		}
	}
	return err
}
