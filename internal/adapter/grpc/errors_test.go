package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

func TestMapError_DomainErrors(t *testing.T) {
	tests := []struct {
		err      *domain.Error
		wantCode codes.Code
	}{
		{domain.ErrNotAuthorized, codes.PermissionDenied},
		{domain.ErrInvalidAllocation, codes.InvalidArgument},
		{domain.ErrInvalidThreshold, codes.InvalidArgument},
		{domain.ErrInvalidPrice, codes.InvalidArgument},
		{domain.ErrRebalanceNotNeeded, codes.FailedPrecondition},
		{domain.ErrAssetExists, codes.AlreadyExists},
		{domain.ErrPortfolioNotFound, codes.NotFound},
		{domain.ErrDuplicatePortfolio, codes.AlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.err.Reason, func(t *testing.T) {
			err := mapError(fmt.Errorf("wrapped: %w", tt.err))

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.err.Message, st.Message())

			require.Len(t, st.Details(), 1)
			info, ok := st.Details()[0].(*errdetails.ErrorInfo)
			require.True(t, ok)
			assert.Equal(t, tt.err.Reason, info.Reason)
			assert.Equal(t, ErrorDomain, info.Domain)
			assert.Equal(t, fmt.Sprint(int(tt.err.Code)), info.Metadata["code"])

			// The client side restores the exact sentinel
			restored := FromStatus(err)
			assert.ErrorIs(t, restored, tt.err)
			code, ok := domain.CodeOf(restored)
			assert.True(t, ok)
			assert.Equal(t, tt.err.Code, code)
			assert.Equal(t, tt.wantCode, status.Code(restored))
		})
	}
}

func TestMapError_OtherErrors(t *testing.T) {
	assert.NoError(t, mapError(nil))

	assert.Equal(t, codes.Internal, status.Code(mapError(errors.New("disk on fire"))))
	assert.Equal(t, codes.Canceled, status.Code(mapError(fmt.Errorf("query: %w", context.Canceled))))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(mapError(context.DeadlineExceeded)))

	passthrough := status.Error(codes.Unauthenticated, "missing principal")
	assert.Equal(t, passthrough, mapError(passthrough))
}

func TestFromStatus_WithoutDetail(t *testing.T) {
	assert.NoError(t, FromStatus(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, FromStatus(plain))

	st := status.Error(codes.Unavailable, "connection refused")
	assert.Equal(t, st, FromStatus(st))

	foreign, err := status.New(codes.NotFound, "x").WithDetails(&errdetails.ErrorInfo{Reason: "PORTFOLIO_NOT_FOUND", Domain: "other.service"})
	require.NoError(t, err)
	restored := FromStatus(foreign.Err())
	assert.NotErrorIs(t, restored, domain.ErrPortfolioNotFound)
}
