package grpc

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

const (
	// PrincipalHeader names the metadata key carrying the caller identity
	PrincipalHeader = "x-principal"
	// RequestIDHeader names the metadata key carrying the request id
	RequestIDHeader = "x-request-id"
)

// publicMethodPrefixes are served without a token
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

func isPublic(fullMethod string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// The token may be sent bare or as "Bearer <token>".
// If the token is missing or invalid, it returns status.Unauthenticated.
//
// A token found in boundTokens always acts as its bound principal; an x-principal
// header naming anyone else is rejected with status.PermissionDenied.
// The shared sharedToken (empty disables it) trusts the x-principal header as sent,
// so every holder of it can act as any owner or as the price authority.
func AuthInterceptor(sharedToken string, boundTokens map[string]domain.Principal) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		token := strings.TrimPrefix(authHeaders[0], "Bearer ")
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		var claimed domain.Principal
		if principals := md.Get(PrincipalHeader); len(principals) > 0 {
			claimed = domain.Principal(strings.TrimSpace(principals[0]))
		}

		if bound, ok := lookupToken(boundTokens, token); ok {
			if claimed != "" && claimed != bound {
				return nil, status.Error(codes.PermissionDenied, "principal does not match token")
			}
			return handler(domain.WithPrincipal(ctx, bound), req)
		}

		if sharedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sharedToken)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		if claimed != "" {
			ctx = domain.WithPrincipal(ctx, claimed)
		}

		return handler(ctx, req)
	}
}

// lookupToken compares token against every bound token in constant time
func lookupToken(boundTokens map[string]domain.Principal, token string) (domain.Principal, bool) {
	var found domain.Principal
	ok := false
	for candidate, principal := range boundTokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			found, ok = principal, true
		}
	}
	return found, ok
}

// LoggingInterceptor logs every unary call with its request id, duration and status code.
// The request id is taken from x-request-id when the client sends one and echoed in the response header.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	log = log.With().Str("component", "grpc").Logger()

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 {
				requestID = ids[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		// Fails only outside a real server transport, e.g. in unit tests
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		var event *zerolog.Event
		switch code {
		case codes.OK:
			event = log.Info()
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			event = log.Error().Err(err)
		default:
			event = log.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("request_id", requestID).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC call")

		return resp, err
	}
}
