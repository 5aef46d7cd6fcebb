package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryAuth attaches the bearer token to outgoing gRPC calls. Without a
// session the call is refused locally with codes.Unauthenticated.
func UnaryAuth(tokens TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		raw := tokens.AccessToken()
		if raw == "" {
			return status.Error(codes.Unauthenticated, ErrNoSession.Error())
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+raw)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
