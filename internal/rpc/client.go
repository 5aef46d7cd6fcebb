// Package rpc is the optional gRPC read path for notifications. It speaks
// the notification.v1 wire format directly through a pass-through codec;
// mutations stay on the REST client.
package rpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"smartboard-client/internal/api"
	"smartboard-client/internal/middleware"
	"smartboard-client/internal/model"
)

const (
	MethodUnreadCount       = "/notification.v1.NotificationService/UnreadCount"
	MethodListNotifications = "/notification.v1.NotificationService/ListNotifications"
)

type Client struct {
	conn *grpc.ClientConn
	log  *zap.Logger
}

// Dial connects to addr (e.g. "localhost:50051") and attaches the session's
// bearer token to every call.
func Dial(addr string, tokens middleware.TokenSource, log *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(middleware.UnaryAuth(tokens)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpc dial: %w", err)
	}
	return &Client{conn: conn, log: log}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	resp, err := c.invoke(ctx, MethodUnreadCount)
	if err != nil {
		return 0, err
	}
	n, err := parseCount(resp)
	if err != nil {
		return 0, fmt.Errorf("rpc unread count: %w", err)
	}
	return n, nil
}

func (c *Client) ListNotifications(ctx context.Context) ([]model.NotificationItem, error) {
	resp, err := c.invoke(ctx, MethodListNotifications)
	if err != nil {
		return nil, err
	}
	items, err := parseNotifications(resp)
	if err != nil {
		return nil, fmt.Errorf("rpc list notifications: %w", err)
	}
	return items, nil
}

// invoke sends an empty request; the server scopes by the bearer token.
func (c *Client) invoke(ctx context.Context, method string) ([]byte, error) {
	resp := &rawMsg{}
	err := c.conn.Invoke(ctx, method, &rawMsg{}, resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st, _ := status.FromError(err)
		c.log.Debug("rpc error", zap.String("method", method), zap.String("code", st.Code().String()), zap.String("message", st.Message()))
		if st.Code() == codes.Unauthenticated {
			return nil, fmt.Errorf("%s: %s: %w", method, st.Message(), api.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp.data, nil
}
