// Package store holds the durable key-value backends the client keeps its
// credentials in. Multi-key writes and deletes are atomic in every backend.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: key not found")

// Keys written by the session and push layers.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyPushToken    = "expoPushToken"
)

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string]string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Close() error
}
