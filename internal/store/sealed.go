package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrInvalidKeyLength = errors.New("store: seal key must be 32 bytes")
	ErrUnseal           = errors.New("store: value could not be unsealed")
)

const nonceSize = 24

// Sealed encrypts every value before it reaches the wrapped backend.
type Sealed struct {
	inner KV
	key   [32]byte
}

func NewSealed(inner KV, key [32]byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// ParseKey decodes a hex-encoded 32-byte key.
func ParseKey(hexKey string) ([32]byte, error) {
	var key [32]byte
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return key, fmt.Errorf("seal key: %w", err)
	}
	if len(b) != len(key) {
		return key, ErrInvalidKeyLength
	}
	copy(key[:], b)
	return key, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	box, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(box) < nonceSize {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}

func (s *Sealed) SetMany(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, v := range values {
		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return err
		}
		box := secretbox.Seal(nonce[:], []byte(v), &nonce, &s.key)
		sealed[k] = base64.StdEncoding.EncodeToString(box)
	}
	return s.inner.SetMany(ctx, sealed)
}

func (s *Sealed) DeleteMany(ctx context.Context, keys ...string) error {
	return s.inner.DeleteMany(ctx, keys...)
}

func (s *Sealed) Close() error { return s.inner.Close() }
