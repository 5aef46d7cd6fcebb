package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"smartboard-client/internal/model"
	"smartboard-client/internal/store"
)

type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// Device is the platform's push capability.
type Device interface {
	IsDevice() bool
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	PushToken(ctx context.Context) (string, error)
}

type TokenUploader interface {
	RegisterPushToken(ctx context.Context, expoToken, email string) error
}

type PushStatus int

const (
	PushRegistered PushStatus = iota
	PushNoSession
	PushUnsupported
	PushDenied
	PushTokenFailed
	PushUploadFailed
)

func (s PushStatus) String() string {
	switch s {
	case PushRegistered:
		return "registered"
	case PushNoSession:
		return "no session"
	case PushUnsupported:
		return "unsupported device"
	case PushDenied:
		return "permission denied"
	case PushTokenFailed:
		return "token unavailable"
	case PushUploadFailed:
		return "upload failed"
	default:
		return "unknown"
	}
}

// PushResult reports how far registration got. Err holds the failure, if
// any; it is informational.
type PushResult struct {
	Status PushStatus
	Token  string
	Err    error
}

type PushSessions interface {
	Current() *model.Session
}

// PushRegistrar uploads the device push token. It never fails its caller:
// out-of-app alerts are the only thing that depends on it.
type PushRegistrar struct {
	device   Device
	kv       store.KV
	uploader TokenUploader
	sessions PushSessions
	log      *zap.Logger
}

func NewPushRegistrar(device Device, kv store.KV, uploader TokenUploader, sessions PushSessions, log *zap.Logger) *PushRegistrar {
	return &PushRegistrar{device: device, kv: kv, uploader: uploader, sessions: sessions, log: log}
}

func (r *PushRegistrar) Register(ctx context.Context) PushResult {
	cur := r.sessions.Current()
	if cur == nil {
		return PushResult{Status: PushNoSession}
	}
	if !r.device.IsDevice() {
		r.log.Info("push notifications need a physical device")
		return PushResult{Status: PushUnsupported}
	}

	perm, err := r.device.Permission(ctx)
	if err != nil {
		r.log.Warn("push permission lookup", zap.Error(err))
		perm = PermissionUndetermined
	}
	if perm != PermissionGranted {
		perm, err = r.device.RequestPermission(ctx)
		if err != nil {
			r.log.Warn("push permission request", zap.Error(err))
			return PushResult{Status: PushDenied, Err: err}
		}
	}
	if perm != PermissionGranted {
		r.log.Info("push permission not granted", zap.String("permission", string(perm)))
		return PushResult{Status: PushDenied}
	}

	token, err := r.device.PushToken(ctx)
	if err == nil && token == "" {
		err = errors.New("empty push token")
	}
	if err != nil {
		r.log.Warn("push token unavailable", zap.Error(err))
		return PushResult{Status: PushTokenFailed, Err: err}
	}

	if err := r.kv.SetMany(ctx, map[string]string{store.KeyPushToken: token}); err != nil {
		r.log.Warn("persist push token", zap.Error(err))
	}

	if err := r.uploader.RegisterPushToken(ctx, token, cur.User.Email); err != nil {
		r.log.Warn("register push token", zap.Error(err))
		return PushResult{Status: PushUploadFailed, Token: token, Err: err}
	}
	r.log.Info("push token registered")
	return PushResult{Status: PushRegistered, Token: token}
}
