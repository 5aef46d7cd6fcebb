// Package app wires the session, navigation, OTP and notification layers
// to their storage and transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"smartboard-client/internal/api"
	"smartboard-client/internal/config"
	"smartboard-client/internal/middleware"
	"smartboard-client/internal/model"
	"smartboard-client/internal/nav"
	"smartboard-client/internal/notify"
	"smartboard-client/internal/otp"
	"smartboard-client/internal/rpc"
	"smartboard-client/internal/session"
	"smartboard-client/internal/store"
)

// StoreMemory as the store path keeps the session in process memory only.
const StoreMemory = "memory"

type Options struct {
	// Device overrides the push capability; nil means the terminal device
	// configured by SMARTBOARD_PUSH_TOKEN.
	Device notify.Device
	// Transport overrides the base HTTP transport under the middleware.
	Transport http.RoundTripper
}

type App struct {
	Config   config.Config
	Log      *zap.Logger
	KV       store.KV
	Sessions *session.Store
	Router   *nav.Router
	Gate     *nav.Gate
	API      *api.Client
	RPC      *rpc.Client
	Engine   *notify.Engine
	Poller   *notify.Poller
	OTP      *otp.Flow
	Push     *notify.PushRegistrar
}

// New builds every component and restores the persisted session.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, KV: kv}
	a.Sessions = session.New(kv, log.Named("session"))
	a.Router = nav.NewRouter(nav.Location{Path: nav.RouteEntry})
	a.Gate = nav.NewGate(a.Sessions, a.Router, log.Named("nav"))

	rl := middleware.NewRateLimiter(cfg.AuthRPS, cfg.AuthBurst)
	hc := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: middleware.Chain(opts.Transport,
			middleware.RequestID(),
			middleware.RateLimit(rl),
			middleware.Auth(a.Sessions),
		),
	}
	a.API = api.New(cfg.APIURL, hc, log.Named("api"))

	var fetch notify.Fetcher = a.API
	if cfg.RPCAddr != "" {
		a.RPC, err = rpc.Dial(cfg.RPCAddr, a.Sessions, log.Named("rpc"))
		if err != nil {
			kv.Close()
			return nil, err
		}
		fetch = a.RPC
	}
	a.Engine = notify.NewEngine(fetch, a.API, a.Sessions, log.Named("notify"))
	a.Poller = notify.NewPoller(a.Engine, a.Sessions, cfg.PollInterval, log.Named("poll"))
	a.OTP = otp.NewFlow(a.API, a.Sessions, a.Router, log.Named("otp"), cfg.OTPCooldown)

	device := opts.Device
	if device == nil {
		device = TerminalDevice{Token: cfg.PushToken}
	}
	a.Push = notify.NewPushRegistrar(device, kv, a.API, a.Sessions, log.Named("push"))

	a.Gate.Start(ctx)
	a.Sessions.Restore(ctx)
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.KV, error) {
	var (
		kv  store.KV
		err error
	)
	switch {
	case cfg.DatabaseURL != "":
		ns, _ := os.Hostname()
		kv, err = store.OpenPostgres(ctx, cfg.DatabaseURL, ns)
	case cfg.StorePath == StoreMemory:
		kv = store.NewMemory()
	default:
		kv, err = store.OpenSQLite(cfg.StorePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.SealKey != "" {
		key, err := store.ParseKey(cfg.SealKey)
		if err != nil {
			kv.Close()
			return nil, err
		}
		kv = store.NewSealed(kv, key)
	}
	return kv, nil
}

// Login is the entry screen's submit: credentials in, session out.
func (a *App) Login(ctx context.Context, email, password string) (*model.User, error) {
	res, err := a.API.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, errors.New("login: response carried no user")
	}
	if err := a.Sessions.Login(ctx, res.Token, res.RefreshToken, *res.User); err != nil {
		return nil, err
	}
	return res.User, nil
}

// Close tears components down in reverse order of construction.
func (a *App) Close() error {
	a.Poller.Stop()
	a.Engine.Close()
	a.Gate.Stop()
	var errs []error
	if a.RPC != nil {
		errs = append(errs, a.RPC.Close())
	}
	errs = append(errs, a.KV.Close())
	return errors.Join(errs...)
}
