// Package session owns the authenticated identity of the client and keeps it
// in durable storage so it survives restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartboard-client/internal/auth"
	"smartboard-client/internal/model"
	"smartboard-client/internal/store"
)

var ErrMissingCredentials = errors.New("session: access token, refresh token and user are required")

var sessionKeys = []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyUser}

// Snapshot is the observable state published to subscribers.
type Snapshot struct {
	Session *model.Session
	Loading bool
	// Tag identifies one logged-in period. Empty when logged out.
	Tag string
}

type Listener func(Snapshot)

type Store struct {
	kv  store.KV
	log *zap.Logger

	// wmu spans a storage write and the matching memory update, so storage
	// and memory always describe the same session.
	wmu sync.Mutex

	mu      sync.Mutex
	cur     *model.Session
	tag     string
	loading bool
	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn Listener
}

// New returns a store in the loading state. Call Restore once at startup.
func New(kv store.KV, log *zap.Logger) *Store {
	return &Store{kv: kv, log: log, loading: true}
}

// Restore loads the persisted session. Anything short of a complete, decodable
// triple leaves the client logged out; nothing is reported to the caller.
// Loading ends after the first call; later calls do nothing.
func (s *Store) Restore(ctx context.Context) {
	s.wmu.Lock()
	sess := s.read(ctx)

	s.mu.Lock()
	if !s.loading {
		s.mu.Unlock()
		s.wmu.Unlock()
		return
	}
	s.loading = false
	// a login that finished during restore wins
	if s.cur == nil && sess != nil {
		s.cur = sess
		s.tag = uuid.NewString()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.wmu.Unlock()

	if snap.Session != nil {
		s.log.Info("session restored",
			zap.String("user_id", string(snap.Session.User.ID)),
			zap.String("role", string(snap.Session.User.Role)),
			zap.String("token", auth.Fingerprint(snap.Session.AccessToken)),
		)
	}
	s.publish(snap)
}

func (s *Store) read(ctx context.Context) *model.Session {
	vals := make(map[string]string, len(sessionKeys))
	for _, k := range sessionKeys {
		v, err := s.kv.Get(ctx, k)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Debug("no stored session", zap.String("missing", k))
			return nil
		}
		if err != nil {
			s.log.Warn("session restore failed", zap.String("key", k), zap.Error(err))
			return nil
		}
		if v == "" {
			s.log.Debug("no stored session", zap.String("empty", k))
			return nil
		}
		vals[k] = v
	}

	var u model.User
	if err := json.Unmarshal([]byte(vals[store.KeyUser]), &u); err != nil {
		s.log.Warn("stored user is corrupt", zap.Error(err))
		return nil
	}
	if u.ID == "" && u.Email == "" {
		s.log.Warn("stored user is empty")
		return nil
	}
	return &model.Session{
		AccessToken:  vals[store.KeyAccessToken],
		RefreshToken: vals[store.KeyRefreshToken],
		User:         u,
	}
}

// Login persists the triple in one write and then publishes the new session.
// Nothing changes in memory if the write fails.
func (s *Store) Login(ctx context.Context, accessToken, refreshToken string, user model.User) error {
	if accessToken == "" || refreshToken == "" || (user.ID == "" && user.Email == "") {
		return ErrMissingCredentials
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}

	s.wmu.Lock()
	err = s.kv.SetMany(ctx, map[string]string{
		store.KeyAccessToken:  accessToken,
		store.KeyRefreshToken: refreshToken,
		store.KeyUser:         string(raw),
	})
	if err != nil {
		s.wmu.Unlock()
		return fmt.Errorf("session: persist: %w", err)
	}

	s.mu.Lock()
	s.cur = &model.Session{AccessToken: accessToken, RefreshToken: refreshToken, User: user}
	s.tag = uuid.NewString()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.wmu.Unlock()

	s.log.Info("logged in",
		zap.String("user_id", string(user.ID)),
		zap.String("role", string(user.Role)),
		zap.String("token", auth.Fingerprint(accessToken)),
	)
	s.publish(snap)
	return nil
}

// Logout clears storage and memory. It is safe without a session; in that
// case nothing is published. The in-memory session is dropped even when the
// storage delete fails, and that failure is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.wmu.Lock()
	err := s.kv.DeleteMany(ctx, sessionKeys...)
	if err != nil {
		s.log.Warn("clearing stored session failed", zap.Error(err))
		err = fmt.Errorf("session: clear: %w", err)
	}

	s.mu.Lock()
	had := s.cur != nil
	s.cur = nil
	s.tag = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.wmu.Unlock()

	if had {
		s.log.Info("logged out")
		s.publish(snap)
	}
	return err
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.cur)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tag
}

func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.AccessToken
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every published change. Listeners run on the
// publishing goroutine, in subscription order, with no lock held, so they
// may call back into the store. A listener that does so should read live
// state rather than trust the snapshot it was handed.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Session: copySession(s.cur), Loading: s.loading, Tag: s.tag}
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func copySession(in *model.Session) *model.Session {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}
