package session_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartboard-client/internal/model"
	"smartboard-client/internal/session"
	"smartboard-client/internal/store"
)

var student = model.User{ID: "7", Email: "a@x.com", Role: model.RoleStudent, FullName: "Ann"}

// flakyKV wraps Memory and fails the operations that are switched on.
type flakyKV struct {
	*store.Memory
	getErr, setErr, delErr error
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyKV) SetMany(ctx context.Context, v map[string]string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Memory.SetMany(ctx, v)
}

func (f *flakyKV) DeleteMany(ctx context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Memory.DeleteMany(ctx, keys...)
}

func setup(t *testing.T) (*session.Store, *flakyKV) {
	t.Helper()
	kv := &flakyKV{Memory: store.NewMemory()}
	return session.New(kv, zap.NewNop()), kv
}

func TestLoginPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	s.Restore(ctx)

	var got []session.Snapshot
	s.Subscribe(func(snap session.Snapshot) { got = append(got, snap) })

	require.NoError(t, s.Login(ctx, "access", "refresh", student))

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, student, cur.User)
	assert.Equal(t, "access", s.AccessToken())
	assert.NotEmpty(t, s.Tag())

	require.Len(t, got, 1)
	assert.Equal(t, s.Tag(), got[0].Tag)
	assert.False(t, got[0].Loading)

	v, err := kv.Get(ctx, store.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", v)

	// restored by a fresh store
	again := session.New(kv, zap.NewNop())
	again.Restore(ctx)
	require.NotNil(t, again.Current())
	assert.Equal(t, student, again.Current().User)
	assert.NotEqual(t, s.Tag(), again.Tag())
}

func TestLoginRejectsMissingCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	s.Restore(ctx)

	assert.ErrorIs(t, s.Login(ctx, "", "r", student), session.ErrMissingCredentials)
	assert.ErrorIs(t, s.Login(ctx, "a", "", student), session.ErrMissingCredentials)
	assert.ErrorIs(t, s.Login(ctx, "a", "r", model.User{}), session.ErrMissingCredentials)
	assert.Nil(t, s.Current())
}

func TestLoginStorageFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	s.Restore(ctx)
	kv.setErr = errors.New("disk full")

	published := 0
	s.Subscribe(func(session.Snapshot) { published++ })

	err := s.Login(ctx, "a", "r", student)
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.setErr)
	assert.Nil(t, s.Current())
	assert.Zero(t, published)
}

func TestLoginReplacesSessionWithNewTag(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	s.Restore(ctx)

	require.NoError(t, s.Login(ctx, "a1", "r1", student))
	first := s.Tag()
	owner := model.User{ID: "9", Email: "b@x.com", Role: model.RoleOwner}
	require.NoError(t, s.Login(ctx, "a2", "r2", owner))

	assert.NotEqual(t, first, s.Tag())
	assert.Equal(t, owner, s.Current().User)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	s.Restore(ctx)
	require.NoError(t, s.Login(ctx, "a", "r", student))

	published := 0
	s.Subscribe(func(snap session.Snapshot) {
		published++
		assert.Nil(t, snap.Session)
		assert.Empty(t, snap.Tag)
	})

	require.NoError(t, s.Logout(ctx))
	first := s.Snapshot()
	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, first, s.Snapshot())
	assert.Equal(t, 1, published)
	for _, k := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyUser} {
		_, err := kv.Get(ctx, k)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestLogoutClearsMemoryWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	s.Restore(ctx)
	require.NoError(t, s.Login(ctx, "a", "r", student))
	kv.delErr = errors.New("locked")

	err := s.Logout(ctx)
	assert.ErrorIs(t, err, kv.delErr)
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Tag())
}

func TestSessionPresentIffLastCallWasLogin(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	s.Restore(ctx)
	rng := rand.New(rand.NewSource(1))

	lastLogin := false
	for i := 0; i < 200; i++ {
		if rng.Intn(2) == 0 {
			require.NoError(t, s.Login(ctx, "a", "r", student))
			lastLogin = true
		} else {
			require.NoError(t, s.Logout(ctx))
			lastLogin = false
		}
		assert.Equal(t, lastLogin, s.Current() != nil)
		assert.Equal(t, lastLogin, s.Tag() != "")
	}
}

func TestRestoreDegradesToLoggedOut(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
		getErr error
	}{
		{name: "empty storage"},
		{name: "token without user", values: map[string]string{
			store.KeyAccessToken: "a", store.KeyRefreshToken: "r",
		}},
		{name: "user without token", values: map[string]string{
			store.KeyUser: `{"id":"1","email":"a@x.com","role":"STUDENT"}`,
		}},
		{name: "empty token", values: map[string]string{
			store.KeyAccessToken: "", store.KeyRefreshToken: "r",
			store.KeyUser: `{"id":"1","email":"a@x.com","role":"STUDENT"}`,
		}},
		{name: "corrupt user", values: map[string]string{
			store.KeyAccessToken: "a", store.KeyRefreshToken: "r", store.KeyUser: "{not json",
		}},
		{name: "empty user object", values: map[string]string{
			store.KeyAccessToken: "a", store.KeyRefreshToken: "r", store.KeyUser: "{}",
		}},
		{name: "storage error", getErr: errors.New("io")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, kv := setup(t)
			require.NoError(t, kv.Memory.SetMany(ctx, tc.values))
			kv.getErr = tc.getErr

			assert.True(t, s.Loading())
			s.Restore(ctx)
			assert.False(t, s.Loading())
			assert.Nil(t, s.Current())
			assert.Empty(t, s.Tag())
		})
	}
}

func TestRestoreNumericUserID(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	require.NoError(t, kv.SetMany(ctx, map[string]string{
		store.KeyAccessToken:  "a",
		store.KeyRefreshToken: "r",
		store.KeyUser:         `{"id":12,"email":"o@x.com","role":"OWNER"}`,
	}))
	s.Restore(ctx)
	require.NotNil(t, s.Current())
	assert.Equal(t, model.ID("12"), s.Current().User.ID)
	assert.Equal(t, model.RoleOwner, s.Current().User.Role)
}

func TestLoadingEndsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)

	var loading []bool
	s.Subscribe(func(snap session.Snapshot) { loading = append(loading, snap.Loading) })

	s.Restore(ctx)
	s.Restore(ctx)
	require.NoError(t, s.Login(ctx, "a", "r", student))
	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, []bool{false, false, false}, loading)
	assert.False(t, s.Loading())
}

func TestLoginDuringLoadingSurvivesRestore(t *testing.T) {
	ctx := context.Background()
	s, kv := setup(t)
	require.NoError(t, s.Login(ctx, "fresh", "r", student))
	require.NoError(t, kv.SetMany(ctx, map[string]string{store.KeyAccessToken: "stale"}))

	tag := s.Tag()
	s.Restore(ctx)
	assert.Equal(t, "fresh", s.AccessToken())
	assert.Equal(t, tag, s.Tag())
}

func TestSubscribersRunInOrderAndCanUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	s.Restore(ctx)

	var order []string
	s.Subscribe(func(session.Snapshot) { order = append(order, "first") })
	stop := s.Subscribe(func(session.Snapshot) { order = append(order, "second") })
	s.Subscribe(func(session.Snapshot) { order = append(order, "third") })

	require.NoError(t, s.Login(ctx, "a", "r", student))
	assert.Equal(t, []string{"first", "second", "third"}, order)

	stop()
	stop()
	order = nil
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestListenerMayCallBackIntoStore(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	s.Restore(ctx)

	s.Subscribe(func(snap session.Snapshot) {
		if snap.Session != nil && !snap.Session.User.Role.Known() {
			_ = s.Logout(ctx)
		}
	})

	require.NoError(t, s.Login(ctx, "a", "r", model.User{ID: "1", Role: "JANITOR"}))
	assert.Nil(t, s.Current())
}

// stallKV holds the first SetMany after it has written, until released.
type stallKV struct {
	*store.Memory
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (k *stallKV) SetMany(ctx context.Context, v map[string]string) error {
	err := k.Memory.SetMany(ctx, v)
	k.once.Do(func() {
		close(k.parked)
		<-k.release
	})
	return err
}

func TestLogoutDuringLoginKeepsStorageAndMemoryInStep(t *testing.T) {
	ctx := context.Background()
	kv := &stallKV{Memory: store.NewMemory(), parked: make(chan struct{}), release: make(chan struct{})}
	s := session.New(kv, zap.NewNop())
	s.Restore(ctx)

	loginDone := make(chan error, 1)
	go func() { loginDone <- s.Login(ctx, "access", "refresh", student) }()
	<-kv.parked

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- s.Logout(ctx) }()
	select {
	case <-logoutDone:
		t.Fatal("logout finished while a login was between storage and memory")
	case <-time.After(50 * time.Millisecond):
	}

	close(kv.release)
	require.NoError(t, <-loginDone)
	require.NoError(t, <-logoutDone)

	assert.Nil(t, s.Current())
	_, err := kv.Get(ctx, store.KeyAccessToken)
	assert.ErrorIs(t, err, store.ErrNotFound)

	again := session.New(kv, zap.NewNop())
	again.Restore(ctx)
	assert.Nil(t, again.Current())
}

func TestOverlappingLoginsAgreeWithStorage(t *testing.T) {
	ctx := context.Background()
	kv := &stallKV{Memory: store.NewMemory(), parked: make(chan struct{}), release: make(chan struct{})}
	s := session.New(kv, zap.NewNop())
	s.Restore(ctx)

	owner := model.User{ID: "9", Email: "o@x.com", Role: model.RoleOwner}
	first := make(chan error, 1)
	go func() { first <- s.Login(ctx, "a1", "r1", student) }()
	<-kv.parked

	second := make(chan error, 1)
	go func() { second <- s.Login(ctx, "a2", "r2", owner) }()
	time.Sleep(20 * time.Millisecond)
	close(kv.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	stored, err := kv.Get(ctx, store.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, stored, s.AccessToken())

	again := session.New(kv, zap.NewNop())
	again.Restore(ctx)
	require.NotNil(t, again.Current())
	assert.Equal(t, s.Current().User, again.Current().User)
}
