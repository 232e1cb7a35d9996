package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(time.Minute, testLogger())

	st := store.Create()
	require.NotEmpty(t, st.ID())
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get(st.ID())
	require.True(t, ok)
	assert.Same(t, st, got)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStore_GetOrCreateRecreatesEvicted(t *testing.T) {
	store := NewStore(time.Minute, testLogger())

	st := store.GetOrCreate("fixed-id")
	st.SetPrompt("changed")
	assert.Same(t, st, store.GetOrCreate("fixed-id"))

	clock := time.Now().Add(2 * time.Minute)
	store.now = func() time.Time { return clock }
	assert.Equal(t, 1, store.EvictIdle())
	assert.Equal(t, 0, store.Len())

	fresh := store.GetOrCreate("fixed-id")
	assert.NotSame(t, st, fresh)
	assert.Equal(t, "python", fresh.Snapshot().Language)
	assert.Equal(t, DefaultSource, fresh.Snapshot().Source)
}

func TestStore_EvictIdleSkipsRecentAndBusy(t *testing.T) {
	store := NewStore(time.Minute, testLogger())
	base := time.Now()
	store.now = func() time.Time { return base }

	idle := store.GetOrCreate("idle")
	busy := store.GetOrCreate("busy")
	_ = idle

	runner := newBlockingRunner("x", nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = busy.RunWith(context.Background(), runner, "", DefaultSource, "")
	}()
	<-runner.entered

	store.now = func() time.Time { return base.Add(30 * time.Second) }
	store.GetOrCreate("recent")

	store.now = func() time.Time { return base.Add(70 * time.Second) }
	assert.Equal(t, 1, store.EvictIdle())

	_, ok := store.Get("idle")
	assert.False(t, ok)
	_, ok = store.Get("busy")
	assert.True(t, ok)
	_, ok = store.Get("recent")
	assert.True(t, ok)

	close(runner.release)
	<-done
}

func TestStore_StartStop(t *testing.T) {
	store := NewStore(20*time.Millisecond, testLogger())
	store.GetOrCreate("a")

	store.Start()
	store.Start()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	store.Stop()
	store.Stop()
}

func TestTokens(t *testing.T) {
	_, err := NewTokens("short")
	assert.Error(t, err)

	tokens, err := NewTokens("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	tok, err := tokens.Issue("session-1")
	require.NoError(t, err)

	id, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	other, err := NewTokens("a-completely-different-secret")
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.Error(t, err, "token signed with another secret")

	expired, err := tokens.issueWithLifetime("session-1", -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(expired)
	assert.Error(t, err)

	_, err = tokens.Verify("not.a.token")
	assert.Error(t, err)
}

func TestRandomSecret(t *testing.T) {
	a, err := RandomSecret()
	require.NoError(t, err)
	b, err := RandomSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	_, err = NewTokens(a)
	assert.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	store := NewStore(time.Minute, testLogger())
	tokens, err := NewTokens("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	var seen *State
	h := Middleware(store, tokens, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = st
	}))

	// No cookie: a new session and a cookie for it.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	first := seen
	require.NotNil(t, first)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Same cookie: same session.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Same(t, first, seen)

	// Tampered cookie: a different session.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookies[0].Value + "x"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotSame(t, first, seen)
	assert.Equal(t, 2, store.Len())
}
