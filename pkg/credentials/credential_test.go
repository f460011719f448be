package credentials

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infisicalauth/pkg/universalauth"
)

var testSigningKey = []byte("test-signing-key")

// mintToken returns an HS256 token. A zero exp omits the claim.
func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:  "identity-1",
		IssuedAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return token
}

// rawToken builds a three-segment token from literal JSON header and payload.
func rawToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

type fakeExchanger struct {
	calls atomic.Int32
	login func(ctx context.Context) (*universalauth.LoginResponse, error)
}

func (f *fakeExchanger) Login(ctx context.Context, _, _, _ string) (*universalauth.LoginResponse, error) {
	f.calls.Add(1)
	return f.login(ctx)
}

func staticExchanger(token string) *fakeExchanger {
	return &fakeExchanger{login: func(context.Context) (*universalauth.LoginResponse, error) {
		return &universalauth.LoginResponse{AccessToken: token}, nil
	}}
}

func TestCredential_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty token", "", false},
		{"opaque token", "st.abc.def.ghi", true},
		{"opaque single segment", "abc", true},
		{"signed token in the future", mintToken(t, time.Now().Add(time.Hour)), true},
		{"signed token in the past", mintToken(t, time.Now().Add(-time.Minute)), false},
		{"signed token without exp", mintToken(t, time.Time{}), true},
		{"header without alg, past exp", rawToken(`{"typ":"JWT"}`, `{"exp":1000}`), false},
		{"unknown alg, past exp", rawToken(`{"alg":"RS999"}`, `{"exp":1000}`), false},
		{"header without alg, future exp", rawToken(`{"typ":"JWT"}`, fmt.Sprintf(`{"exp":%d}`, time.Now().Add(time.Hour).Unix())), true},
		{"payload not json", rawToken(`{"alg":"HS256"}`, `not-json`), true},
		{"exp not a number", rawToken(`{"alg":"HS256"}`, `{"exp":"soon"}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := NewCredential("https://example.test", tt.token, "", "")
			assert.Equal(t, tt.want, cred.IsValid())
		})
	}
}

func TestCredential_Refreshable(t *testing.T) {
	assert.False(t, NewCredential("u", "tok", "", "").Refreshable())
	assert.False(t, NewCredential("u", "", "id", "").Refreshable())
	assert.False(t, NewCredential("u", "", "", "secret").Refreshable())
	assert.True(t, NewCredential("u", "", "id", "secret").Refreshable())
}

func TestCredential_URLTrimmed(t *testing.T) {
	assert.Equal(t, "https://example.test", NewCredential("https://example.test///", "tok", "", "").URL())
}

func TestCredential_ExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := NewCredential("u", mintToken(t, exp), "", "").ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = NewCredential("u", "opaque", "", "").ExpiresAt()
	assert.False(t, ok)

	_, ok = NewCredential("u", "", "id", "secret").ExpiresAt()
	assert.False(t, ok)
}

func TestCredential_Token_NonRefreshableExpired(t *testing.T) {
	ex := staticExchanger("new")
	cred := NewCredential("u", mintToken(t, time.Now().Add(-time.Hour)), "", "", WithExchanger(ex))

	_, err := cred.Token(context.Background())
	require.Error(t, err)
	assert.True(t, IsCredentialsError(err))
	assert.Contains(t, err.Error(), "expired")
	assert.Equal(t, int32(0), ex.calls.Load())
}

func TestCredential_Token_NoNetworkAgainstServer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cred := NewCredential(server.URL, mintToken(t, time.Now().Add(-time.Hour)), "", "",
		WithHTTPClient(server.Client()))

	_, err := cred.Token(context.Background())
	assert.True(t, IsCredentialsError(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestCredential_Token_LazyExchange(t *testing.T) {
	fresh := mintToken(t, time.Now().Add(time.Hour))
	ex := staticExchanger(fresh)
	cred := NewCredential("u", "", "id", "secret", WithExchanger(ex))

	assert.False(t, cred.IsValid())
	assert.Equal(t, int32(0), ex.calls.Load())

	token, err := cred.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.True(t, cred.IsValid())
	assert.False(t, cred.RefreshedAt().IsZero())

	// A valid token is served without another exchange.
	_, err = cred.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestCredential_Token_RefreshesExpired(t *testing.T) {
	fresh := mintToken(t, time.Now().Add(time.Hour))
	ex := staticExchanger(fresh)
	cred := NewCredential("u", mintToken(t, time.Now().Add(-time.Minute)), "id", "secret", WithExchanger(ex))

	token, err := cred.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestCredential_Token_SingleFlight(t *testing.T) {
	fresh := mintToken(t, time.Now().Add(time.Hour))

	var hits atomic.Int32
	entered := make(chan struct{})
	gate := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
		}
		<-gate
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": fresh, "expiresIn": 3600})
	}))
	defer server.Close()

	cred := NewCredential(server.URL, mintToken(t, time.Now().Add(-time.Minute)), "id", "secret",
		WithHTTPClient(server.Client()))

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = cred.Token(context.Background())
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cred.Token(context.Background())
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fresh, results[i])
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestCredential_Token_RefreshFailureKeepsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	stale := mintToken(t, time.Now().Add(-time.Minute))
	cred := NewCredential(server.URL, stale, "id", "secret", WithHTTPClient(server.Client()))

	_, err := cred.Token(context.Background())
	require.Error(t, err)
	assert.True(t, IsCredentialsError(err))

	var httpErr *universalauth.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "Client Error 401: Invalid credentials")

	assert.Equal(t, stale, cred.current())
}

func TestCredential_Token_CancelledRefresh(t *testing.T) {
	fresh := mintToken(t, time.Now().Add(time.Hour))
	stale := mintToken(t, time.Now().Add(-time.Minute))

	var block atomic.Bool
	block.Store(true)
	ex := &fakeExchanger{login: func(ctx context.Context) (*universalauth.LoginResponse, error) {
		if block.Load() {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &universalauth.LoginResponse{AccessToken: fresh}, nil
	}}
	cred := NewCredential("u", stale, "id", "secret", WithExchanger(ex), WithRefreshTimeout(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cred.Token(ctx)
	require.Error(t, err)
	assert.True(t, IsCredentialsError(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, stale, cred.current())

	// The flight ends at its own timeout and is released, so a later call retries.
	block.Store(false)
	require.Eventually(t, func() bool {
		token, err := cred.Token(context.Background())
		return err == nil && token == fresh
	}, time.Second, 10*time.Millisecond)
}

func TestCredential_Token_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	fresh := mintToken(t, time.Now().Add(time.Hour))
	stale := mintToken(t, time.Now().Add(-time.Minute))

	entered := make(chan struct{})
	gate := make(chan struct{})
	ex := &fakeExchanger{login: func(ctx context.Context) (*universalauth.LoginResponse, error) {
		close(entered)
		select {
		case <-gate:
			return &universalauth.LoginResponse{AccessToken: fresh}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	cred := NewCredential("u", stale, "id", "secret", WithExchanger(ex))

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	defer cancelLeader()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := cred.Token(leaderCtx)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		token string
		err   error
	}
	waiter := make(chan result, 1)
	go func() {
		token, err := cred.Token(context.Background())
		waiter <- result{token, err}
	}()

	// Let the waiter join the running flight before the leader gives up.
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	err := <-leaderErr
	require.Error(t, err)
	assert.True(t, IsCredentialsError(err))
	assert.ErrorIs(t, err, context.Canceled)

	close(gate)
	res := <-waiter
	require.NoError(t, res.err)
	assert.Equal(t, fresh, res.token)
	assert.Equal(t, fresh, cred.current())
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestCredential_Token_StaleRefresh(t *testing.T) {
	ex := staticExchanger(mintToken(t, time.Now().Add(-time.Minute)))
	cred := NewCredential("u", "", "id", "secret", WithExchanger(ex))

	_, err := cred.Token(context.Background())
	require.Error(t, err)
	assert.True(t, IsCredentialsError(err))
	assert.Contains(t, err.Error(), "already expired")
}

func TestCredential_Token_Clock(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := mintToken(t, exp)

	cred := NewCredential("u", token, "", "", WithClock(func() time.Time { return exp.Add(time.Second) }))
	assert.False(t, cred.IsValid())

	cred = NewCredential("u", token, "", "", WithClock(func() time.Time { return exp.Add(-time.Second) }))
	assert.True(t, cred.IsValid())
}

func TestCredential_Refresh(t *testing.T) {
	t.Run("no-op when not refreshable", func(t *testing.T) {
		ex := staticExchanger("new")
		cred := NewCredential("u", "tok", "", "", WithExchanger(ex))
		require.NoError(t, cred.Refresh(context.Background()))
		assert.Equal(t, int32(0), ex.calls.Load())
		assert.Equal(t, "tok", cred.current())
	})

	t.Run("forces an exchange even when valid", func(t *testing.T) {
		ex := staticExchanger("new")
		cred := NewCredential("u", "old", "id", "secret", WithExchanger(ex))
		require.NoError(t, cred.Refresh(context.Background()))
		assert.Equal(t, int32(1), ex.calls.Load())
		assert.Equal(t, "new", cred.current())
	})

	t.Run("failure is a CredentialsError", func(t *testing.T) {
		ex := &fakeExchanger{login: func(context.Context) (*universalauth.LoginResponse, error) {
			return nil, fmt.Errorf("connection refused")
		}}
		cred := NewCredential("u", "old", "id", "secret", WithExchanger(ex))
		err := cred.Refresh(context.Background())
		require.Error(t, err)
		assert.True(t, IsCredentialsError(err))
		assert.Equal(t, "old", cred.current())
	})
}

func TestCredential_StringRedacts(t *testing.T) {
	cred := NewCredential("https://example.test", "super-token", "id", "super-secret")

	for _, s := range []string{cred.String(), fmt.Sprintf("%v", cred), fmt.Sprintf("%+v", cred.clientSecret), fmt.Sprintf("%#v", cred.clientSecret)} {
		assert.NotContains(t, s, "super-token")
		assert.NotContains(t, s, "super-secret")
	}
	assert.Contains(t, cred.String(), "client-credentials")
}

func TestSecret(t *testing.T) {
	s := NewSecret("hunter2")
	assert.Equal(t, "hunter2", s.Value())
	assert.Equal(t, "[REDACTED]", s.String())
	assert.False(t, s.IsEmpty())

	data, err := json.Marshal(struct{ S Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":"[REDACTED]"}`, string(data))

	assert.True(t, NewSecret("").IsEmpty())
	assert.Equal(t, "", NewSecret("").String())
}

func TestCredentialsError(t *testing.T) {
	cause := errors.New("boom")
	err := NewCredentialsError("failed", cause)
	assert.Equal(t, "failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCredentialsError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsCredentialsError(cause))
	assert.Equal(t, "plain", NewCredentialsError("plain", nil).Error())
}
