package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"infisicalauth/pkg/universalauth"
)

func newLoginServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, universalauth.LoginPath, r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "infisicalauth/"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestTokenCmd_EnvironmentToken(t *testing.T) {
	isolateEnv(t)
	t.Setenv("INFISICAL_TOKEN", "tok123")

	out, err := executeCommand(t, nil, "token")
	require.NoError(t, err)
	assert.Equal(t, "tok123\n", out)
}

func TestTokenCmd_ExplicitFlagWins(t *testing.T) {
	isolateEnv(t)
	t.Setenv("INFISICAL_TOKEN", "from-env")

	out, err := executeCommand(t, nil, "token", "--token", "from-flag", "-q")
	require.NoError(t, err)
	assert.Equal(t, "from-flag\n", out)
}

func TestTokenCmd_ClientCredentialsJSON(t *testing.T) {
	isolateEnv(t)
	server, hits := newLoginServer(t, http.StatusOK, `{"accessToken":"minted","expiresIn":7200,"tokenType":"Bearer"}`)
	t.Setenv("INFISICAL_CLIENT_ID", "id")
	t.Setenv("INFISICAL_CLIENT_SECRET", "secret")
	t.Setenv("INFISICAL_URL", server.URL)

	out, err := executeCommand(t, nil, "token", "-o", "json", "-q")
	require.NoError(t, err)

	var info tokenInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "minted", info.AccessToken)
	assert.Equal(t, server.URL, info.URL)
	assert.True(t, info.Refreshable)
	assert.Nil(t, info.ExpiresAt)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenCmd_YAML(t *testing.T) {
	isolateEnv(t)
	t.Setenv("INFISICAL_TOKEN", "tok123")

	out, err := executeCommand(t, nil, "token", "--output", "yaml", "--url", "https://forced.example.test")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, "tok123", info["accessToken"])
	assert.Equal(t, "https://forced.example.test", info["url"])
	assert.Equal(t, false, info["refreshable"])
}

func TestTokenCmd_NoCredentials(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, nil, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials found")
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
}

func TestTokenCmd_Rejected(t *testing.T) {
	isolateEnv(t)
	server, _ := newLoginServer(t, http.StatusUnauthorized, `{"statusCode":401,"message":"Invalid credentials"}`)

	_, err := executeCommand(t, nil, "token", "--client-id", "id", "--client-secret", "bad", "--url", server.URL, "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client Error 401: Invalid credentials")
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}

func TestTokenCmd_HalfPair(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, nil, "token", "--client-id", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both client id and client secret")
}

func TestTokenCmd_BadOutput(t *testing.T) {
	isolateEnv(t)
	t.Setenv("INFISICAL_TOKEN", "tok123")

	_, err := executeCommand(t, nil, "token", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
