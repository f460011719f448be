package httpclient

import (
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsUserAgentAndRequestID(t *testing.T) {
	var gotUA, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cli, err := New(Options{VerifySSL: true, UserAgent: "test-agent/1"})
	require.NoError(t, err)

	resp, err := cli.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "test-agent/1", gotUA)
	assert.NotEmpty(t, gotID)
}

func TestNew_KeepsCallerRequestID(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	cli, err := New(Options{VerifySSL: true})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed-id")

	resp, err := cli.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "fixed-id", gotID)
}

func TestNew_InsecureWhenVerificationDisabled(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	strict, err := New(Options{VerifySSL: true})
	require.NoError(t, err)
	_, err = strict.Get(server.URL)
	assert.Error(t, err, "self-signed certificate must be rejected when verification is on")

	insecure, err := New(Options{VerifySSL: false})
	require.NoError(t, err)
	resp, err := insecure.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestTLSConfig_CACertFile(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	certPath := filepath.Join(t.TempDir(), "ca.pem")
	writeServerCert(t, server, certPath)

	cli, err := New(Options{VerifySSL: true, CACertFile: certPath})
	require.NoError(t, err)

	resp, err := cli.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := New(Options{VerifySSL: true, CACertFile: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a cert"), 0600))
	_, err = New(Options{VerifySSL: true, CACertFile: garbage})
	assert.Error(t, err)

	_, err = New(Options{VerifySSL: true, CACertDir: filepath.Join(dir, "nope")})
	assert.Error(t, err)
}

func TestTLSConfig_CACertDirSkipsNonPEM(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	dir := t.TempDir()
	writeServerCert(t, server, filepath.Join(dir, "ca.pem"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello"), 0600))

	cfg, err := tlsConfigFor(Options{VerifySSL: true, CACertDir: dir})
	require.NoError(t, err)
	assert.NotNil(t, cfg.RootCAs)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func writeServerCert(t *testing.T, server *httptest.Server, path string) {
	t.Helper()
	cert := server.Certificate()
	pemBytes := pemEncode(cert.Raw)
	require.NoError(t, os.WriteFile(path, pemBytes, 0600))
}

func pemEncode(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestParseVerifySSL(t *testing.T) {
	for _, v := range []string{"false", "FALSE", "0", "no", " No "} {
		assert.False(t, ParseVerifySSL(v), v)
	}
	for _, v := range []string{"", "true", "1", "yes", "anything"} {
		assert.True(t, ParseVerifySSL(v), v)
	}
}

func TestOptionsFromEnvironment(t *testing.T) {
	env := map[string]string{
		EnvVerifySSL:  "false",
		EnvCACertFile: "/etc/ca.pem",
		EnvCACertDir:  "/etc/certs",
	}
	opts := OptionsFromEnvironment(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	assert.Equal(t, Options{VerifySSL: false, CACertFile: "/etc/ca.pem", CACertDir: "/etc/certs"}, opts)

	opts = OptionsFromEnvironment(func(string) (string, bool) { return "", false })
	assert.True(t, opts.VerifySSL)
	assert.Empty(t, opts.CACertFile)
}
