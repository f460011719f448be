// Package httpclient builds the HTTP clients used for token exchange.
package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	cleanhttp "github.com/hashicorp/go-cleanhttp"

	"infisicalauth/pkg/logging"
)

// DefaultTimeout bounds a single token exchange round trip.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// Environment variables read by OptionsFromEnvironment.
const (
	EnvVerifySSL  = "INFISICAL_VERIFY_SSL"
	EnvCACertFile = "SSL_CERT_FILE"
	EnvCACertDir  = "SSL_CERT_DIR"
)

// Options configures New.
type Options struct {
	// VerifySSL disables certificate verification when false.
	VerifySSL bool

	// CACertFile and CACertDir add PEM certificates to the system pool.
	CACertFile string
	CACertDir  string

	// UserAgent is sent on every request that does not set one.
	UserAgent string

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// New returns a cleanhttp pooled client with the configured TLS policy,
// User-Agent and request id round trippers.
func New(opts Options) (*http.Client, error) {
	cli := cleanhttp.DefaultPooledClient()
	cli.Timeout = DefaultTimeout
	if opts.Timeout > 0 {
		cli.Timeout = opts.Timeout
	}

	transport, ok := cli.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected transport type %T", cli.Transport)
	}

	tlsConfig, err := tlsConfigFor(opts)
	if err != nil {
		return nil, err
	}
	transport.TLSClientConfig = tlsConfig

	ua := opts.UserAgent
	if ua == "" {
		ua = UserAgent("dev")
	}
	cli.Transport = &userAgentRoundTripper{
		userAgent: ua,
		inner:     transport,
	}
	return cli, nil
}

// OptionsFromEnvironment returns the TLS policy described by
// INFISICAL_VERIFY_SSL, SSL_CERT_FILE and SSL_CERT_DIR.
func OptionsFromEnvironment(lookup func(string) (string, bool)) Options {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Options{
		VerifySSL:  ParseVerifySSL(get(EnvVerifySSL)),
		CACertFile: get(EnvCACertFile),
		CACertDir:  get(EnvCACertDir),
	}
}

// ParseVerifySSL reports whether TLS verification stays on. Only "false",
// "0" and "no" (any case) turn it off.
func ParseVerifySSL(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "0", "no":
		return false
	}
	return true
}

func tlsConfigFor(opts Options) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !opts.VerifySSL {
		logging.Warn("HTTP", "TLS certificate verification is disabled")
		// #nosec G402 -- explicitly requested through INFISICAL_VERIFY_SSL
		cfg.InsecureSkipVerify = true
		return cfg, nil
	}
	if opts.CACertFile == "" && opts.CACertDir == "" {
		return cfg, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if opts.CACertFile != "" {
		if err := appendPEMFile(pool, opts.CACertFile); err != nil {
			return nil, err
		}
	}
	if opts.CACertDir != "" {
		entries, err := os.ReadDir(opts.CACertDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA directory %s: %w", opts.CACertDir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			// Directories often mix certificates with other files.
			_ = appendPEMFile(pool, filepath.Join(opts.CACertDir, entry.Name()))
		}
	}
	cfg.RootCAs = pool
	return cfg, nil
}

func appendPEMFile(pool *x509.CertPool, path string) error {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read CA file %s: %w", path, err)
	}
	if !pool.AppendCertsFromPEM(data) {
		return fmt.Errorf("no PEM certificates found in %s", path)
	}
	return nil
}

type userAgentRoundTripper struct {
	inner     http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", rt.userAgent)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	logging.Debug("HTTP", "%s %s (request id %s)", req.Method, req.URL.Redacted(), req.Header.Get(RequestIDHeader))
	return rt.inner.RoundTrip(req)
}

// UserAgent returns the User-Agent string for the given version.
func UserAgent(version string) string {
	return "infisicalauth/" + version
}
