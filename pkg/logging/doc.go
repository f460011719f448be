// Package logging provides the subsystem-tagged logging facade used across
// infisicalauth.
//
// It is a thin layer over Go's log/slog. Every entry carries a "subsystem"
// attribute so output from the credential chain, the session decoder and the
// token exchange client can be filtered independently.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Debug("Chain", "trying provider %s", name)
//	logging.Warn("Session", "unsupported vault backend %q", backend)
//	logging.Error("Refresh", err, "token exchange failed")
//
// Library code that is never initialized logs through slog.Default.
//
// # Audit Logging
//
// Credential resolution and refresh emit audit events:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "token_refresh",
//	    Outcome: "success",
//	    Target:  baseURL,
//	})
//
// Audit events never contain token or secret values.
package logging
