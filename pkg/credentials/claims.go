package credentials

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claimsParser only decodes segments. Tokens are issued by the server; the
// client needs the expiry, not the signature or the header.
var claimsParser = jwt.NewParser()

// tokenExpiry returns the exp claim carried in the payload segment of a
// three-segment token. ok is false for opaque tokens, for payloads that are
// not base64url JSON and for payloads without exp.
func tokenExpiry(token string) (exp time.Time, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := claimsParser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}
	return expiresAt.Time, true
}
