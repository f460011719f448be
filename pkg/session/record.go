package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"

	"infisicalauth/pkg/logging"
)

// DefaultPBES2Count is the PBES2 iteration count used by EncodeRecord.
const DefaultPBES2Count = 8192

var (
	keyAlgorithms = []jose.KeyAlgorithm{
		jose.PBES2_HS256_A128KW,
		jose.PBES2_HS384_A192KW,
		jose.PBES2_HS512_A256KW,
	}
	contentEncryptions = []jose.ContentEncryption{
		jose.A128GCM,
		jose.A192GCM,
		jose.A256GCM,
	}
)

// recordHeader is the protected header of a keyring record.
type recordHeader struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
}

// recordPayload is the decrypted record body. The upstream CLI writes the
// token under a misspelled key; the correct spelling is accepted too.
type recordPayload struct {
	JTWToken string `json:"JTWToken"`
	JWTToken string `json:"JWTToken,omitempty"`
}

// checkCompact verifies the five-segment compact shape before handing the
// record to the JOSE parser, so format problems get a precise reason.
func checkCompact(path, record string) (*recordHeader, error) {
	parts := strings.Split(record, ".")
	if len(parts) != 5 {
		return nil, &RecordFormatError{
			Path:   path,
			Reason: fmt.Sprintf("expected 5 segments, got %d", len(parts)),
		}
	}

	names := [...]string{"header", "encrypted key", "iv", "ciphertext", "tag"}
	decoded := make([][]byte, len(parts))
	for i, part := range parts {
		b, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return nil, &RecordFormatError{Path: path, Reason: names[i] + " is not base64url", Cause: err}
		}
		// The encrypted key is empty for direct encryption; everything else is required.
		if len(b) == 0 && i != 1 {
			return nil, &RecordFormatError{Path: path, Reason: names[i] + " is empty"}
		}
		decoded[i] = b
	}

	var header recordHeader
	if err := json.Unmarshal(decoded[0], &header); err != nil {
		return nil, &RecordFormatError{Path: path, Reason: "header is not JSON", Cause: err}
	}
	if header.Alg == "" || header.Enc == "" {
		return nil, &RecordFormatError{Path: path, Reason: "header is missing alg or enc"}
	}
	return &header, nil
}

// decryptRecord parses and decrypts a compact JWE keyring record and returns
// the bearer token it carries.
func decryptRecord(path, record string, passphrase []byte) (string, error) {
	record = strings.TrimSpace(record)
	header, err := checkCompact(path, record)
	if err != nil {
		return "", err
	}
	logging.Debug("Session", "decrypting keyring record %s (alg=%s enc=%s)", path, header.Alg, header.Enc)

	obj, err := jose.ParseEncryptedCompact(record, keyAlgorithms, contentEncryptions)
	if err != nil {
		return "", &RecordFormatError{Path: path, Reason: "unsupported JWE", Cause: err}
	}

	plaintext, err := obj.Decrypt(passphrase)
	if err != nil {
		return "", &DecryptError{Path: path, Cause: err}
	}

	token, err := decodePayload(plaintext)
	if err != nil {
		return "", &RecordFormatError{Path: path, Reason: "unexpected payload", Cause: err}
	}
	return token, nil
}

// decodePayload unwraps the payload. The CLI double-encodes it: the JWE
// plaintext is a JSON string whose contents are the JSON object.
func decodePayload(plaintext []byte) (string, error) {
	data := plaintext
	var inner string
	if err := json.Unmarshal(data, &inner); err == nil {
		data = []byte(inner)
	}

	var payload recordPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	token := payload.JTWToken
	if token == "" {
		token = payload.JWTToken
	}
	if token == "" {
		return "", fmt.Errorf("payload has no token")
	}
	return token, nil
}

// EncodeRecord produces a keyring record in the format the CLI writes:
// PBES2-HS256+A128KW key wrapping, A256GCM content encryption and a
// double-encoded JSON payload. It is used to seed keyrings for tests and
// for migrating sessions between machines.
func EncodeRecord(token string, passphrase []byte) (string, error) {
	body, err := json.Marshal(recordPayload{JTWToken: token})
	if err != nil {
		return "", err
	}
	wrapped, err := json.Marshal(string(body))
	if err != nil {
		return "", err
	}

	encrypter, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{
		Algorithm:  jose.PBES2_HS256_A128KW,
		Key:        passphrase,
		PBES2Count: DefaultPBES2Count,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("create encrypter: %w", err)
	}

	obj, err := encrypter.Encrypt(wrapped)
	if err != nil {
		return "", fmt.Errorf("encrypt record: %w", err)
	}
	return obj.CompactSerialize()
}
