// Package linkstore implements the availability link lifecycle: short
// opaque allocation tokens handed out at most once per link (Store),
// and the HMAC-signed legacy token format used by existing booking
// links that predate the opaque store (Codec).
package linkstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

var (
	// ErrInvalidToken covers every malformed, expired or tampered
	// legacy token; the caller never learns which, so a forged token
	// can't be used to probe the signing key.
	ErrInvalidToken = errors.New("linkstore: invalid or expired token")
)

// Payload is the legacy token's signed body.
type Payload struct {
	AdvisorID       string `json:"advisorId"`
	IssuedAtMs      int64  `json:"issuedAtMs"`
	ExpiresAtMs     int64  `json:"expiresAtMs"`
	ClientTimezone  string `json:"clientTimezone,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// Codec signs and verifies legacy tokens of the form
// <base64url(payloadJson)>.<base64url(HMAC-SHA256(payloadBase64Url))>.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) Codec {
	return Codec{secret: secret}
}

// Sign encodes payload and signs it, returning the dotted token.
func (c Codec) Sign(payload Payload) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return payloadB64 + "." + base64.RawURLEncoding.EncodeToString(c.hmac(payloadB64)), nil
}

// Verify checks a token's signature, decodes its payload, and enforces
// the payload invariants: advisorId non-empty, expiresAtMs in the
// future, and expiresAtMs > issuedAtMs. Any failure returns
// ErrInvalidToken without distinguishing the cause.
func (c Codec) Verify(token string) (Payload, error) {
	splitAt := strings.LastIndex(token, ".")
	if splitAt <= 0 {
		return Payload{}, ErrInvalidToken
	}
	payloadB64, sigB64 := token[:splitAt], token[splitAt+1:]

	providedSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	expectedSig := c.hmac(payloadB64)
	if len(providedSig) != len(expectedSig) || !hmac.Equal(providedSig, expectedSig) {
		return Payload{}, ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	var payload Payload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return Payload{}, ErrInvalidToken
	}

	if payload.AdvisorID == "" {
		return Payload{}, ErrInvalidToken
	}
	nowMs := time.Now().UnixMilli()
	if payload.ExpiresAtMs <= nowMs {
		return Payload{}, ErrInvalidToken
	}
	if payload.ExpiresAtMs <= payload.IssuedAtMs {
		return Payload{}, ErrInvalidToken
	}

	return payload, nil
}

func (c Codec) hmac(payloadB64 string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payloadB64))
	return mac.Sum(nil)
}
