package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Session tokens authenticate websocket handshakes. The token is an HMAC of
// the session id under the server secret, so the server never stores it:
// possession of a matching (sessionID, token) pair proves the session was
// issued by this server.

// MintSessionToken derives the connect token for a session id.
func MintSessionToken(secret []byte, sessionID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySessionToken checks a presented token in constant time.
func VerifySessionToken(secret []byte, sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	expected := MintSessionToken(secret, sessionID)
	return hmac.Equal([]byte(expected), []byte(token))
}

// Verifier adapts the session token check to the registry's TokenVerifier
// interface.
type Verifier struct {
	Secret []byte
}

func (v Verifier) Verify(sessionID, token string) bool {
	return VerifySessionToken(v.Secret, sessionID, token)
}
