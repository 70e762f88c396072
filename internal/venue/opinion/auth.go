package opinion

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// sessionClaims is the JWT payload Opinion's auth endpoint issues on
// session creation. The engine only ever verifies expiry locally; the
// venue itself is the authority on signature validity.
type sessionClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"wallet_address"`
}

// session holds a short-lived Opinion session token plus the derived HMAC
// signing key for request authentication, mirroring
// original_source/opinion.py's wallet-based auth against chain id 56.
type session struct {
	mu         sync.RWMutex
	token      string
	expiresAt  time.Time
	signingKey []byte
}

func newSession() *session {
	return &session{}
}

func (s *session) valid(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && now.Before(s.expiresAt)
}

func (s *session) set(token string, expiresAt time.Time, signingKey []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
	s.signingKey = signingKey
}

func (s *session) snapshot() (token string, signingKey []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.signingKey
}

// deriveSigningKey derives the HMAC signing key for a session from the
// account's shared secret using HKDF-SHA256, keyed by the session token so
// a refreshed session invalidates the previous signing material.
func deriveSigningKey(sharedSecret, sessionToken string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(sharedSecret), []byte(sessionToken), []byte("opinion-clob-signing-key"))
	key := make([]byte, 32)
	_, err := io.ReadFull(reader, key)
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// signRequest HMAC-signs timestamp+method+path+body the way the prior adapter's
// order_client.go signs Polymarket CLOB requests, generalized to Opinion's
// session-derived key instead of a static account secret.
func signRequest(signingKey []byte, timestamp, method, path, body string) string {
	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeSessionExpiry parses the exp claim out of a session JWT without
// verifying the signature — verification is the venue's job at request
// time; the adapter only needs to know when to proactively refresh.
func decodeSessionExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &sessionClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Now().Add(5 * time.Minute), nil
	}
	return claims.ExpiresAt.Time, nil
}

// walletAddressHex is a defensive fallback formatter used only in log
// lines; kept tiny and dependency-free.
func walletAddressHex(raw []byte) string {
	return "0x" + hex.EncodeToString(raw)
}
