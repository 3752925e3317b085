package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://clerk.example.com"

// jwksServer serves a swappable JWKS document and counts fetches.
type jwksServer struct {
	*httptest.Server
	mu     sync.Mutex
	body   []byte
	status int
	before func(r *http.Request)
	hits   atomic.Int32
}

func newJWKSServer(t *testing.T, keys ...map[string]interface{}) *jwksServer {
	t.Helper()
	s := &jwksServer{status: http.StatusOK}
	s.setKeys(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, body, before := s.status, s.body, s.before
		s.mu.Unlock()
		if before != nil {
			before(r)
		}
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKeys(t *testing.T, keys ...map[string]interface{}) {
	t.Helper()
	if keys == nil {
		keys = []map[string]interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{"keys": keys})
	require.NoError(t, err)
	s.setRaw(http.StatusOK, body)
}

// hold runs fn before every response is written.
func (s *jwksServer) hold(fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = fn
}

func (s *jwksServer) setRaw(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func newECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func rsaJWK(kid, alg string, pub *rsa.PublicKey) map[string]interface{} {
	jwk := map[string]interface{}{
		"kid": kid,
		"kty": "RSA",
		"use": "sig",
		"n":   b64(pub.N.Bytes()),
		"e":   b64(big.NewInt(int64(pub.E)).Bytes()),
	}
	if alg != "" {
		jwk["alg"] = alg
	}
	return jwk
}

func ecJWK(kid string, pub *ecdsa.PublicKey) map[string]interface{} {
	return map[string]interface{}{
		"kid": kid,
		"kty": "EC",
		"crv": "P-256",
		"x":   b64(pub.X.FillBytes(make([]byte, 32))),
		"y":   b64(pub.Y.FillBytes(make([]byte, 32))),
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}
