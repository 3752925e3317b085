package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// SigningKey is one public key published by the identity provider.
type SigningKey struct {
	ID        string
	Algorithm string
	Public    crypto.PublicKey
}

// KeySet maps key IDs to signing keys. A KeySet is never modified after
// construction; refreshes build a new one.
type KeySet struct {
	keys map[string]SigningKey
}

// NewKeySet builds a key set from keys, indexed by ID.
func NewKeySet(keys ...SigningKey) *KeySet {
	set := &KeySet{keys: make(map[string]SigningKey, len(keys))}
	for _, k := range keys {
		set.keys[k.ID] = k
	}
	return set
}

// Lookup returns the key with the given ID.
func (s *KeySet) Lookup(kid string) (SigningKey, bool) {
	if s == nil {
		return SigningKey{}, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

type jwkDocument struct {
	Keys *[]json.RawMessage `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parseKeySet decodes a JWKS document. Keys that cannot be used for
// signature verification under allowed are skipped; a usable key with
// missing or corrupt material fails the whole document.
func parseKeySet(body []byte, allowed map[string]bool) (*KeySet, error) {
	var doc jwkDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing jwks json: %w", err)
	}
	if doc.Keys == nil {
		return nil, errors.New("invalid jwks: missing keys")
	}

	keys := make([]SigningKey, 0, len(*doc.Keys))
	for i, raw := range *doc.Keys {
		var k jwk
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("invalid jwk at index %d: %w", i, err)
		}
		if k.Use == "enc" || (k.Kty != "RSA" && k.Kty != "EC") {
			continue
		}
		if k.Kid == "" {
			return nil, fmt.Errorf("invalid jwk at index %d: missing kid", i)
		}

		key, err := k.signingKey()
		if err != nil {
			return nil, fmt.Errorf("invalid jwk %q: %w", k.Kid, err)
		}
		if !allowed[key.Algorithm] {
			continue
		}
		keys = append(keys, key)
	}

	return NewKeySet(keys...), nil
}

func (k jwk) signingKey() (SigningKey, error) {
	switch k.Kty {
	case "RSA":
		pub, err := parseRSAJWK(k.N, k.E)
		if err != nil {
			return SigningKey{}, err
		}
		alg := k.Alg
		if alg == "" {
			alg = "RS256"
		}
		return SigningKey{ID: k.Kid, Algorithm: alg, Public: pub}, nil
	case "EC":
		pub, err := parseECJWK(k.Crv, k.X, k.Y)
		if err != nil {
			return SigningKey{}, err
		}
		alg := k.Alg
		if alg == "" {
			alg = ecAlgorithm(k.Crv)
		}
		return SigningKey{ID: k.Kid, Algorithm: alg, Public: pub}, nil
	default:
		return SigningKey{}, fmt.Errorf("unsupported kty %q", k.Kty)
	}
}

func parseRSAJWK(nStr, eStr string) (*rsa.PublicKey, error) {
	if nStr == "" || eStr == "" {
		return nil, errors.New("missing n/e")
	}
	nBytes, err := decodeB64URL(nStr)
	if err != nil {
		return nil, fmt.Errorf("decoding rsa n: %w", err)
	}
	eBytes, err := decodeB64URL(eStr)
	if err != nil {
		return nil, fmt.Errorf("decoding rsa e: %w", err)
	}
	if len(eBytes) > 4 {
		return nil, errors.New("rsa exponent too large")
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e < 2 {
		return nil, errors.New("invalid rsa exponent")
	}
	n := new(big.Int).SetBytes(nBytes)
	if n.Sign() <= 0 {
		return nil, errors.New("invalid rsa modulus")
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

func parseECJWK(crv, xStr, yStr string) (*ecdsa.PublicKey, error) {
	if crv == "" || xStr == "" || yStr == "" {
		return nil, errors.New("missing crv/x/y")
	}
	curve, err := parseECCurve(crv)
	if err != nil {
		return nil, err
	}
	xBytes, err := decodeB64URL(xStr)
	if err != nil {
		return nil, fmt.Errorf("decoding ec x: %w", err)
	}
	yBytes, err := decodeB64URL(yStr)
	if err != nil {
		return nil, fmt.Errorf("decoding ec y: %w", err)
	}

	x := new(big.Int).SetBytes(xBytes)
	y := new(big.Int).SetBytes(yBytes)
	if !curve.IsOnCurve(x, y) {
		return nil, errors.New("ec point not on curve")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func parseECCurve(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported ec curve %q", crv)
	}
}

func ecAlgorithm(crv string) string {
	switch crv {
	case "P-384":
		return "ES384"
	case "P-521":
		return "ES512"
	default:
		return "ES256"
	}
}

// JWK uses base64url without padding.
func decodeB64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
