package services

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWE algorithm/encoding pairs for id_token encryption.
var (
	supportedKeyAlgorithms = []jose.KeyAlgorithm{
		jose.RSA_OAEP,
		jose.RSA_OAEP_256,
	}
	supportedContentEncryptions = []jose.ContentEncryption{
		jose.A128CBC_HS256,
		jose.A256CBC_HS512,
		jose.A128GCM,
		jose.A256GCM,
	}
)

// TokenSigner signs and verifies JWS payloads and wraps them into JWEs, over
// the key set service's current keys.
type TokenSigner struct {
	keys *KeySetService
}

// NewTokenSigner creates a new signer bound to a key set.
func NewTokenSigner(keys *KeySetService) *TokenSigner {
	return &TokenSigner{keys: keys}
}

// Sign produces a JWS over the claims with the current signing key. alg
// selects the JWS algorithm; only RS256 is supported, and an empty alg
// defaults to it.
func (s *TokenSigner) Sign(claims jwt.Claims, alg string) (string, error) {
	if alg != "" && alg != "RS256" {
		return "", fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	kid, key := s.keys.SigningKey()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a JWS and validates its signature against the key set,
// returning the claims.
func (s *TokenSigner) Verify(tokenValue string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid header")
		}
		return s.keys.PublicKey(kid)
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// Encrypt wraps a compact JWS into a JWE using the current encryption key.
func (s *TokenSigner) Encrypt(jws string, alg jose.KeyAlgorithm, enc jose.ContentEncryption) (string, error) {
	if !keyAlgSupported(alg) {
		return "", fmt.Errorf("unsupported key algorithm %q", alg)
	}
	if !contentEncSupported(enc) {
		return "", fmt.Errorf("unsupported content encryption %q", enc)
	}

	kid, key := s.keys.EncryptionKey()

	encrypter, err := jose.NewEncrypter(enc, jose.Recipient{
		Algorithm: alg,
		Key:       &key.PublicKey,
		KeyID:     kid,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build encrypter: %w", err)
	}

	object, err := encrypter.Encrypt([]byte(jws))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt payload: %w", err)
	}

	serialized, err := object.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize JWE: %w", err)
	}
	return serialized, nil
}

// Decrypt unwraps a compact JWE back into its JWS payload.
func (s *TokenSigner) Decrypt(jwe string) (string, error) {
	object, err := jose.ParseEncrypted(jwe, supportedKeyAlgorithms, supportedContentEncryptions)
	if err != nil {
		return "", fmt.Errorf("failed to parse JWE: %w", err)
	}

	_, key := s.keys.EncryptionKey()
	payload, err := object.Decrypt(key)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt JWE: %w", err)
	}
	return string(payload), nil
}

func keyAlgSupported(alg jose.KeyAlgorithm) bool {
	for _, a := range supportedKeyAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}

func contentEncSupported(enc jose.ContentEncryption) bool {
	for _, e := range supportedContentEncryptions {
		if e == enc {
			return true
		}
	}
	return false
}
