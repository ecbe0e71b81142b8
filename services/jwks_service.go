package services

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/events"
	"github.com/halcyon-auth/halcyon/internal/crypto"
)

// KeySetService owns the server's RSA key pairs: one signing key and one
// encryption key at a time. Rotation swaps both in place under the write
// lock, so token verification always reads a consistent key set, and flushes
// the token store, invalidating every previously issued token. That flush is
// deliberate and broad; there is no per-key token index.
type KeySetService struct {
	mu sync.RWMutex

	sigKid string
	sigKey *rsa.PrivateKey
	encKid string
	encKey *rsa.PrivateKey

	tokens    domain.TokenStore
	keyRepo   domain.KeyRepository
	publisher events.Publisher
}

// NewKeySetService generates the initial signing and encryption key pairs.
// keyRepo may be nil; when set, serialized keys are persisted on every
// rotation.
func NewKeySetService(tokens domain.TokenStore, keyRepo domain.KeyRepository, publisher events.Publisher) (*KeySetService, error) {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &KeySetService{
		tokens:    tokens,
		keyRepo:   keyRepo,
		publisher: publisher,
	}

	sigKey, err := crypto.GenerateRSAKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	encKey, err := crypto.GenerateRSAKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}

	s.sigKid = uuid.NewString()
	s.sigKey = sigKey
	s.encKid = uuid.NewString()
	s.encKey = encKey

	return s, nil
}

// SigningKey returns the current signing key and its ID.
func (s *KeySetService) SigningKey() (string, *rsa.PrivateKey) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sigKid, s.sigKey
}

// EncryptionKey returns the current encryption key and its ID.
func (s *KeySetService) EncryptionKey() (string, *rsa.PrivateKey) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encKid, s.encKey
}

// PublicKey returns the public half of the key with the given ID, used for
// signature verification.
func (s *KeySetService) PublicKey(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kid {
	case s.sigKid:
		return &s.sigKey.PublicKey, nil
	case s.encKid:
		return &s.encKey.PublicKey, nil
	default:
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
}

// GetJWKS returns the published JSON Web Key Set holding the public halves of
// the current keys.
func (s *KeySetService) GetJWKS() jose.JSONWebKeySet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				KeyID:     s.sigKid,
				Key:       &s.sigKey.PublicKey,
				Algorithm: string(jose.RS256),
				Use:       domain.KeyUseSignature,
			},
			{
				KeyID:     s.encKid,
				Key:       &s.encKey.PublicKey,
				Algorithm: string(jose.RSA_OAEP_256),
				Use:       domain.KeyUseEncryption,
			},
		},
	}
}

// RotateKeys replaces both key pairs and flushes the token store. The flush
// happens exactly once per call, after the new keys are installed, while the
// write lock is still held so no verification can observe a half-rotated
// state.
func (s *KeySetService) RotateKeys(ctx context.Context) error {
	newSigKey, err := crypto.GenerateRSAKey()
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}
	newEncKey, err := crypto.GenerateRSAKey()
	if err != nil {
		return fmt.Errorf("failed to generate encryption key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sigKid = uuid.NewString()
	s.sigKey = newSigKey
	s.encKid = uuid.NewString()
	s.encKey = newEncKey

	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist rotated keys")
	}

	// Every outstanding token was signed with a retired key and can no
	// longer be verified, so the whole store is flushed.
	if err := s.tokens.Clean(ctx); err != nil {
		return fmt.Errorf("failed to flush token store after rotation: %w", err)
	}

	s.publisher.Publish(events.New(events.KeysRotated, "", "", map[string]string{
		"sig_kid": s.sigKid,
		"enc_kid": s.encKid,
	}))

	return nil
}

func (s *KeySetService) persistLocked(ctx context.Context) error {
	if s.keyRepo == nil {
		return nil
	}

	sigPEM, err := crypto.EncodePrivateKeyPEM(s.sigKey)
	if err != nil {
		return err
	}
	encPEM, err := crypto.EncodePrivateKeyPEM(s.encKey)
	if err != nil {
		return err
	}

	if err := s.keyRepo.Upsert(ctx, &domain.JSONWebKey{
		Kid: s.sigKid, Kty: "RSA", Use: domain.KeyUseSignature,
		Alg: string(jose.RS256), SerializedKey: sigPEM,
	}); err != nil {
		return err
	}
	return s.keyRepo.Upsert(ctx, &domain.JSONWebKey{
		Kid: s.encKid, Kty: "RSA", Use: domain.KeyUseEncryption,
		Alg: string(jose.RSA_OAEP_256), SerializedKey: encPEM,
	})
}

// StartRotation rotates the key set on the given interval until the context
// is cancelled.
func (s *KeySetService) StartRotation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RotateKeys(ctx); err != nil {
				log.Error().Err(err).Msg("failed to rotate keys")
			}
		}
	}
}
