package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/halcyon-auth/halcyon/cache"
	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// TokenStore implements domain.TokenStore backed by Redis. Access and
// refresh tokens index the same serialized GrantedToken under separate keys.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a new Redis-backed token store.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (r *TokenStore) accessKey(token string) string {
	return fmt.Sprintf("%s:access:%s", r.prefix, cache.HashToken(token))
}

func (r *TokenStore) refreshKey(token string) string {
	return fmt.Sprintf("%s:refresh:%s", r.prefix, cache.HashToken(token))
}

// AddToken implements domain.TokenStore.
func (r *TokenStore) AddToken(ctx context.Context, token *domain.GrantedToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	ttl := time.Until(token.RefreshExpiresAt())
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := r.client.Set(ctx, r.accessKey(token.AccessToken), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if token.RefreshToken != "" {
		if err := r.client.Set(ctx, r.refreshKey(token.RefreshToken), payload, ttl).Err(); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

func (r *TokenStore) get(ctx context.Context, key string) (*domain.GrantedToken, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, serrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var token domain.GrantedToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// GetAccessToken implements domain.TokenStore.
func (r *TokenStore) GetAccessToken(ctx context.Context, accessToken string) (*domain.GrantedToken, error) {
	return r.get(ctx, r.accessKey(accessToken))
}

// GetRefreshToken implements domain.TokenStore.
func (r *TokenStore) GetRefreshToken(ctx context.Context, refreshToken string) (*domain.GrantedToken, error) {
	return r.get(ctx, r.refreshKey(refreshToken))
}

// RemoveToken implements domain.TokenStore.
func (r *TokenStore) RemoveToken(ctx context.Context, accessToken string) error {
	token, err := r.get(ctx, r.accessKey(accessToken))
	if err == nil && token.RefreshToken != "" {
		if err := r.client.Del(ctx, r.refreshKey(token.RefreshToken)).Err(); err != nil {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
	}
	if err := r.client.Del(ctx, r.accessKey(accessToken)).Err(); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	return nil
}

// Clean implements domain.TokenStore. It scans out every token key under the
// store's prefix.
func (r *TokenStore) Clean(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:*", r.prefix)
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan token keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete token keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
