package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/halcyon-auth/halcyon/cache"
	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// tokenDocument wraps a granted token with hashed lookup keys so the raw
// token values never appear in indexable fields.
type tokenDocument struct {
	AccessTokenHash  string              `bson:"access_token_hash"`
	RefreshTokenHash string              `bson:"refresh_token_hash,omitempty"`
	Token            domain.GrantedToken `bson:"token"`
}

// TokenRepository implements domain.TokenStore using MongoDB. It is the
// durable alternative to the in-memory and Redis stores; expiry is still
// evaluated by callers at read time.
type TokenRepository struct {
	coll *mongo.Collection
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(TokensCollection)}
}

// AddToken stores a granted token under its hashed lookup keys.
func (r *TokenRepository) AddToken(ctx context.Context, token *domain.GrantedToken) error {
	doc := tokenDocument{
		AccessTokenHash: cache.HashToken(token.AccessToken),
		Token:           *token,
	}
	if token.RefreshToken != "" {
		doc.RefreshTokenHash = cache.HashToken(token.RefreshToken)
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}

// GetAccessToken looks up a granted token by its access token value.
func (r *TokenRepository) GetAccessToken(ctx context.Context, accessToken string) (*domain.GrantedToken, error) {
	return r.findOne(ctx, bson.M{"access_token_hash": cache.HashToken(accessToken)})
}

// GetRefreshToken looks up a granted token by its refresh token value.
func (r *TokenRepository) GetRefreshToken(ctx context.Context, refreshToken string) (*domain.GrantedToken, error) {
	return r.findOne(ctx, bson.M{"refresh_token_hash": cache.HashToken(refreshToken)})
}

// RemoveToken deletes the granted token holding the access token. Removing
// an absent token is not an error.
func (r *TokenRepository) RemoveToken(ctx context.Context, accessToken string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"access_token_hash": cache.HashToken(accessToken)})
	return err
}

// Clean drops every stored token. Invoked on key rotation.
func (r *TokenRepository) Clean(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}

func (r *TokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.GrantedToken, error) {
	var doc tokenDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &doc.Token, nil
}
