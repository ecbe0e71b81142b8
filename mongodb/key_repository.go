package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/halcyon-auth/halcyon/domain"
)

// KeyRepository implements domain.KeyRepository using MongoDB.
type KeyRepository struct {
	coll *mongo.Collection
}

// NewKeyRepository creates a new key repository.
func NewKeyRepository(db *mongo.Database) *KeyRepository {
	return &KeyRepository{coll: db.Collection(KeysCollection)}
}

// GetAll returns every stored key.
func (r *KeyRepository) GetAll(ctx context.Context) ([]domain.JSONWebKey, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []domain.JSONWebKey
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Upsert stores the key, replacing any previous key with the same kid.
func (r *KeyRepository) Upsert(ctx context.Context, key *domain.JSONWebKey) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": key.Kid}, key, opts)
	return err
}
