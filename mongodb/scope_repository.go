package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// ScopeRepository implements domain.ScopeRepository using MongoDB.
type ScopeRepository struct {
	coll *mongo.Collection
}

// NewScopeRepository creates a new scope repository.
func NewScopeRepository(db *mongo.Database) *ScopeRepository {
	return &ScopeRepository{coll: db.Collection(ScopesCollection)}
}

// GetAll returns every registered scope.
func (r *ScopeRepository) GetAll(ctx context.Context) ([]domain.Scope, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scopes []domain.Scope
	if err := cursor.All(ctx, &scopes); err != nil {
		return nil, err
	}
	return scopes, nil
}

// SearchByNames returns the scopes whose names appear in the list. Unknown
// names are silently skipped.
func (r *ScopeRepository) SearchByNames(ctx context.Context, names []string) ([]domain.Scope, error) {
	if len(names) == 0 {
		return nil, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scopes []domain.Scope
	if err := cursor.All(ctx, &scopes); err != nil {
		return nil, err
	}
	return scopes, nil
}

// Insert registers a new scope.
func (r *ScopeRepository) Insert(ctx context.Context, scope *domain.Scope) error {
	_, err := r.coll.InsertOne(ctx, scope)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}
