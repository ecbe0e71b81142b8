package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// ResourceSetRepository implements domain.ResourceSetRepository using
// MongoDB.
type ResourceSetRepository struct {
	coll *mongo.Collection
}

// NewResourceSetRepository creates a new resource set repository.
func NewResourceSetRepository(db *mongo.Database) *ResourceSetRepository {
	return &ResourceSetRepository{coll: db.Collection(ResourceSetsCollection)}
}

// Get retrieves a resource set by ID.
func (r *ResourceSetRepository) Get(ctx context.Context, id string) (*domain.ResourceSet, error) {
	var rs domain.ResourceSet
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rs)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &rs, nil
}

// GetByOwner retrieves a resource set by ID scoped to its owner. A resource
// set registered by a different owner is indistinguishable from an absent
// one.
func (r *ResourceSetRepository) GetByOwner(ctx context.Context, owner, id string) (*domain.ResourceSet, error) {
	var rs domain.ResourceSet
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&rs)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &rs, nil
}

// Insert registers a new resource set.
func (r *ResourceSetRepository) Insert(ctx context.Context, rs *domain.ResourceSet) error {
	rs.CreatedAt = time.Now()
	rs.UpdatedAt = rs.CreatedAt

	_, err := r.coll.InsertOne(ctx, rs)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}

// Update replaces the stored resource set.
func (r *ResourceSetRepository) Update(ctx context.Context, rs *domain.ResourceSet) error {
	rs.UpdatedAt = time.Now()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": rs.ID}, rs)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

// Delete removes the resource set.
func (r *ResourceSetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}
