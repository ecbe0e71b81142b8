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

// PolicyRepository implements domain.PolicyRepository using MongoDB.
type PolicyRepository struct {
	coll *mongo.Collection
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *mongo.Database) *PolicyRepository {
	return &PolicyRepository{coll: db.Collection(PoliciesCollection)}
}

// Get retrieves a policy by ID.
func (r *PolicyRepository) Get(ctx context.Context, id string) (*domain.Policy, error) {
	var policy domain.Policy
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&policy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &policy, nil
}

// GetByResourceSet returns every policy attached to the resource set. An
// empty result is not an error: a resource set without policies is open.
func (r *PolicyRepository) GetByResourceSet(ctx context.Context, resourceSetID string) ([]domain.Policy, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"resource_set_ids": resourceSetID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var policies []domain.Policy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// Insert stores a new policy.
func (r *PolicyRepository) Insert(ctx context.Context, policy *domain.Policy) error {
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = policy.CreatedAt

	_, err := r.coll.InsertOne(ctx, policy)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}

// Update replaces the stored policy.
func (r *PolicyRepository) Update(ctx context.Context, policy *domain.Policy) error {
	policy.UpdatedAt = time.Now()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": policy.ID}, policy)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

// Delete removes the policy.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}
