package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// ConsentRepository implements domain.ConsentRepository using MongoDB.
type ConsentRepository struct {
	coll *mongo.Collection
}

// NewConsentRepository creates a new consent repository.
func NewConsentRepository(db *mongo.Database) *ConsentRepository {
	return &ConsentRepository{coll: db.Collection(ConsentsCollection)}
}

// Get retrieves the consent the owner granted to the client for the resource
// set.
func (r *ConsentRepository) Get(ctx context.Context, owner, clientID, resourceSetID string) (*domain.Consent, error) {
	filter := bson.M{
		"resource_owner":  owner,
		"client_id":       clientID,
		"resource_set_id": resourceSetID,
	}

	var consent domain.Consent
	err := r.coll.FindOne(ctx, filter).Decode(&consent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &consent, nil
}

// Insert records a new consent.
func (r *ConsentRepository) Insert(ctx context.Context, consent *domain.Consent) error {
	if consent.ID == "" {
		consent.ID = uuid.NewString()
	}
	if consent.GrantedAt.IsZero() {
		consent.GrantedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, consent)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}
