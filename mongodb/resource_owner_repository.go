package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// ResourceOwnerRepository implements domain.ResourceOwnerRepository using
// MongoDB. Passwords are stored bcrypt-hashed and compared on Get.
type ResourceOwnerRepository struct {
	coll *mongo.Collection
}

// NewResourceOwnerRepository creates a new resource owner repository.
func NewResourceOwnerRepository(db *mongo.Database) *ResourceOwnerRepository {
	return &ResourceOwnerRepository{coll: db.Collection(ResourceOwnersCollection)}
}

// Get authenticates the owner by login and plaintext password.
func (r *ResourceOwnerRepository) Get(ctx context.Context, login, password string) (*domain.ResourceOwner, error) {
	owner, err := r.getByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			// Same failure as a wrong password, so a caller cannot
			// distinguish unknown logins from bad credentials.
			return nil, serrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if owner.IsBlocked {
		return nil, serrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(password)); err != nil {
		return nil, serrors.ErrInvalidCredentials
	}
	return owner, nil
}

func (r *ResourceOwnerRepository) getByLogin(ctx context.Context, login string) (*domain.ResourceOwner, error) {
	var owner domain.ResourceOwner
	err := r.coll.FindOne(ctx, bson.M{"login": login}).Decode(&owner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &owner, nil
}

// GetByClaim retrieves the owner holding the given claim type and value.
func (r *ResourceOwnerRepository) GetByClaim(ctx context.Context, claimType, value string) (*domain.ResourceOwner, error) {
	filter := bson.M{"claims": bson.M{"$elemMatch": bson.M{"type": claimType, "value": value}}}

	var owner domain.ResourceOwner
	err := r.coll.FindOne(ctx, filter).Decode(&owner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &owner, nil
}

// Insert registers a new resource owner, hashing the plaintext password.
func (r *ResourceOwnerRepository) Insert(ctx context.Context, owner *domain.ResourceOwner) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(owner.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	owner.Password = string(hashed)
	owner.CreatedAt = time.Now()
	owner.UpdatedAt = owner.CreatedAt

	_, err = r.coll.InsertOne(ctx, owner)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}
