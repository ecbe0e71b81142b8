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

// ClientRepository implements domain.ClientStore using MongoDB.
type ClientRepository struct {
	coll *mongo.Collection
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{coll: db.Collection(ClientsCollection)}
}

// GetByID implements domain.ClientStore.
func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.coll.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Insert registers a new client.
func (r *ClientRepository) Insert(ctx context.Context, client *domain.Client) error {
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt

	_, err := r.coll.InsertOne(ctx, client)
	if mongo.IsDuplicateKeyError(err) {
		return serrors.ErrDuplicateKey
	}
	return err
}
