package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

type ConnectionStore struct {
	connections *mongo.Collection
}

func NewConnectionStore(db *mongo.Database) *ConnectionStore {
	return &ConnectionStore{connections: db.Collection("connections")}
}

// InsertPending stores a new pending request. The partial unique index on
// {pairKey, status: pending} turns a concurrent duplicate into a
// duplicate-key error, which surfaces as a conflict.
func (s *ConnectionStore) InsertPending(ctx context.Context, req *models.Connection) error {
	_, err := s.connections.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.Conflict("A connection request already exists")
		}
		return err
	}
	return nil
}

func (s *ConnectionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	var req models.Connection
	err := s.connections.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("Connection request not found")
		}
		return nil, err
	}
	return &req, nil
}

// Transition conditionally moves a request between statuses. A request
// already out of the source status simply does not match.
func (s *ConnectionStore) Transition(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus) (bool, error) {
	result, err := s.connections.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (s *ConnectionStore) FindPendingBetween(ctx context.Context, a, b primitive.ObjectID) (*models.Connection, error) {
	filter := bson.M{
		"pairKey": models.PairKey(a, b),
		"status":  models.ConnectionStatusPending,
	}
	var req models.Connection
	err := s.connections.FindOne(ctx, filter).Decode(&req)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("No pending request")
		}
		return nil, err
	}
	return &req, nil
}

func (s *ConnectionStore) ListPending(ctx context.Context, recipient primitive.ObjectID) ([]models.Connection, error) {
	filter := bson.M{
		"recipient": recipient,
		"status":    models.ConnectionStatusPending,
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := s.connections.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.Connection
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
