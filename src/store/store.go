// Package store holds the MongoDB-backed persistence layer. Collection
// names and update shapes follow the conventions used across the rest of
// the application: raw bson documents, atomic field operators, and
// FindOneAndUpdate with the post-image for mutations whose result is
// returned to the caller.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the stores rely on. The partial unique
// index on connections is load-bearing: it is what makes the
// duplicate-pending-request guard race-safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := db.Collection("posts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "likes", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("connections").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": "pending"}),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("notifications").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("news").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "views", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("viewlogs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "newsId", Value: 1}, {Key: "viewerKey", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}

// isNoDocuments reports the driver's empty-result sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
