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

type NotificationStore struct {
	notifications *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{notifications: db.Collection("notifications")}
}

func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.notifications.InsertOne(ctx, n)
	return err
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := s.notifications.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags a notification as read. The recipient filter keeps users
// from acknowledging each other's notifications.
func (s *NotificationStore) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	filter := bson.M{"_id": id, "recipient": recipient}
	update := bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Notification
	err := s.notifications.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("Notification not found")
		}
		return nil, err
	}
	return &updated, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	result, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return errs.NotFound("Notification not found")
	}
	return nil
}
