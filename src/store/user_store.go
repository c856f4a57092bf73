package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// UserStore is the identity directory. Connection sets are mutated only
// through AddConnection/RemoveConnection, which the connection state
// machine owns.
type UserStore struct {
	users *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{users: db.Collection("users")}
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("User not found")
		}
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

// FindManyByUsername resolves usernames by exact match. Usernames with no
// matching user are simply absent from the result.
func (s *UserStore) FindManyByUsername(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	opts := options.Find().SetProjection(bson.M{
		"username":       1,
		"name":           1,
		"profilePicture": 1,
		"headline":       1,
	})
	cursor, err := s.users.Find(ctx, bson.M{"username": bson.M{"$in": usernames}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindManyByID loads the trimmed user shapes for response population.
func (s *UserStore) FindManyByID(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	opts := options.Find().SetProjection(bson.M{
		"username":       1,
		"name":           1,
		"profilePicture": 1,
		"headline":       1,
		"connections":    1,
	})
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddConnection adds otherID to the user's connection set. $addToSet keeps
// the operation idempotent and duplicate-free.
func (s *UserStore) AddConnection(ctx context.Context, userID, otherID primitive.ObjectID) error {
	result, err := s.users.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"connections": otherID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errs.NotFound("User not found")
	}
	return nil
}

// RemoveConnection removes otherID from the user's connection set.
func (s *UserStore) RemoveConnection(ctx context.Context, userID, otherID primitive.ObjectID) error {
	result, err := s.users.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"connections": otherID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errs.NotFound("User not found")
	}
	return nil
}
