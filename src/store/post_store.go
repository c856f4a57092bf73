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

type PostStore struct {
	posts *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{posts: db.Collection("posts")}
}

func (s *PostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("Post not found")
		}
		return nil, err
	}
	return &post, nil
}

func (s *PostStore) Insert(ctx context.Context, post *models.Post) error {
	_, err := s.posts.InsertOne(ctx, post)
	return err
}

func (s *PostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return errs.NotFound("Post not found")
	}
	return nil
}

// ToggleLike flips userID's membership in the like set with a single
// aggregation-pipeline update, so concurrent toggles by different users
// never lose each other's writes and repeated toggles by the same user
// resolve to their odd/even count.
func (s *PostStore) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"likes": bson.M{
				"$cond": bson.M{
					"if": bson.M{"$in": bson.A{userID, "$likes"}},
					"then": bson.M{"$filter": bson.M{
						"input": "$likes",
						"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
					}},
					"else": bson.M{"$concatArrays": bson.A{"$likes", bson.A{userID}}},
				},
			},
			"updatedAt": "$$NOW",
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Post
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("Post not found")
		}
		return nil, err
	}
	return &updated, nil
}

// AppendComment inserts the comment at position 0 atomically. Concurrent
// commenters all land in the list; their relative order is the server's
// commit order.
func (s *PostStore) AppendComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) (*models.Post, error) {
	update := bson.M{
		"$push": bson.M{
			"comments": bson.M{
				"$each":     bson.A{comment},
				"$position": 0,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Post
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("Post not found")
		}
		return nil, err
	}
	return &updated, nil
}

// List returns a page of posts, newest first.
func (s *PostStore) List(ctx context.Context, page, limit int64) ([]models.Post, int64, error) {
	return s.list(ctx, bson.M{}, page, limit)
}

// ListByAuthor returns a page of one author's posts, newest first.
func (s *PostStore) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, page, limit int64) ([]models.Post, int64, error) {
	return s.list(ctx, bson.M{"author": authorID}, page, limit)
}

func (s *PostStore) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Post, int64, error) {
	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
