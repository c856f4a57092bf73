package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// NewsStore persists news articles and the view deduplication ledger. It
// keeps a client handle because Record runs a multi-document transaction.
type NewsStore struct {
	client   *mongo.Client
	news     *mongo.Collection
	viewlogs *mongo.Collection
}

func NewNewsStore(client *mongo.Client, db *mongo.Database) *NewsStore {
	return &NewsStore{
		client:   client,
		news:     db.Collection("news"),
		viewlogs: db.Collection("viewlogs"),
	}
}

// NewsQuery narrows and orders a news listing.
type NewsQuery struct {
	Tag      string
	Featured bool
	Sort     string // latest | popular | oldest
	Page     int64
	Limit    int64
}

func (s *NewsStore) List(ctx context.Context, q NewsQuery) ([]models.News, int64, error) {
	filter := bson.M{"status": models.NewsStatusPublished}
	if q.Tag != "" {
		filter["tags"] = q.Tag
	}
	if q.Featured {
		filter["featured"] = true
	}

	sort := bson.M{"publishedAt": -1}
	switch q.Sort {
	case "popular":
		sort = bson.M{"views": -1}
	case "oldest":
		sort = bson.M{"publishedAt": 1}
	}

	total, err := s.news.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)
	cursor, err := s.news.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var news []models.News
	if err := cursor.All(ctx, &news); err != nil {
		return nil, 0, err
	}
	return news, total, nil
}

func (s *NewsStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.News, error) {
	var article models.News
	err := s.news.FindOne(ctx, bson.M{"_id": id}).Decode(&article)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errs.NotFound("News article not found")
		}
		return nil, err
	}
	return &article, nil
}

func (s *NewsStore) Insert(ctx context.Context, article *models.News) error {
	_, err := s.news.InsertOne(ctx, article)
	return err
}

// Seen checks the ledger for a view by this key inside the window.
func (s *NewsStore) Seen(ctx context.Context, newsID primitive.ObjectID, key string, since time.Time) (bool, error) {
	filter := bson.M{
		"newsId":    newsID,
		"viewerKey": key,
		"timestamp": bson.M{"$gte": since},
	}
	err := s.viewlogs.FindOne(ctx, filter).Err()
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Record appends one ledger entry per viewer key and increments the
// article's counter by one, inside a single transaction. Either everything
// commits or nothing does; there are never phantom ledger entries without a
// matching count.
func (s *NewsStore) Record(ctx context.Context, newsID primitive.ObjectID, keys []string, at time.Time) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	entries := make([]interface{}, len(keys))
	for i, key := range keys {
		entries[i] = models.ViewLog{
			Id:        primitive.NewObjectID(),
			NewsId:    newsID,
			ViewerKey: key,
			Timestamp: at,
		}
	}

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.viewlogs.InsertMany(sc, entries); err != nil {
			return nil, err
		}
		result, err := s.news.UpdateByID(sc, newsID, bson.M{"$inc": bson.M{"views": 1}})
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, errs.NotFound("News article not found")
		}
		return nil, nil
	})
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return err
		}
		if isTransientTxn(err) {
			return errs.Transient("View registration could not be committed", err)
		}
		return err
	}
	return nil
}

// isTransientTxn reports transaction errors the caller may retry: the
// driver's transient/unknown-commit labels and plain timeouts.
func isTransientTxn(err error) bool {
	if mongo.IsTimeout(err) {
		return true
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
