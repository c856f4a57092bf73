package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type News struct {
	Id          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Content     string             `json:"content" bson:"content"`
	Image       string             `json:"image" bson:"image"`
	Tags        []string           `json:"tags" bson:"tags"`
	Author      primitive.ObjectID `json:"author" bson:"author"`
	Featured    bool               `json:"featured" bson:"featured"`
	Views       int64              `json:"views" bson:"views"`
	Status      NewsStatus         `json:"status" bson:"status"`
	PublishedAt time.Time          `json:"publishedAt" bson:"publishedAt"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type NewsStatus string

const (
	NewsStatusDraft     NewsStatus = "draft"
	NewsStatusPublished NewsStatus = "published"
	NewsStatusArchived  NewsStatus = "archived"
)

// ViewLog is one row of the append-only view deduplication ledger. Entries
// older than the dedup window are ignored, not pruned.
type ViewLog struct {
	Id        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	NewsId    primitive.ObjectID `json:"newsId" bson:"newsId"`
	ViewerKey string             `json:"viewerKey" bson:"viewerKey"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}
