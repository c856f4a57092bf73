package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	Id      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Author  primitive.ObjectID `json:"author" bson:"author"`
	Content string             `json:"content" bson:"content"`
	Image   string             `json:"image" bson:"image"`
	// Mentions holds the resolved mentioned user ids in order of first
	// appearance in the content.
	Mentions []primitive.ObjectID `json:"mentions" bson:"mentions"`
	// IsSecret posts are readable only by the author and the mentioned
	// users; everyone else gets a redacted stub on read.
	IsSecret  bool                 `json:"isSecret" bson:"isSecret"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	Comments  []Comment            `json:"comments" bson:"comments"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// LikedBy reports whether the user is in the post's like set.
func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Mentioned reports whether the user is in the post's resolved mention list.
func (p *Post) Mentioned(userID primitive.ObjectID) bool {
	for _, id := range p.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	Id        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type PostDto struct {
	ID        primitive.ObjectID   `json:"id"`
	Author    UserDto              `json:"author"`
	Content   string               `json:"content,omitempty"`
	Image     string               `json:"image,omitempty"`
	Mentions  []UserDto            `json:"mentions,omitempty"`
	IsSecret  bool                 `json:"isSecret"`
	Likes     []primitive.ObjectID `json:"likes"`
	Comments  []CommentDto         `json:"comments"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type CommentDto struct {
	ID        primitive.ObjectID `json:"id"`
	User      UserDto            `json:"user"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
}
