// Package visibility applies the mention-gated read filter for secret
// posts. It is a read-path filter only: stored documents are never
// redacted.
package visibility

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// RedactedNotice replaces the content of a secret post for viewers outside
// its mention list.
const RedactedNotice = "This post is visible to mentioned users only."

// CanView reports whether the viewer gets the full post. Authorship
// dominates: an author who also mentions themselves still has full access.
func CanView(post *models.Post, viewerID primitive.ObjectID) bool {
	if !post.IsSecret {
		return true
	}
	if post.Author == viewerID {
		return true
	}
	return post.Mentioned(viewerID)
}

// Reveal returns the post as the viewer is allowed to see it. For viewers
// outside a secret post's audience it returns a stub keeping only the
// identifier, author and timestamps, with the content replaced by the
// notice and engagement data cleared.
func Reveal(post models.Post, viewerID primitive.ObjectID) models.Post {
	if CanView(&post, viewerID) {
		return post
	}
	return models.Post{
		Id:        post.Id,
		Author:    post.Author,
		Content:   RedactedNotice,
		IsSecret:  true,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
}

// RevealAll filters a list of posts for one viewer.
func RevealAll(posts []models.Post, viewerID primitive.ObjectID) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = Reveal(p, viewerID)
	}
	return out
}
