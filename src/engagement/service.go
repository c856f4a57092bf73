// Package engagement owns the concurrency-safe mutations on shared post
// state: like toggles, comment appends and post creation with mention
// resolution. All mutations go through single atomic storage operations;
// the fetch-whole-document-then-save pattern is deliberately absent.
package engagement

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/mentions"
	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// PostStore is the persistence surface the service needs. ToggleLike and
// AppendComment must be atomic read-modify-writes on the stored document:
// concurrent calls may interleave freely but none may overwrite a sibling's
// effect.
type PostStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Insert(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ToggleLike adds userID to the post's like set when absent and removes
	// it when present, in one atomic update, returning the updated post.
	ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)

	// AppendComment inserts the comment at the head of the post's comment
	// list in one atomic update, returning the updated post.
	AppendComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) (*models.Post, error)
}

// Directory is the slice of the user directory used for mention resolution.
type Directory interface {
	FindManyByUsername(ctx context.Context, usernames []string) ([]models.User, error)
}

// Fanout receives the side effects of successful mutations. Implementations
// must be best-effort: they never report failure back.
type Fanout interface {
	PostLiked(post *models.Post, likerID primitive.ObjectID)
	PostCommented(post *models.Post, comment models.Comment)
	MentionedInPost(post *models.Post)
}

type Service struct {
	posts  PostStore
	users  Directory
	fanout Fanout
}

func NewService(posts PostStore, users Directory, fanout Fanout) *Service {
	return &Service{posts: posts, users: users, fanout: fanout}
}

// ToggleLike flips the caller's like on a post. Repeating the call undoes
// it; an even number of calls by the same user is a no-op overall. The
// notification fires only when the resulting state is "liked".
func (s *Service) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.LikedBy(userID) {
		s.fanout.PostLiked(post, userID)
	}
	return post, nil
}

// AppendComment adds a comment at the head of the post's comment list.
func (s *Service) AppendComment(ctx context.Context, postID, userID primitive.ObjectID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("Comment content cannot be empty")
	}

	comment := models.Comment{
		Id:        primitive.NewObjectID(),
		User:      userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	post, err := s.posts.AppendComment(ctx, postID, comment)
	if err != nil {
		return nil, err
	}
	s.fanout.PostCommented(post, comment)
	return post, nil
}

// CreatePost parses the content for @mentions, resolves them against the
// user directory and stores the post. Unresolved tokens are dropped
// silently; a secret post must mention at least one real user.
func (s *Service) CreatePost(ctx context.Context, authorID primitive.ObjectID, content, image string, isSecret bool) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("Post content cannot be empty")
	}

	mentioned, err := s.resolveMentions(ctx, content)
	if err != nil {
		return nil, err
	}
	if isSecret && len(mentioned) == 0 {
		return nil, errs.Validation("A secret post must mention at least one existing user")
	}

	now := time.Now()
	post := &models.Post{
		Id:        primitive.NewObjectID(),
		Author:    authorID,
		Content:   content,
		Image:     image,
		Mentions:  mentioned,
		IsSecret:  isSecret,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, err
	}
	s.fanout.MentionedInPost(post)
	return post, nil
}

// DeletePost removes a post; only the author may do so. Embedded likes and
// comments go with the document.
func (s *Service) DeletePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author != userID {
		return errs.Unauthorized("You are not authorized to delete this post")
	}
	return s.posts.Delete(ctx, postID)
}

// resolveMentions maps mention tokens to user ids, keeping first-appearance
// order and dropping tokens that match no username.
func (s *Service) resolveMentions(ctx context.Context, content string) ([]primitive.ObjectID, error) {
	tokens := mentions.Tokens(content)
	if len(tokens) == 0 {
		return nil, nil
	}

	users, err := s.users.FindManyByUsername(ctx, tokens)
	if err != nil {
		return nil, err
	}
	byUsername := make(map[string]primitive.ObjectID, len(users))
	for _, u := range users {
		byUsername[u.Username] = u.Id
	}

	var (
		resolved []primitive.ObjectID
		seen     = map[primitive.ObjectID]struct{}{}
	)
	for _, token := range tokens {
		id, ok := byUsername[token]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}
	return resolved, nil
}
