// Package fanout emits notifications and best-effort messages as side
// effects of engagement actions. Every emission runs after the primary
// mutation has committed, on its own goroutine; failures are logged and
// discarded so the primary caller never observes them.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/models"
)

// NotificationStore persists notification records.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// Messenger delivers out-of-band messages (email and the like). It is an
// external collaborator; delivery failures stay inside the fan-out.
type Messenger interface {
	Notify(ctx context.Context, kind string, payload map[string]string) error
}

// LogMessenger is the default Messenger: it only logs what would be sent.
type LogMessenger struct{}

func (LogMessenger) Notify(_ context.Context, kind string, payload map[string]string) error {
	log.Info().Str("kind", kind).Fields(map[string]any{"payload": payload}).Msg("message delivery skipped (no messenger configured)")
	return nil
}

type Service struct {
	notifications NotificationStore
	messenger     Messenger
	timeout       time.Duration
	wg            sync.WaitGroup
}

func New(notifications NotificationStore, messenger Messenger) *Service {
	if messenger == nil {
		messenger = LogMessenger{}
	}
	return &Service{
		notifications: notifications,
		messenger:     messenger,
		timeout:       5 * time.Second,
	}
}

// Wait blocks until all in-flight emissions have finished.
func (s *Service) Wait() { s.wg.Wait() }

// PostLiked notifies a post's author that someone liked it. Self-likes are
// skipped.
func (s *Service) PostLiked(post *models.Post, likerID primitive.ObjectID) {
	if post.Author == likerID {
		return
	}
	s.emit(models.Notification{
		Recipient:   post.Author,
		Type:        models.NotificationTypeLike,
		RelatedUser: likerID,
		RelatedPost: post.Id,
	}, "", nil)
}

// PostCommented notifies a post's author about a new comment and asks the
// messenger to deliver a comment email. Self-comments are skipped.
func (s *Service) PostCommented(post *models.Post, comment models.Comment) {
	if post.Author == comment.User {
		return
	}
	s.emit(models.Notification{
		Recipient:   post.Author,
		Type:        models.NotificationTypeComment,
		RelatedUser: comment.User,
		RelatedPost: post.Id,
	}, "commentNotification", map[string]string{
		"postId":      post.Id.Hex(),
		"authorId":    post.Author.Hex(),
		"commenterId": comment.User.Hex(),
		"content":     comment.Content,
	})
}

// MentionedInPost notifies every resolved mentioned user, excluding the
// author.
func (s *Service) MentionedInPost(post *models.Post) {
	for _, userID := range post.Mentions {
		if userID == post.Author {
			continue
		}
		s.emit(models.Notification{
			Recipient:   userID,
			Type:        models.NotificationTypeMention,
			RelatedUser: post.Author,
			RelatedPost: post.Id,
		}, "", nil)
	}
}

// ConnectionAccepted notifies the original sender that their request was
// accepted and asks the messenger to deliver the acceptance email.
func (s *Service) ConnectionAccepted(senderID, recipientID primitive.ObjectID) {
	s.emit(models.Notification{
		Recipient:   senderID,
		Type:        models.NotificationTypeConnectionAccepted,
		RelatedUser: recipientID,
	}, "connectionAccepted", map[string]string{
		"senderId":    senderID.Hex(),
		"recipientId": recipientID.Hex(),
	})
}

func (s *Service) emit(n models.Notification, messageKind string, payload map[string]string) {
	now := time.Now()
	n.Id = primitive.NewObjectID()
	n.Read = false
	n.CreatedAt = now
	n.UpdatedAt = now

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.notifications.Insert(ctx, &n); err != nil {
			log.Error().Err(err).
				Str("type", string(n.Type)).
				Str("recipient", n.Recipient.Hex()).
				Msg("failed to create notification")
		}
		if messageKind == "" {
			return
		}
		if err := s.messenger.Notify(ctx, messageKind, payload); err != nil {
			log.Error().Err(err).Str("kind", messageKind).Msg("failed to deliver message")
		}
	}()
}
