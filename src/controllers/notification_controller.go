package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/models"
	"github.com/taiga-shiokawa/miyakobook/src/store"
)

type NotificationController struct {
	notifications *store.NotificationStore
	users         *store.UserStore
	posts         *store.PostStore
}

func NewNotificationController(notifications *store.NotificationStore, users *store.UserStore, posts *store.PostStore) *NotificationController {
	return &NotificationController{notifications: notifications, users: users, posts: posts}
}

// GetUserNotifications returns the authenticated user's notifications,
// newest first, with the related user populated.
func (ctrl *NotificationController) GetUserNotifications(c *fiber.Ctx) error {
	user := currentUser(c)

	notifications, err := ctrl.notifications.ListByRecipient(c.Context(), user.Id)
	if err != nil {
		return respondError(c, err)
	}

	userIDs := make([]primitive.ObjectID, 0, len(notifications))
	for _, n := range notifications {
		if !n.RelatedUser.IsZero() {
			userIDs = append(userIDs, n.RelatedUser)
		}
	}
	related, err := ctrl.users.FindManyByID(c.Context(), userIDs)
	if err != nil {
		return respondError(c, err)
	}
	byID := make(map[primitive.ObjectID]models.UserDto, len(related))
	for i := range related {
		byID[related[i].Id] = related[i].Dto()
	}

	type NotificationResponse struct {
		ID          primitive.ObjectID      `json:"id"`
		Type        models.NotificationType `json:"type"`
		Read        bool                    `json:"read"`
		RelatedUser *models.UserDto         `json:"relatedUser,omitempty"`
		RelatedPost *primitive.ObjectID     `json:"relatedPost,omitempty"`
		CreatedAt   time.Time               `json:"createdAt"`
	}
	response := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		item := NotificationResponse{
			ID:        n.Id,
			Type:      n.Type,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
		if u, ok := byID[n.RelatedUser]; ok {
			item.RelatedUser = &u
		}
		if !n.RelatedPost.IsZero() {
			postID := n.RelatedPost
			item.RelatedPost = &postID
		}
		response[i] = item
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

// MarkNotificationAsRead marks one of the authenticated user's
// notifications as read.
func (ctrl *NotificationController) MarkNotificationAsRead(c *fiber.Ctx) error {
	notificationID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid notification ID format"))
	}
	user := currentUser(c)

	updated, err := ctrl.notifications.MarkRead(c.Context(), notificationID, user.Id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(updated)
}

// DeleteNotification deletes one of the authenticated user's notifications.
func (ctrl *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	notificationID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid notification ID format"))
	}
	user := currentUser(c)

	if err := ctrl.notifications.Delete(c.Context(), notificationID, user.Id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification deleted successfully"))
}
