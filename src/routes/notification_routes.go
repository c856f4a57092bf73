package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taiga-shiokawa/miyakobook/src/controllers"
)

// NotificationRoutes sets up the notification inbox routes.
func NotificationRoutes(app *fiber.App, ctrl *controllers.NotificationController, protect fiber.Handler) {
	notification := app.Group("/api/v1/notifications", protect)

	notification.Get("/", ctrl.GetUserNotifications)
	notification.Put("/:id/read", ctrl.MarkNotificationAsRead)
	notification.Delete("/:id", ctrl.DeleteNotification)
}
