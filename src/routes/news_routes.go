package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taiga-shiokawa/miyakobook/src/controllers"
)

// NewsRoutes sets up the news routes. Reading and view registration are
// public; publishing requires an authenticated admin.
func NewsRoutes(app *fiber.App, ctrl *controllers.NewsController, protect fiber.Handler) {
	news := app.Group("/api/v1/news")

	news.Get("/", ctrl.GetNews)
	news.Get("/:newsId", ctrl.GetNewsByID)
	news.Post("/:newsId/view", ctrl.RegisterView)
	news.Post("/", protect, ctrl.PostNews)
}
