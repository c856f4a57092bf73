package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taiga-shiokawa/miyakobook/src/controllers"
)

// PostRoutes sets up the feed, post CRUD and engagement routes.
func PostRoutes(app *fiber.App, ctrl *controllers.PostController, protect fiber.Handler) {
	post := app.Group("/api/v1/posts", protect)

	post.Get("/", ctrl.GetFeedPosts)
	post.Get("/my-posts", ctrl.GetMyPosts)
	post.Post("/create", ctrl.CreatePost)
	post.Get("/:id", ctrl.GetPostByID)
	post.Delete("/delete/:id", ctrl.DeletePost)
	post.Post("/:id/like", ctrl.LikePost)
	post.Post("/:id/comment", ctrl.CommentOnPost)
}
