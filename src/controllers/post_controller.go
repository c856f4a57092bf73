package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/engagement"
	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/models"
	"github.com/taiga-shiokawa/miyakobook/src/store"
	"github.com/taiga-shiokawa/miyakobook/src/visibility"
)

const feedPageSize = 10

type PostController struct {
	engagement *engagement.Service
	posts      *store.PostStore
	users      *store.UserStore
}

func NewPostController(svc *engagement.Service, posts *store.PostStore, users *store.UserStore) *PostController {
	return &PostController{engagement: svc, posts: posts, users: users}
}

// GetFeedPosts returns a page of the feed, newest first, with the
// visibility filter applied for the caller.
func (ctrl *PostController) GetFeedPosts(c *fiber.Ctx) error {
	user := currentUser(c)
	page := pageParam(c)

	posts, total, err := ctrl.posts.List(c.Context(), page, feedPageSize)
	if err != nil {
		return respondError(c, err)
	}

	dtos, err := populatePosts(c.Context(), ctrl.users, visibility.RevealAll(posts, user.Id))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts":      dtos,
		"pagination": paginationResponse(page, feedPageSize, total),
	})
}

// GetMyPosts returns a page of the caller's own posts.
func (ctrl *PostController) GetMyPosts(c *fiber.Ctx) error {
	user := currentUser(c)
	page := pageParam(c)

	posts, total, err := ctrl.posts.ListByAuthor(c.Context(), user.Id, page, feedPageSize)
	if err != nil {
		return respondError(c, err)
	}

	dtos, err := populatePosts(c.Context(), ctrl.users, posts)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts":      dtos,
		"pagination": paginationResponse(page, feedPageSize, total),
	})
}

// GetPostByID returns one post, visibility-filtered for the caller.
func (ctrl *PostController) GetPostByID(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}
	user := currentUser(c)

	post, err := ctrl.posts.FindByID(c.Context(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return ctrl.respondWithPost(c, fiber.StatusOK, visibility.Reveal(*post, user.Id))
}

// CreatePost creates a post, resolving @mentions and enforcing the
// secret-post rule.
func (ctrl *PostController) CreatePost(c *fiber.Ctx) error {
	type CreatePostRequest struct {
		Content  string `json:"content"`
		Image    string `json:"image,omitempty"`
		IsSecret bool   `json:"isSecret"`
	}

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	user := currentUser(c)

	post, err := ctrl.engagement.CreatePost(c.Context(), user.Id, req.Content, req.Image, req.IsSecret)
	if err != nil {
		return respondError(c, err)
	}
	return ctrl.respondWithPost(c, fiber.StatusCreated, visibility.Reveal(*post, user.Id))
}

// DeletePost deletes a post if the caller is its author.
func (ctrl *PostController) DeletePost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}
	user := currentUser(c)

	if err := ctrl.engagement.DeletePost(c.Context(), postID, user.Id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Post deleted successfully"))
}

// LikePost toggles the caller's like on a post.
func (ctrl *PostController) LikePost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}
	user := currentUser(c)

	post, err := ctrl.engagement.ToggleLike(c.Context(), postID, user.Id)
	if err != nil {
		return respondError(c, err)
	}
	return ctrl.respondWithPost(c, fiber.StatusOK, visibility.Reveal(*post, user.Id))
}

// CommentOnPost appends a comment to a post.
func (ctrl *PostController) CommentOnPost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}

	type CreateCommentRequest struct {
		Content string `json:"content"`
	}
	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	user := currentUser(c)

	post, err := ctrl.engagement.AppendComment(c.Context(), postID, user.Id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return ctrl.respondWithPost(c, fiber.StatusOK, visibility.Reveal(*post, user.Id))
}

func (ctrl *PostController) respondWithPost(c *fiber.Ctx, status int, post models.Post) error {
	dtos, err := populatePosts(c.Context(), ctrl.users, []models.Post{post})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(dtos[0])
}
