package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/models"
	"github.com/taiga-shiokawa/miyakobook/src/store"
	"github.com/taiga-shiokawa/miyakobook/src/views"
)

const newsPageSize = 10

type NewsController struct {
	news      *store.NewsStore
	views     *views.Service
	jwtSecret string
}

func NewNewsController(news *store.NewsStore, viewSvc *views.Service, jwtSecret string) *NewsController {
	return &NewsController{news: news, views: viewSvc, jwtSecret: jwtSecret}
}

// GetNews returns a page of published news, filterable by tag and featured
// flag, sorted by latest, popular or oldest.
func (ctrl *NewsController) GetNews(c *fiber.Ctx) error {
	query := store.NewsQuery{
		Tag:      c.Query("tag"),
		Featured: c.Query("featured") == "true",
		Sort:     c.Query("sort", "latest"),
		Page:     pageParam(c),
		Limit:    newsPageSize,
	}

	news, total, err := ctrl.news.List(c.Context(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"news":       news,
		"pagination": paginationResponse(query.Page, newsPageSize, total),
	})
}

// GetNewsByID returns one news article.
func (ctrl *NewsController) GetNewsByID(c *fiber.Ctx) error {
	newsID, err := primitive.ObjectIDFromHex(c.Params("newsId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid news ID format"))
	}

	article, err := ctrl.news.FindByID(c.Context(), newsID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(article)
}

// PostNews publishes a news article. Admin only.
func (ctrl *NewsController) PostNews(c *fiber.Ctx) error {
	user := currentUser(c)
	if user.UserType != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(lib.MessageResponse("Admin privileges required"))
	}

	type PostNewsRequest struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Image   string   `json:"image,omitempty"`
		Tags    []string `json:"tags"`
	}
	var req PostNewsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	if req.Title == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Title and content are required"))
	}

	now := time.Now()
	article := &models.News{
		Id:          primitive.NewObjectID(),
		Title:       req.Title,
		Content:     req.Content,
		Image:       req.Image,
		Tags:        req.Tags,
		Author:      user.Id,
		Status:      models.NewsStatusPublished,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ctrl.news.Insert(c.Context(), article); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// RegisterView counts a view for a news article, deduplicated per viewer
// over a rolling 24-hour window. The route is public: the viewer key comes
// from the session token when one is present and falls back to the client
// address.
func (ctrl *NewsController) RegisterView(c *fiber.Ctx) error {
	newsID, err := primitive.ObjectIDFromHex(c.Params("newsId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid news ID format"))
	}

	// Preferred key first: the dedup decision uses the authenticated
	// identity when available, the address key only as fallback.
	var keys []string
	if token := c.Cookies(lib.AuthCookieName); token != "" {
		if userID, err := lib.UserIDFromToken(token, ctrl.jwtSecret); err == nil {
			keys = append(keys, views.UserKey(userID))
		}
	}
	if ip := c.IP(); ip != "" {
		keys = append(keys, views.IPKey(ip))
	}

	incremented, err := ctrl.views.RegisterView(c.Context(), newsID, keys)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"incremented": incremented,
	})
}
