package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/models"
	"github.com/taiga-shiokawa/miyakobook/src/store"
)

// currentUser returns the authenticated user attached by ProtectRoute.
func currentUser(c *fiber.Ctx) models.User {
	return c.Locals("user").(models.User)
}

// respondError maps a service error to its HTTP response. Errors outside
// the taxonomy are logged and reported as server errors.
func respondError(c *fiber.Ctx, err error) error {
	status := errs.Status(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(lib.MessageResponse(errs.Message(err)))
}

// pageParam reads the 1-based page query parameter.
func pageParam(c *fiber.Ctx) int64 {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return int64(page)
}

// paginationResponse mirrors the shape the frontend pages on.
func paginationResponse(page, limit, total int64) fiber.Map {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return fiber.Map{
		"current": page,
		"pages":   pages,
		"total":   total,
	}
}

// populatePosts loads the trimmed user shapes referenced by a batch of
// posts (authors, commenters, mentioned users) in one query and builds the
// response DTOs.
func populatePosts(ctx context.Context, users *store.UserStore, posts []models.Post) ([]models.PostDto, error) {
	idSet := map[primitive.ObjectID]struct{}{}
	for _, p := range posts {
		idSet[p.Author] = struct{}{}
		for _, c := range p.Comments {
			idSet[c.User] = struct{}{}
		}
		for _, m := range p.Mentions {
			idSet[m] = struct{}{}
		}
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	loaded, err := users.FindManyByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserDto, len(loaded))
	for i := range loaded {
		byID[loaded[i].Id] = loaded[i].Dto()
	}

	dtos := make([]models.PostDto, len(posts))
	for i, p := range posts {
		dto := models.PostDto{
			ID:        p.Id,
			Author:    byID[p.Author],
			Content:   p.Content,
			Image:     p.Image,
			IsSecret:  p.IsSecret,
			Likes:     p.Likes,
			Comments:  make([]models.CommentDto, len(p.Comments)),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if dto.Likes == nil {
			dto.Likes = []primitive.ObjectID{}
		}
		for j, cm := range p.Comments {
			dto.Comments[j] = models.CommentDto{
				ID:        cm.Id,
				User:      byID[cm.User],
				Content:   cm.Content,
				CreatedAt: cm.CreatedAt,
			}
		}
		for _, m := range p.Mentions {
			if u, ok := byID[m]; ok {
				dto.Mentions = append(dto.Mentions, u)
			}
		}
		dtos[i] = dto
	}
	return dtos, nil
}
