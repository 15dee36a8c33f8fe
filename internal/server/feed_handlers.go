package server

import (
	"lookup/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateFeed handles POST /api/feeds
func (s *Server) CreateFeed(c *fiber.Ctx) error {
	var req struct {
		Emoji    string `json:"emoji" form:"emoji"`
		Location string `json:"location" form:"location"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	feed, err := s.feedService.CreateFeed(c.UserContext(), req.Emoji, req.Location)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Feed created.",
		"feedId":  feed.ID,
	})
}

// GetFeedPosts handles GET /api/feeds/:feedId/posts
func (s *Server) GetFeedPosts(c *fiber.Ctx) error {
	feedID := parseFeedID(c.Params("feedId"))
	if feedID == 0 {
		return respondError(c, models.NewValidationError("A valid feedId is required."))
	}

	posts, err := s.postService.ListPostsForFeed(c.UserContext(), feedID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
