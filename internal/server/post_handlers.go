package server

import (
	"lookup/internal/models"
	"lookup/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts (multipart: image, caption, isVideo, userId, feedId)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in := service.CreatePostInput{
		Caption: c.FormValue("caption"),
		IsVideo: parseBoolFlag(c.FormValue("isVideo")),
		UserID:  c.FormValue("userId"),
		FeedID:  parseFeedID(c.FormValue("feedId")),
	}

	// A missing file leaves in.File nil and the service rejects it.
	if header, err := c.FormFile("image"); err == nil {
		file, err := header.Open()
		if err != nil {
			return respondError(c, models.NewValidationError("Uploaded file could not be read."))
		}
		defer file.Close()
		in.File = file
		in.Filename = header.Filename
	}

	res, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Post created.",
		"postId":    res.PostID,
		"imagePath": res.ImagePath,
	})
}

// GetPosts handles GET /api/posts, the legacy listing of every post.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListAllPosts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
