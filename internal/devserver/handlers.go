package devserver

import (
	"snmvm/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// GetPosts handles GET /posts?page=&limit=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return c.JSON(s.store.ListPosts(currentUser(c), page, limit))
}

// GetPost handles GET /posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	p, err := s.store.GetPost(currentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// GetComments handles GET /comments/:postId
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.store.ListComments(currentUser(c), c.Params("postId"))
	if err != nil {
		return err
	}
	return c.JSON(comments)
}

// CreateComment handles POST /comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	rec, err := s.store.AddComment(currentUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// DeleteComment handles DELETE /comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	if err := s.store.DeleteComment(currentUser(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateReaction handles POST /reactions
func (s *Server) CreateReaction(c *fiber.Ctx) error {
	var req models.CreateReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	rec, err := s.store.AddReaction(currentUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// DeleteReaction handles DELETE /reactions/:id
func (s *Server) DeleteReaction(c *fiber.Ctx) error {
	if err := s.store.DeleteReaction(currentUser(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
