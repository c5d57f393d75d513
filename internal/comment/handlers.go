package comment

import (
	"backend-tweeter/internal/engagement"
	"backend-tweeter/internal/identity"
	"backend-tweeter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, likes *engagement.Service, requireViewer, optionalViewer fiber.Handler) {
	r.Post("/", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Content == "" || req.PostID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "content and post_id required")
		}

		created, err := svc.Create(c.Context(), req.PostID, viewer.ID, req.Content)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", optionalViewer, func(c *fiber.Ctx) error {
		postID := c.Query("post_id")
		if postID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "post_id required")
		}

		viewer, _ := identity.ViewerFrom(c)
		comments, err := svc.ListForPost(c.Context(), postID, viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(comments)
	})

	r.Patch("/:id", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil || req.Content == "" {
			return fiber.NewError(fiber.StatusBadRequest, "content required")
		}

		updated, err := svc.Update(c.Context(), c.Params("id"), viewer.ID, req.Content)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(updated)
	})

	r.Delete("/:id", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		if err := svc.Delete(c.Context(), c.Params("id"), viewer.ID); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "comment deleted"})
	})

	r.Post("/:id/like", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		res, err := likes.Toggle(c.Context(), engagement.TargetComment, c.Params("id"), viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(res)
	})
}
