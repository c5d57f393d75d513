package timeline

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
		if req.Content == "" {
			return fiber.NewError(fiber.StatusBadRequest, "content required")
		}

		created, err := svc.Create(c.Context(), viewer.ID, req.Content)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", optionalViewer, func(c *fiber.Ctx) error {
		mode := Mode(c.Query("mode", string(ModeGlobal)))
		viewer, _ := identity.ViewerFrom(c)

		posts, err := svc.Feed(c.Context(), mode, viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(posts)
	})

	r.Get("/:id", optionalViewer, func(c *fiber.Ctx) error {
		viewer, _ := identity.ViewerFrom(c)

		post, err := svc.Get(c.Context(), c.Params("id"), viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(post)
	})

	r.Delete("/:id", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		if err := svc.Delete(c.Context(), c.Params("id"), viewer.ID); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "post deleted"})
	})

	r.Post("/:id/like", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		res, err := likes.Toggle(c.Context(), engagement.TargetPost, c.Params("id"), viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(res)
	})
}
