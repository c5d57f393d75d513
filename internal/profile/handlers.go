package profile

import (
	"backend-tweeter/internal/identity"
	"backend-tweeter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, requireViewer, optionalViewer fiber.Handler) {
	// Registered before /:username so "search" is not taken as a name.
	r.Get("/search", func(c *fiber.Ctx) error {
		results, err := svc.Search(c.Context(), c.Query("query"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(results)
	})

	r.Get("/:username", optionalViewer, func(c *fiber.Ctx) error {
		viewer, _ := identity.ViewerFrom(c)

		p, err := svc.Get(c.Context(), c.Params("username"), viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(p)
	})

	r.Put("/:username", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}
		if c.Params("username") != viewer.Username {
			return fiber.NewError(fiber.StatusUnauthorized, "not your profile")
		}

		var req EditRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		updated, err := svc.Edit(c.Context(), viewer, req)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(updated)
	})

	r.Post("/:username/follow", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := identity.ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}

		res, err := svc.Follow(c.Context(), c.Params("username"), viewer.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(res)
	})
}
