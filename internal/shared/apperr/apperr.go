package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors returned by the services. Anything not in this list is
// treated as a storage failure and surfaces as a 500.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid operation")
	ErrConflict     = errors.New("conflict")
)

func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ToFiber maps a service error to the fiber error the default error
// handler turns into a JSON response.
func ToFiber(err error) *fiber.Error {
	return fiber.NewError(Status(err), err.Error())
}
