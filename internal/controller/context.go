package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// authUserID reads the user id the JWT middleware stored on the
// request. The middleware already rejected requests without a valid
// token, so a bad value here means a route forgot the middleware;
// returning uuid.Nil turns that into a not-found instead of a panic.
func authUserID(ctx *fiber.Ctx) uuid.UUID {
	idStr, _ := ctx.Locals("user_id").(string)
	id, _ := uuid.Parse(idStr)
	return id
}
