package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mentorleofficial/mentorle-api/internal/models"
	"github.com/mentorleofficial/mentorle-api/internal/services"
)

var validate = validator.New()

var errNoCaller = errors.New("no authenticated caller on request")

// callerFromLocals builds the explicit caller identity every service call
// receives. The auth middleware stores user_id and role; nothing downstream
// reads Locals again.
func callerFromLocals(c *fiber.Ctx) (services.AuthenticatedCaller, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return services.AuthenticatedCaller{}, errNoCaller
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return services.AuthenticatedCaller{}, errNoCaller
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return services.AuthenticatedCaller{}, errNoCaller
	}
	if role != models.RoleMentee && role != models.RoleMentor && role != models.RoleAdmin {
		return services.AuthenticatedCaller{}, errNoCaller
	}
	return services.AuthenticatedCaller{UserID: userID, Role: role}, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
