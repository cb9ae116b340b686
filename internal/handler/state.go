package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pdftranslate/client/pkg/response"
)

type StateHandler struct {
	views ViewSource
}

func NewStateHandler(views ViewSource) *StateHandler {
	return &StateHandler{views: views}
}

// State handles GET /api/state
func (h *StateHandler) State(c *fiber.Ctx) error {
	return response.OK(c, h.views.View())
}
