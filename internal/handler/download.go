package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/pdftranslate/client/internal/model"
	"github.com/pdftranslate/client/pkg/response"
)

// ArtifactSource exposes the artifact of the latest completed cycle
type ArtifactSource interface {
	Current() (*model.Artifact, bool)
}

type DownloadHandler struct {
	artifacts ArtifactSource
}

func NewDownloadHandler(artifacts ArtifactSource) *DownloadHandler {
	return &DownloadHandler{artifacts: artifacts}
}

// Download handles GET /api/download
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	artifact, ok := h.artifacts.Current()
	if !ok {
		return response.NotFound(c, "No translation available")
	}

	c.Set(fiber.HeaderContentType, artifact.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Send(artifact.Content)
}
