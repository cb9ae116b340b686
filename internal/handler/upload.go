package handler

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/model"
	"github.com/pdftranslate/client/internal/service"
	"github.com/pdftranslate/client/pkg/response"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB

// Uploader starts a translation cycle
type Uploader interface {
	Upload(ctx context.Context, file *model.File) (*service.Session, error)
}

// ViewSource exposes the current presenter view
type ViewSource interface {
	View() model.View
}

type UploadHandler struct {
	uploader Uploader
	views    ViewSource
	logger   zerolog.Logger
}

func NewUploadHandler(uploader Uploader, views ViewSource, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		views:    views,
		logger:   logger,
	}
}

// Upload handles POST /api/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	var file *model.File

	header, err := c.FormFile("file")
	if err == nil {
		if header.Size > maxUploadSize {
			return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
				"maxSize":  maxUploadSize,
				"fileSize": header.Size,
			})
		}

		f, err := header.Open()
		if err != nil {
			return response.ServiceError(c, "Failed to open file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return response.ServiceError(c, "Failed to read file")
		}

		file = &model.File{
			Name:        filepath.Base(header.Filename),
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	sess, err := h.uploader.Upload(c.UserContext(), file)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return response.ValidationError(c, verr.Message, nil)
		}
		h.logger.Error().Err(err).Msg("upload failed")
		return response.UploadFailed(c, err.Error())
	}

	return response.Accepted(c, model.UploadAcceptedResponse{
		SessionID: sess.ID,
		RequestID: sess.RequestID,
		View:      h.views.View(),
	})
}
