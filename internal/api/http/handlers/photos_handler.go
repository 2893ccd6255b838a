package handlers

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// PhotosHandler accepts complaint photo uploads.
type PhotosHandler struct {
	service *service.PhotoService
}

func NewPhotosHandler(photos *service.PhotoService) *PhotosHandler {
	return &PhotosHandler{service: photos}
}

// Upload POST /api/v1/complaints/:id/photos (multipart field "file").
func (h *PhotosHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}

	photo, err := h.service.Upload(c.UserContext(), c.Params("id"), service.PhotoUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPhotoResponse(photo)})
}

// List GET /api/v1/complaints/:id/photos.
func (h *PhotosHandler) List(c *fiber.Ctx) error {
	photos, err := h.service.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.PhotoResponse, 0, len(photos))
	for i := range photos {
		items = append(items, dto.NewPhotoResponse(&photos[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
