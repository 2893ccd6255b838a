package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler exposes the ticket lifecycle.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaints}
}

// Submit POST /api/v1/complaints/submit.
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, _, err := h.service.Submit(c.UserContext(), req.Draft())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.SubmitComplaintResponse{
		ComplaintID: ticket.ID,
		Status:      ticket.Status,
	})
}

// List GET /api/v1/complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return err
	}
	result, err := h.service.List(c.UserContext(), service.ComplaintFilter{
		Status:           c.Query("status"),
		Hostel:           c.Query("hostel"),
		ReporterID:       c.Query("reporter_id"),
		AssignedPorterID: c.Query("assigned_porter_id"),
		Page:             page,
		PageSize:         size,
	})
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, dto.NewComplaintResponse(&result.Items[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: result.Page, PageSize: result.PageSize, Total: result.Total},
	})
}

// Get GET /api/v1/complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(ticket)})
}

// UpdateStatus PATCH /api/v1/complaints/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	outcome, err := h.service.UpdateStatus(c.UserContext(), principal.Actor(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(outcome.Ticket)})
}

// Assign PATCH /api/v1/complaints/:id/assign.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcome, err := h.service.Assign(c.UserContext(), principal.Actor(), c.Params("id"), req.AssignedPorterID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(outcome.Ticket)})
}

// Assignments GET /api/v1/complaints/:id/assignments.
func (h *ComplaintsHandler) Assignments(c *fiber.Ctx) error {
	entries, err := h.service.ListAssignments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponses(entries)})
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return v, nil
}
