package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// ReportHandler handles incident reports, for reporters and the admin console
type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var req services.ReportInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	report, err := h.reports.Create(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return created(c, "report filed", fiber.Map{"signalement": report})
}

func (h *ReportHandler) ListMine(c *fiber.Ctx) error {
	list, err := h.reports.ListMine(c.UserContext(), middleware.CurrentCaller(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(list), "signalements": list})
}

// List is the paginated admin table
func (h *ReportHandler) List(c *fiber.Ctx) error {
	q := services.ReportQuery{
		Search: c.Query("search"),
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}

	list, err := h.reports.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"items":      list.Items,
		"total":      list.Total,
		"totalPages": list.TotalPages,
		"page":       list.Page.Page,
		"limit":      list.Limit,
	})
}

func (h *ReportHandler) Resolve(c *fiber.Ctx) error {
	return h.decide(c, models.ReportResolved)
}

func (h *ReportHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, models.ReportRejected)
}

func (h *ReportHandler) decide(c *fiber.Ctx, status models.ReportStatus) error {
	var req services.ReportDecisionInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	row, err := h.reports.Decide(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"), status, req)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"item": row})
}
