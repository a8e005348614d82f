package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// AdminHandler handles admin operations
type AdminHandler struct {
	admin   *services.AdminService
	finance *services.FinanceService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *services.AdminService, finance *services.FinanceService) *AdminHandler {
	return &AdminHandler{admin: admin, finance: finance}
}

// Statistics returns the dashboard counters
func (h *AdminHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.admin.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"stats": stats})
}

// PendingDrivers lists drivers waiting for validation
func (h *AdminHandler) PendingDrivers(c *fiber.Ctx) error {
	drivers, err := h.admin.PendingDrivers(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(drivers), "chauffeurs": drivers})
}

// ValidateDriver approves or rejects a driver
func (h *AdminHandler) ValidateDriver(c *fiber.Ctx) error {
	var req services.ValidationDecisionInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	driver, err := h.admin.ValidateDriver(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	message := "driver approved"
	if driver.ValidationStatus == models.ValidationRejected {
		message = "driver rejected"
	}
	return respond(c, fiber.StatusOK, message, fiber.Map{"chauffeur": driver})
}

func (h *AdminHandler) BlockDriver(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *AdminHandler) UnblockDriver(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *AdminHandler) setActive(c *fiber.Ctx, active bool) error {
	driver, err := h.admin.SetDriverActive(c.UserContext(), c.Params("id"), active)
	if err != nil {
		return err
	}
	state := "blocked"
	if active {
		state = "unblocked"
	}
	return respond(c, fiber.StatusOK, fmt.Sprintf("driver %s", state), fiber.Map{"user": driver})
}

// UpdateUser edits any account
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req services.AdminUserInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateUser(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user updated", fiber.Map{"user": user})
}

// FinanceStats returns the KPIs for ?period=month|quarter|year|custom&from&to
func (h *AdminHandler) FinanceStats(c *fiber.Ctx) error {
	stats, err := h.finance.Stats(c.UserContext(), services.FinanceQuery{
		Period: c.Query("period", services.PeriodMonth),
		From:   c.Query("from"),
		To:     c.Query("to"),
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"period":    stats.Period,
		"startDate": stats.From,
		"endDate":   stats.To,
		"kpi":       stats.KPI,
		"monthly":   stats.Monthly,
	})
}

func (h *AdminHandler) FinancePayments(c *fiber.Ctx) error {
	q := services.PaymentQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}

	list, err := h.finance.Payments(c.UserContext(), q)
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

func (h *AdminHandler) FinancePendingTrips(c *fiber.Ctx) error {
	items, err := h.finance.PendingTrips(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"items": items})
}
