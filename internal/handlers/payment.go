package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// PaymentHandler records payments and serves receipts
type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	var req services.PaymentInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.payments.Process(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return created(c, "payment successful", fiber.Map{"paiement": p})
}

func (h *PaymentHandler) GetByReference(c *fiber.Ctx) error {
	p, err := h.payments.GetByReference(c.UserContext(), middleware.CurrentCaller(c), c.Params("ref"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"paiement": p})
}
