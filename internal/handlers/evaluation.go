package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

type EvaluationHandler struct {
	evaluations *services.EvaluationService
}

func NewEvaluationHandler(evaluations *services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

func (h *EvaluationHandler) Create(c *fiber.Ctx) error {
	var req services.EvaluationInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.evaluations.Create(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return created(c, "evaluation submitted", fiber.Map{"evaluation": res.Evaluation, "chauffeur": res.Driver})
}

func (h *EvaluationHandler) ListForDriver(c *fiber.Ctx) error {
	list, err := h.evaluations.ListForDriver(c.UserContext(), c.Params("chauffeurId"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(list), "evaluations": list})
}
