package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// ReservationHandler exposes the reservation ledger
type ReservationHandler struct {
	reservations *services.ReservationService
}

func NewReservationHandler(reservations *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var req services.CreateReservationInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.reservations.Create(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return created(c, "reservation created", fiber.Map{"reservation": r})
}

func (h *ReservationHandler) ListMine(c *fiber.Ctx) error {
	list, err := h.reservations.ListMine(c.UserContext(), middleware.CurrentCaller(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(list), "reservations": list})
}

func (h *ReservationHandler) ListForTrip(c *fiber.Ctx) error {
	list, err := h.reservations.ListForTrip(c.UserContext(), middleware.CurrentCaller(c), c.Params("trajetId"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(list), "reservations": list})
}

func (h *ReservationHandler) UpdateStatus(c *fiber.Ctx) error {
	var req services.ReservationStatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.reservations.UpdateStatus(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "reservation updated", fiber.Map{"reservation": r})
}

// Cancel takes an optional {"motif"} body
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	var req services.CancelReservationInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	r, err := h.reservations.Cancel(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "reservation cancelled", fiber.Map{"reservation": r})
}
