package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// TripHandler exposes the trip registry
type TripHandler struct {
	trips *services.TripService
}

func NewTripHandler(trips *services.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

func (h *TripHandler) Publish(c *fiber.Ctx) error {
	var req services.PublishTripInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	trip, err := h.trips.Publish(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return created(c, "trip published", fiber.Map{"trajet": trip})
}

// Search reads depart, arrivee, places and either a whole-day date or a
// from/to window
func (h *TripHandler) Search(c *fiber.Ctx) error {
	q := services.TripQuery{
		Origin:      c.Query("depart"),
		Destination: c.Query("arrivee"),
	}

	var err error
	if q.Seats, err = queryInt(c, "places"); err != nil {
		return err
	}

	day, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	if day != nil {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		q.From, q.To = &start, &end
	} else {
		if q.From, err = queryDate(c, "from"); err != nil {
			return err
		}
		if q.To, err = queryDate(c, "to"); err != nil {
			return err
		}
	}

	trips, err := h.trips.Search(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(trips), "trajets": trips})
}

func (h *TripHandler) Get(c *fiber.Ctx) error {
	trip, err := h.trips.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"trajet": trip})
}

func (h *TripHandler) ListForDriver(c *fiber.Ctx) error {
	trips, err := h.trips.ListForDriver(c.UserContext(), c.Params("chauffeurId"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": len(trips), "trajets": trips})
}

func (h *TripHandler) Start(c *fiber.Ctx) error {
	trip, err := h.trips.Start(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "trip started", fiber.Map{"trajet": trip})
}

func (h *TripHandler) AddPosition(c *fiber.Ctx) error {
	var req services.PositionInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	trip, err := h.trips.AddPosition(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	payload := fiber.Map{"distanceParcourue": trip.Distance}
	if n := len(trip.Positions); n > 0 {
		payload["position"] = trip.Positions[n-1]
	}
	return respond(c, fiber.StatusOK, "position recorded", payload)
}

func (h *TripHandler) End(c *fiber.Ctx) error {
	done, err := h.trips.End(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "trip completed", fiber.Map{
		"trajet":                done.Trip,
		"reservationsTerminees": done.CompletedReservations,
	})
}

func (h *TripHandler) Cancel(c *fiber.Ctx) error {
	trip, err := h.trips.Cancel(c.UserContext(), middleware.CurrentCaller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "trip cancelled", fiber.Map{"trajet": trip})
}

func (h *TripHandler) Delete(c *fiber.Ctx) error {
	if err := h.trips.Delete(c.UserContext(), middleware.CurrentCaller(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "trip deleted", nil)
}
