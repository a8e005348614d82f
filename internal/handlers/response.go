package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// respond writes the {success, message?, ...payload} envelope
func respond(c *fiber.Ctx, status int, message string, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func ok(c *fiber.Ctx, payload fiber.Map) error {
	return respond(c, fiber.StatusOK, "", payload)
}

func created(c *fiber.Ctx, message string, payload fiber.Map) error {
	return respond(c, fiber.StatusCreated, message, payload)
}

// parseBody decodes the JSON body, answering 400 on malformed input
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

var kindStatus = map[services.Kind]int{
	services.KindValidation:      fiber.StatusBadRequest,
	services.KindUnauthenticated: fiber.StatusUnauthorized,
	services.KindForbidden:       fiber.StatusForbidden,
	services.KindNotFound:        fiber.StatusNotFound,
	services.KindConflict:        fiber.StatusBadRequest,
}

// ErrorHandler is the single place where errors become HTTP responses.
// Internal errors only expose their text outside production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}

		var se *services.Error
		if errors.As(err, &se) {
			if status, ok := kindStatus[se.Kind]; ok {
				return c.Status(status).JSON(fiber.Map{"success": false, "message": se.Message})
			}
		}

		log.Printf("🔴 %s %s: %v", c.Method(), c.Path(), err)
		body := fiber.Map{"success": false, "message": "server error"}
		if !production {
			body["error"] = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "'"+key+"' must be a number")
	}
	return n, nil
}

// queryDate reads a calendar date (local time) or an RFC 3339 timestamp
func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid '"+key+"' date")
	}
	return &t, nil
}
