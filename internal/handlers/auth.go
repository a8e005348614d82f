package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/middleware"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

// AuthHandler handles accounts and sessions
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return created(c, "registration successful", fiber.Map{"token": res.Token, "user": res.User})
}

// Login accepts either an email or a phone number as identifier
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "login successful", fiber.Map{"token": res.Token, "user": res.User})
}

// Me returns the account Protect loaded for this request
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"user": middleware.CurrentUser(c)})
}

// Logout is stateless: the client drops its token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "logged out", nil)
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateProfile(c.UserContext(), middleware.CurrentCaller(c), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "profile updated", fiber.Map{"user": user})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req services.PasswordInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), middleware.CurrentCaller(c), req); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "password updated", nil)
}

// ForgotPassword always answers success so it never reveals whether an account exists
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req services.ForgotPasswordInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, err := h.auth.ForgotPassword(c.UserContext(), req)
	if err != nil {
		return err
	}
	payload := fiber.Map{}
	if token != "" {
		payload["resetToken"] = token
	}
	return respond(c, fiber.StatusOK, "if the account exists, a reset code has been sent", payload)
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req services.ResetPasswordInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "password reset, you can now log in", nil)
}
