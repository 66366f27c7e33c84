package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// AuthHandler exposes join, login and account endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	admission *service.AdmissionService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, admissionService *service.AdmissionService) *AuthHandler {
	return &AuthHandler{auth: authService, admission: admissionService}
}

// Join handles POST /api/join.
func (h *AuthHandler) Join(c *fiber.Ctx) error {
	var req dto.JoinRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	pending, err := h.admission.SubmitJoinRequest(c.UserContext(), service.JoinRequestInput{
		ExternalID:   req.UserID,
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"pending": dto.NewPendingActorResponse(pending),
			"message": "registration submitted, awaiting admin approval",
		},
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{
			Auth:  dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
			Actor: dto.NewActorResponse(session.Actor),
		},
	})
}

// Profile handles GET /api/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	actor, err := h.auth.Profile(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActorResponse(actor)})
}

// ChangePassword handles POST /api/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
