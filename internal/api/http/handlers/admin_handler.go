package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminHandler exposes admission decisions, assignment and reporting.
type AdminHandler struct {
	admission   *service.AdmissionService
	assignments *service.AssignmentService
	tickets     *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admission *service.AdmissionService, assignments *service.AssignmentService, tickets *service.TicketService) *AdminHandler {
	return &AdminHandler{admission: admission, assignments: assignments, tickets: tickets}
}

// ListPending GET /api/admin/pending-admissions.
func (h *AdminHandler) ListPending(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	pending, err := h.admission.ListPending(c.UserContext(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.PendingActorResponse, 0, len(pending))
	for i := range pending {
		items = append(items, dto.NewPendingActorResponse(&pending[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /api/admin/approve.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	pendingID, err := pendingIDFrom(c)
	if err != nil {
		return err
	}
	actor, err := h.admission.Approve(c.UserContext(), principal, pendingID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActorResponse(actor)})
}

// Reject POST /api/admin/reject.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	pendingID, err := pendingIDFrom(c)
	if err != nil {
		return err
	}
	if err := h.admission.Reject(c.UserContext(), principal, pendingID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assign POST /api/admin/assign.
func (h *AdminHandler) Assign(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.TicketID <= 0 || strings.TrimSpace(req.AgentID) == "" {
		return apperrors.NewValidationError("ticket_id and agent_id required", nil)
	}
	ticket, err := h.assignments.AssignTicket(c.UserContext(), principal, req.TicketID, strings.TrimSpace(req.AgentID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// ListAgents GET /api/admin/agents.
func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	agents, err := h.assignments.ListAgents(c.UserContext(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.ActorResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewActorResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		TotalTickets: stats.Tickets.Total,
		ByStatus:     stats.Tickets.ByStatus,
		ByCategory:   stats.Tickets.ByCategory,
		ByPriority:   stats.Tickets.ByPriority,
		ActorsByRole: stats.ActorsByRole,
	}})
}

func pendingIDFrom(c *fiber.Ctx) (string, error) {
	var req dto.PendingDecisionRequest
	if err := parseBody(c, &req); err != nil {
		return "", err
	}
	id := strings.TrimSpace(req.PendingID)
	if id == "" {
		return "", apperrors.NewValidationError("pending_id required", map[string]any{"field": "pending_id"})
	}
	return id, nil
}
