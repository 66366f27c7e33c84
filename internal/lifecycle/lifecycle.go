// Package lifecycle holds the ticket state machine and the single authorization policy
// consulted before every ticket read or mutation.
package lifecycle

import (
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Action is something a principal attempts on a ticket.
type Action string

const (
	ActionView    Action = "view"
	ActionComment Action = "comment"
	ActionResolve Action = "resolve"
	ActionClose   Action = "close"
	ActionAssign  Action = "assign"
)

// Event triggers an edge in the transition table.
type Event string

const (
	EventAgentComment Event = "agent_comment"
	EventResolve      Event = "resolve"
	EventClose        Event = "close"
	EventReassign     Event = "reassign"
)

// Transition is one row of the table. An empty To leaves the status unchanged.
type Transition struct {
	From  []domain.TicketStatus
	Event Event
	Roles []domain.Role
	To    domain.TicketStatus
}

var transitions = []Transition{
	{
		From:  []domain.TicketStatus{domain.TicketStatusOpen},
		Event: EventAgentComment,
		Roles: []domain.Role{domain.RoleAgent},
		To:    domain.TicketStatusInProgress,
	},
	{
		From:  []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		Event: EventResolve,
		Roles: []domain.Role{domain.RoleAgent},
		To:    domain.TicketStatusResolved,
	},
	{
		From:  []domain.TicketStatus{domain.TicketStatusResolved},
		Event: EventAgentComment,
		Roles: []domain.Role{domain.RoleAgent},
		To:    domain.TicketStatusInProgress,
	},
	{
		From:  []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved},
		Event: EventClose,
		Roles: []domain.Role{domain.RoleAdmin, domain.RoleEmployee},
		To:    domain.TicketStatusClosed,
	},
	{
		From:  []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved},
		Event: EventReassign,
		Roles: []domain.Role{domain.RoleAdmin},
	},
}

var actionEvents = map[Action]Event{
	ActionResolve: EventResolve,
	ActionClose:   EventClose,
	ActionAssign:  EventReassign,
}

// Transitions returns a copy of the transition table.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}

// CanView reports whether p participates in t: the creating employee, the assigned agent
// or any admin.
func CanView(p domain.Principal, t *domain.Ticket) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleEmployee:
		return t.CreatorID == p.ActorID
	case domain.RoleAgent:
		return t.IsAssignedTo(p.ActorID)
	}
	return false
}

// Authorize is the single policy check for ticket actions. It returns Forbidden when the
// caller does not participate in the ticket or their role can never perform the action,
// and IllegalTransition when the action is not legal from the ticket's current state.
func Authorize(p domain.Principal, t *domain.Ticket, action Action) error {
	if action == ActionAssign {
		if p.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("only admins can assign tickets")
		}
	} else if !CanView(p, t) {
		return apperrors.NewForbidden("ticket is not accessible")
	}

	switch action {
	case ActionView:
		return nil
	case ActionComment:
		if t.Status == domain.TicketStatusClosed {
			return illegal(t, action)
		}
		return nil
	}

	event, ok := actionEvents[action]
	if !ok {
		return apperrors.NewForbidden(fmt.Sprintf("unknown action %q", action))
	}
	if !roleMayTrigger(p.Role, event) {
		return apperrors.NewForbidden(fmt.Sprintf("role %s cannot %s tickets", p.Role, action))
	}
	if _, err := Next(p, t, event); err != nil {
		return err
	}
	return nil
}

// Next returns the status t moves to when p triggers event, or IllegalTransition when no
// edge of the table matches the current status, role and relationship.
func Next(p domain.Principal, t *domain.Ticket, event Event) (domain.TicketStatus, error) {
	for _, tr := range transitions {
		if tr.Event != event || !containsStatus(tr.From, t.Status) || !containsRole(tr.Roles, p.Role) {
			continue
		}
		if !relationHolds(p, t) {
			continue
		}
		if tr.To == "" {
			return t.Status, nil
		}
		return tr.To, nil
	}
	return "", illegalEvent(t, event)
}

// CommentTransition reports the status a comment by p moves t to. Only the assigned agent
// triggers a change; everyone else leaves the status as is.
func CommentTransition(p domain.Principal, t *domain.Ticket) (domain.TicketStatus, bool) {
	next, err := Next(p, t, EventAgentComment)
	if err != nil || next == t.Status {
		return t.Status, false
	}
	return next, true
}

// relationHolds checks the identity an edge requires for the caller's role.
func relationHolds(p domain.Principal, t *domain.Ticket) bool {
	switch p.Role {
	case domain.RoleAgent:
		return t.IsAssignedTo(p.ActorID)
	case domain.RoleEmployee:
		return t.CreatorID == p.ActorID
	case domain.RoleAdmin:
		return true
	}
	return false
}

func roleMayTrigger(role domain.Role, event Event) bool {
	for _, tr := range transitions {
		if tr.Event == event && containsRole(tr.Roles, role) {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []domain.Role, r domain.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func illegal(t *domain.Ticket, action Action) error {
	return apperrors.NewIllegalTransition(
		fmt.Sprintf("cannot %s a ticket in status %s", action, t.Status),
		map[string]any{"ticket_id": t.ID, "status": t.Status, "action": action},
	)
}

func illegalEvent(t *domain.Ticket, event Event) error {
	return apperrors.NewIllegalTransition(
		fmt.Sprintf("transition %s is not allowed from status %s", event, t.Status),
		map[string]any{"ticket_id": t.ID, "status": t.Status, "event": event},
	)
}
