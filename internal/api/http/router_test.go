package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "root-password"
)

func newTestApp(c *qt.C) *fiber.App {
	logger := zap.NewNop()
	repos := memory.NewStore().Set()
	metrics := observability.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics)
	dispatcher := events.NewInMemoryDispatcher()
	authCfg := config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}

	authService := service.NewAuthService(authCfg, service.AuthDependencies{
		ActorRepo:     repos.Actors,
		AdmissionRepo: repos.Admissions,
		Logger:        logger,
	})
	err := authService.EnsureBootstrapAdmin(context.Background(), config.BootstrapConfig{
		AdminEmail:      adminEmail,
		AdminPassword:   adminPassword,
		AdminName:       "Root",
		AdminExternalID: "root",
	})
	c.Assert(err, qt.IsNil)

	admissionService := service.NewAdmissionService(authCfg, service.AdmissionDependencies{
		AdmissionRepo: repos.Admissions,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repos.Tickets,
		AttachmentRepo: repos.Attachments,
		HistoryRepo:    repos.History,
		ActorRepo:      repos.Actors,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: repos.Tickets,
		ActorRepo:  repos.Actors,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo:  repos.Tickets,
		CommentRepo: repos.Comments,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService, admissionService),
		Admin:          handlers.NewAdminHandler(admissionService, assignmentService, ticketService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(c *qt.C, app *fiber.App, method, path, token string, body any) (int, envelope) {
	c.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	var env envelope
	if len(raw) > 0 {
		c.Assert(json.Unmarshal(raw, &env), qt.IsNil, qt.Commentf("body: %s", raw))
	}
	return resp.StatusCode, env
}

func decode[T any](c *qt.C, env envelope) T {
	c.Helper()
	var out T
	c.Assert(json.Unmarshal(env.Data, &out), qt.IsNil)
	return out
}

func login(c *qt.C, app *fiber.App, email, password string) (string, string) {
	c.Helper()
	status, env := call(c, app, nethttp.MethodPost, "/api/login", "", fiber.Map{"email": email, "password": password})
	c.Assert(status, qt.Equals, nethttp.StatusOK, qt.Commentf("%+v", env.Error))
	out := decode[struct {
		Auth  struct{ Token string }
		Actor struct{ ID string }
	}](c, env)
	return out.Auth.Token, out.Actor.ID
}

// admit runs join, approval and login for a new account.
func admit(c *qt.C, app *fiber.App, adminToken, name, role string) (string, string) {
	c.Helper()
	email := name + "@example.com"
	status, env := call(c, app, nethttp.MethodPost, "/api/join", "", fiber.Map{
		"user_id": name, "name": name, "email": email, "password": "pw-" + name, "role": role,
	})
	c.Assert(status, qt.Equals, nethttp.StatusAccepted)
	pending := decode[struct{ Pending struct{ ID string } }](c, env)

	status, _ = call(c, app, nethttp.MethodPost, "/api/admin/approve", adminToken, fiber.Map{"pending_id": pending.Pending.ID})
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	return login(c, app, email, "pw-"+name)
}

func TestTicketWorkflowOverHTTP(t *testing.T) {
	c := qt.New(t)
	app := newTestApp(c)

	adminToken, _ := login(c, app, adminEmail, adminPassword)

	status, env := call(c, app, nethttp.MethodPost, "/api/join", "", fiber.Map{
		"user_id": "e1", "name": "Erin", "email": "Erin@Example.com", "password": "pw-erin", "role": "EMPLOYEE",
	})
	c.Assert(status, qt.Equals, nethttp.StatusAccepted)
	pending := decode[struct{ Pending struct{ ID string } }](c, env)

	status, env = call(c, app, nethttp.MethodPost, "/api/login", "", fiber.Map{"email": "erin@example.com", "password": "pw-erin"})
	c.Assert(status, qt.Equals, nethttp.StatusForbidden)
	c.Assert(env.Error.Code, qt.Equals, "PENDING_APPROVAL")

	status, env = call(c, app, nethttp.MethodGet, "/api/admin/pending-admissions", adminToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	c.Assert(decode[[]struct{ ID string }](c, env), qt.HasLen, 1)

	status, _ = call(c, app, nethttp.MethodPost, "/api/admin/approve", adminToken, fiber.Map{"pending_id": pending.Pending.ID})
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	status, env = call(c, app, nethttp.MethodPost, "/api/admin/approve", adminToken, fiber.Map{"pending_id": pending.Pending.ID})
	c.Assert(status, qt.Equals, nethttp.StatusNotFound)
	c.Assert(env.Error.Code, qt.Equals, "NOT_FOUND")

	employeeToken, _ := login(c, app, "erin@example.com", "pw-erin")
	agentToken, agentID := admit(c, app, adminToken, "alex", "AGENT")

	status, env = call(c, app, nethttp.MethodPost, "/api/tickets", employeeToken, fiber.Map{
		"subject":     "Laptop will not boot",
		"description": "black screen after the update",
		"category":    "hardware",
		"priority":    "HIGH",
		"attachments": []fiber.Map{{"file_name": "photo.jpg", "file_url": "https://files.example.com/photo.jpg"}},
	})
	c.Assert(status, qt.Equals, nethttp.StatusCreated)
	created := decode[struct {
		ID          int64
		Status      string
		Attachments []struct{ FileName string `json:"file_name"` }
	}](c, env)
	c.Assert(created.Status, qt.Equals, "OPEN")
	c.Assert(created.Attachments, qt.HasLen, 1)
	ticketPath := "/api/ticket/" + strconv.FormatInt(created.ID, 10)

	status, env = call(c, app, nethttp.MethodGet, ticketPath, agentToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusForbidden)
	c.Assert(env.Error.Code, qt.Equals, "FORBIDDEN")

	status, _ = call(c, app, nethttp.MethodPost, "/api/admin/assign", adminToken, fiber.Map{"ticket_id": created.ID, "agent_id": agentID})
	c.Assert(status, qt.Equals, nethttp.StatusOK)

	status, env = call(c, app, nethttp.MethodPost, ticketPath+"/comments", agentToken, fiber.Map{"content": "looking into it"})
	c.Assert(status, qt.Equals, nethttp.StatusCreated)
	c.Assert(decode[struct{ Status string }](c, env).Status, qt.Equals, "IN_PROGRESS")

	status, env = call(c, app, nethttp.MethodPut, ticketPath+"/resolve", agentToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	c.Assert(decode[struct{ Status string }](c, env).Status, qt.Equals, "RESOLVED")

	status, env = call(c, app, nethttp.MethodPut, ticketPath+"/resolve", agentToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusUnprocessableEntity)
	c.Assert(env.Error.Code, qt.Equals, "ILLEGAL_TRANSITION")

	status, env = call(c, app, nethttp.MethodPut, ticketPath+"/close", employeeToken, fiber.Map{"rating": 5})
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	closed := decode[struct {
		Status string
		Rating *int
	}](c, env)
	c.Assert(closed.Status, qt.Equals, "CLOSED")
	c.Assert(*closed.Rating, qt.Equals, 5)

	status, env = call(c, app, nethttp.MethodPost, ticketPath+"/comments", employeeToken, fiber.Map{"content": "thanks"})
	c.Assert(status, qt.Equals, nethttp.StatusUnprocessableEntity)
	c.Assert(env.Error.Code, qt.Equals, "ILLEGAL_TRANSITION")

	status, env = call(c, app, nethttp.MethodGet, ticketPath+"/comments", employeeToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	c.Assert(decode[[]struct{ Content string }](c, env), qt.HasLen, 1)

	status, env = call(c, app, nethttp.MethodGet, "/api/tickets?status=closed", employeeToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	c.Assert(decode[[]struct{ ID int64 }](c, env), qt.HasLen, 1)

	status, env = call(c, app, nethttp.MethodGet, "/api/admin/stats", adminToken, nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)
	stats := decode[struct {
		TotalTickets int `json:"total_tickets"`
	}](c, env)
	c.Assert(stats.TotalTickets, qt.Equals, 1)
}

func TestAuthenticationAndRoleGuards(t *testing.T) {
	c := qt.New(t)
	app := newTestApp(c)
	adminToken, _ := login(c, app, adminEmail, adminPassword)
	agentToken, _ := admit(c, app, adminToken, "sam", "AGENT")

	tests := []struct {
		about  string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", nethttp.MethodGet, "/api/tickets", "", nil, nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", nethttp.MethodGet, "/api/profile", "not-a-jwt", nil, nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"agent on admin route", nethttp.MethodGet, "/api/admin/stats", agentToken, nil, nethttp.StatusForbidden, "FORBIDDEN"},
		{"agent creates ticket", nethttp.MethodPost, "/api/tickets", agentToken, fiber.Map{"subject": "s", "description": "d", "category": "c"}, nethttp.StatusForbidden, "FORBIDDEN"},
		{"bad credentials", nethttp.MethodPost, "/api/login", "", fiber.Map{"email": adminEmail, "password": "wrong"}, nethttp.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown ticket", nethttp.MethodGet, "/api/ticket/999", adminToken, nil, nethttp.StatusNotFound, "NOT_FOUND"},
		{"malformed ticket id", nethttp.MethodGet, "/api/ticket/abc", adminToken, nil, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate join", nethttp.MethodPost, "/api/join", "", fiber.Map{"user_id": "x", "name": "x", "email": "sam@example.com", "password": "p", "role": "AGENT"}, nethttp.StatusUnprocessableEntity, "DUPLICATE_IDENTITY"},
		{"invalid role", nethttp.MethodPost, "/api/join", "", fiber.Map{"user_id": "y", "name": "y", "email": "y@example.com", "password": "p", "role": "OWNER"}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
	}

	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			status, env := call(c, app, test.method, test.path, test.token, test.body)
			c.Assert(status, qt.Equals, test.status)
			c.Assert(env.Error, qt.IsNotNil)
			c.Assert(env.Error.Code, qt.Equals, test.code)
		})
	}
}

func TestAssignRejectsNonAgent(t *testing.T) {
	c := qt.New(t)
	app := newTestApp(c)
	adminToken, _ := login(c, app, adminEmail, adminPassword)
	employeeToken, employeeID := admit(c, app, adminToken, "kim", "EMPLOYEE")

	status, env := call(c, app, nethttp.MethodPost, "/api/tickets", employeeToken, fiber.Map{
		"subject": "Printer jam", "description": "tray 2", "category": "hardware",
	})
	c.Assert(status, qt.Equals, nethttp.StatusCreated)
	ticketID := decode[struct{ ID int64 }](c, env).ID

	status, env = call(c, app, nethttp.MethodPost, "/api/admin/assign", adminToken, fiber.Map{"ticket_id": ticketID, "agent_id": employeeID})
	c.Assert(status, qt.Equals, nethttp.StatusUnprocessableEntity)
	c.Assert(env.Error.Code, qt.Equals, "ROLE_MISMATCH")
}

func TestHealthAndMetrics(t *testing.T) {
	c := qt.New(t)
	app := newTestApp(c)

	status, _ := call(c, app, nethttp.MethodGet, "/health/ready", "", nil)
	c.Assert(status, qt.Equals, nethttp.StatusOK)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, nethttp.StatusOK)
	raw, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(string(raw), qt.Contains, "helpdesk_http_requests_total")
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	c := qt.New(t)
	app := newTestApp(c)

	status, env := call(c, app, nethttp.MethodGet, "/nope", "", nil)
	c.Assert(status, qt.Equals, nethttp.StatusNotFound)
	c.Assert(env.Error.Code, qt.Equals, "NOT_FOUND")
}
