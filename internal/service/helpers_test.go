package service

import (
	"context"
	"sync"

	qt "github.com/frankban/quicktest"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const testBcryptCost = 4

type testEnv struct {
	store       *memory.Store
	dispatcher  events.Dispatcher
	recorded    *eventRecorder
	admission   *AdmissionService
	auth        *AuthService
	tickets     *TicketService
	assignments *AssignmentService
	comments    *CommentService
}

func newTestEnv(c *qt.C) *testEnv {
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := &eventRecorder{}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, recorded.record)
	}
	metrics := observability.NewMetrics()
	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: testBcryptCost}

	return &testEnv{
		store:      store,
		dispatcher: dispatcher,
		recorded:   recorded,
		admission: NewAdmissionService(authCfg, AdmissionDependencies{
			AdmissionRepo: store.Admissions(),
			Dispatcher:    dispatcher,
			Metrics:       metrics,
		}),
		auth: NewAuthService(authCfg, AuthDependencies{
			ActorRepo:     store.Actors(),
			AdmissionRepo: store.Admissions(),
		}),
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:     store.Tickets(),
			AttachmentRepo: store.Attachments(),
			HistoryRepo:    store.History(),
			ActorRepo:      store.Actors(),
			Dispatcher:     dispatcher,
			Metrics:        metrics,
		}),
		assignments: NewAssignmentService(AssignmentDependencies{
			TicketRepo: store.Tickets(),
			ActorRepo:  store.Actors(),
			Dispatcher: dispatcher,
		}),
		comments: NewCommentService(CommentDependencies{
			TicketRepo:  store.Tickets(),
			CommentRepo: store.Comments(),
			Dispatcher:  dispatcher,
			Metrics:     metrics,
		}),
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// addActor stores an admitted actor directly and returns its principal.
func (e *testEnv) addActor(c *qt.C, name string, role domain.Role) domain.Principal {
	hash, err := auth.HashPassword("pw-"+name, testBcryptCost)
	c.Assert(err, qt.IsNil)
	actor := &domain.Actor{
		ExternalID:   name,
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	c.Assert(e.store.Actors().Create(context.Background(), actor), qt.IsNil)
	return domain.Principal{ActorID: actor.ID, Email: actor.Email, Role: role}
}

func (e *testEnv) openTicket(c *qt.C, creator domain.Principal) *domain.Ticket {
	ticket, err := e.tickets.CreateTicket(context.Background(), creator, TicketCreateInput{
		Subject:     "VPN down",
		Description: "cannot reach the VPN since this morning",
		Category:    "network",
	})
	c.Assert(err, qt.IsNil)
	return ticket
}

func assertCode(c *qt.C, err error, code string) {
	c.Helper()
	c.Assert(err, qt.IsNotNil)
	c.Assert(apperrors.HasCode(err, code), qt.IsTrue, qt.Commentf("want %s, got %v", code, err))
}
