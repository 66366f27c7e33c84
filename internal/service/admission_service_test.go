package service

import (
	"context"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func joinInput(id string, role domain.Role) JoinRequestInput {
	return JoinRequestInput{
		ExternalID: id,
		Name:       "User " + id,
		Email:      id + "@example.com",
		Password:   "secret-" + id,
		Role:       role,
	}
}

func TestSubmitJoinRequestValidation(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	tests := []struct {
		about  string
		mutate func(*JoinRequestInput)
	}{
		{"missing user id", func(in *JoinRequestInput) { in.ExternalID = " " }},
		{"missing name", func(in *JoinRequestInput) { in.Name = "" }},
		{"missing email", func(in *JoinRequestInput) { in.Email = "" }},
		{"malformed email", func(in *JoinRequestInput) { in.Email = "not-an-email" }},
		{"missing password", func(in *JoinRequestInput) { in.Password = "" }},
		{"missing role", func(in *JoinRequestInput) { in.Role = "" }},
		{"unknown role", func(in *JoinRequestInput) { in.Role = "SUPERUSER" }},
	}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			in := joinInput("u1", domain.RoleEmployee)
			test.mutate(&in)
			_, err := env.admission.SubmitJoinRequest(ctx, in)
			assertCode(c, err, apperrors.CodeValidation)
		})
	}
}

func TestSubmitJoinRequestHashesSecret(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)

	pending, err := env.admission.SubmitJoinRequest(context.Background(), joinInput("u1", domain.RoleAgent))
	c.Assert(err, qt.IsNil)
	c.Assert(pending.ID, qt.Not(qt.Equals), "")
	c.Assert(pending.PasswordHash, qt.Not(qt.Equals), "secret-u1")
	c.Assert(pending.Role, qt.Equals, domain.RoleAgent)
}

func TestSubmitJoinRequestDuplicateIdentity(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	_, err := env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleEmployee))
	c.Assert(err, qt.IsNil)

	// same email while pending
	_, err = env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleEmployee))
	assertCode(c, err, apperrors.CodeDuplicateIdentity)

	// email of an admitted actor
	env.addActor(c, "taken", domain.RoleEmployee)
	_, err = env.admission.SubmitJoinRequest(ctx, joinInput("taken", domain.RoleEmployee))
	assertCode(c, err, apperrors.CodeDuplicateIdentity)

	// same external id, different email
	in := joinInput("u1", domain.RoleEmployee)
	in.Email = "other@example.com"
	_, err = env.admission.SubmitJoinRequest(ctx, in)
	assertCode(c, err, apperrors.CodeDuplicateIdentity)
}

func TestAdmissionDecisionsRequireAdmin(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	agent := env.addActor(c, "agent", domain.RoleAgent)
	pending, err := env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleEmployee))
	c.Assert(err, qt.IsNil)

	_, err = env.admission.ListPending(ctx, agent)
	assertCode(c, err, apperrors.CodeForbidden)
	_, err = env.admission.Approve(ctx, agent, pending.ID)
	assertCode(c, err, apperrors.CodeForbidden)
	err = env.admission.Reject(ctx, agent, pending.ID)
	assertCode(c, err, apperrors.CodeForbidden)
}

func TestApproveAdmitsAndAllowsLogin(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	admin := env.addActor(c, "admin", domain.RoleAdmin)
	pending, err := env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleAgent))
	c.Assert(err, qt.IsNil)

	queue, err := env.admission.ListPending(ctx, admin)
	c.Assert(err, qt.IsNil)
	c.Assert(queue, qt.HasLen, 1)

	actor, err := env.admission.Approve(ctx, admin, pending.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(actor.Email, qt.Equals, "u1@example.com")
	c.Assert(actor.Role, qt.Equals, domain.RoleAgent)
	c.Assert(actor.PasswordHash, qt.Equals, pending.PasswordHash)

	queue, err = env.admission.ListPending(ctx, admin)
	c.Assert(err, qt.IsNil)
	c.Assert(queue, qt.HasLen, 0)

	session, err := env.auth.Login(ctx, "u1@example.com", "secret-u1")
	c.Assert(err, qt.IsNil)
	c.Assert(session.Actor.ID, qt.Equals, actor.ID)
	c.Assert(env.recorded.types(), qt.Contains, events.EventActorAdmitted)
}

func TestRejectDiscardsRequest(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	admin := env.addActor(c, "admin", domain.RoleAdmin)
	pending, err := env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleEmployee))
	c.Assert(err, qt.IsNil)

	c.Assert(env.admission.Reject(ctx, admin, pending.ID), qt.IsNil)

	_, err = env.auth.Login(ctx, "u1@example.com", "secret-u1")
	assertCode(c, err, apperrors.CodeNotFound)
	_, err = env.admission.Approve(ctx, admin, pending.ID)
	assertCode(c, err, apperrors.CodeNotFound)
	err = env.admission.Reject(ctx, admin, pending.ID)
	assertCode(c, err, apperrors.CodeNotFound)
}

func TestConcurrentDecisionsSucceedExactlyOnce(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	admin := env.addActor(c, "admin", domain.RoleAdmin)
	pending, err := env.admission.SubmitJoinRequest(ctx, joinInput("u1", domain.RoleEmployee))
	c.Assert(err, qt.IsNil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = env.admission.Approve(ctx, admin, pending.ID)
			} else {
				err = env.admission.Reject(ctx, admin, pending.ID)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.HasCode(err, apperrors.CodeNotFound):
				notFound++
			}
		}(i)
	}
	wg.Wait()

	c.Assert(successes, qt.Equals, 1)
	c.Assert(notFound, qt.Equals, workers-1)
}
